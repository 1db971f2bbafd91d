package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore implements Store on Google Cloud Storage
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a GCS-backed archive store. Without an explicit
// credentials file the client falls back to application default credentials.
func NewGCSStore(ctx context.Context, config *GCSConfig) (*GCSStore, error) {
	if config == nil {
		return nil, NewValidationError("GCS storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var client *storage.Client
	var err error
	if config.CredentialsPath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(config.CredentialsPath))
	} else {
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, NewStorageError("failed to create GCS client", err)
	}

	return &GCSStore{
		client: client,
		bucket: config.Bucket,
	}, nil
}

// Store uploads an archive payload and its metadata sidecar
func (g *GCSStore) Store(ctx context.Context, a *Archive) error {
	if a == nil {
		return NewValidationError("archive cannot be nil", nil)
	}

	a.Metadata.StorageLocation = fmt.Sprintf("gs://%s/%s", g.bucket, objectKey(a.ID, payloadObject))
	a.Seal()

	if err := a.Validate(); err != nil {
		return err
	}

	bucket := g.client.Bucket(g.bucket)

	payloadWriter := bucket.Object(objectKey(a.ID, payloadObject)).NewWriter(ctx)
	payloadWriter.ContentType = "application/octet-stream"
	payloadWriter.Metadata = map[string]string{
		"archive-id":    a.ID,
		"database-name": a.Metadata.DatabaseName,
		"compression":   string(a.Metadata.Compression),
		"checksum":      a.Metadata.Checksum,
	}

	if _, err := payloadWriter.Write(a.Data); err != nil {
		payloadWriter.Close()
		return NewStorageError("failed to write archive payload to GCS", err)
	}
	if err := payloadWriter.Close(); err != nil {
		return NewStorageError("failed to upload archive to GCS", err)
	}

	metadataData, err := a.Metadata.ToJSON()
	if err != nil {
		return NewStorageError("failed to serialize archive metadata", err)
	}

	metadataWriter := bucket.Object(objectKey(a.ID, metadataObject)).NewWriter(ctx)
	metadataWriter.ContentType = "application/json"

	if _, err := metadataWriter.Write(metadataData); err != nil {
		metadataWriter.Close()
		return NewStorageError("failed to write archive metadata to GCS", err)
	}
	if err := metadataWriter.Close(); err != nil {
		return NewStorageError("failed to upload archive metadata to GCS", err)
	}

	return nil
}

// Retrieve downloads an archive and verifies its checksum
func (g *GCSStore) Retrieve(ctx context.Context, id string) (*Archive, error) {
	metadata, err := g.GetMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	reader, err := g.client.Bucket(g.bucket).Object(objectKey(id, payloadObject)).NewReader(ctx)
	if err != nil {
		return nil, NewStorageError(fmt.Sprintf("failed to download archive %s from GCS", id), err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, NewStorageError("failed to read archive payload", err)
	}

	a := &Archive{ID: metadata.ID, Metadata: *metadata, Data: data}
	if !a.VerifyChecksum() {
		return nil, NewCorruptionError(fmt.Sprintf("archive %s failed checksum verification", id), nil)
	}

	return a, nil
}

// Delete removes all objects belonging to an archive
func (g *GCSStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return NewValidationError("archive ID cannot be empty", nil)
	}

	bucket := g.client.Bucket(g.bucket)
	prefix := objectPrefix + sanitizeID(id) + "/"

	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	deleted := 0
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return NewStorageError("failed to list archive objects", err)
		}

		if err := bucket.Object(attrs.Name).Delete(ctx); err != nil {
			return NewStorageError("failed to delete archive object from GCS", err)
		}
		deleted++
	}

	if deleted == 0 {
		return NewNotFoundError(fmt.Sprintf("archive %s not found", id), nil)
	}

	return nil
}

// List returns metadata for all stored archives
func (g *GCSStore) List(ctx context.Context) ([]*Metadata, error) {
	var archives []*Metadata

	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: objectPrefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, NewStorageError("failed to list archives from GCS", err)
		}

		id := idFromMetadataKey(attrs.Name)
		if id == "" {
			continue
		}

		metadata, err := g.GetMetadata(ctx, id)
		if err != nil {
			continue
		}
		archives = append(archives, metadata)
	}

	return archives, nil
}

// GetMetadata downloads the metadata sidecar for an archive
func (g *GCSStore) GetMetadata(ctx context.Context, id string) (*Metadata, error) {
	if id == "" {
		return nil, NewValidationError("archive ID cannot be empty", nil)
	}

	reader, err := g.client.Bucket(g.bucket).Object(objectKey(id, metadataObject)).NewReader(ctx)
	if err != nil {
		return nil, NewNotFoundError(fmt.Sprintf("archive %s not found", id), err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, NewStorageError("failed to read archive metadata", err)
	}

	return MetadataFromJSON(data)
}

// HealthCheck verifies the bucket is accessible
func (g *GCSStore) HealthCheck(ctx context.Context) error {
	_, err := g.client.Bucket(g.bucket).Attrs(ctx)
	if err != nil {
		return NewStorageError("GCS bucket is not accessible", err)
	}
	return nil
}

// Close releases the underlying client
func (g *GCSStore) Close() error {
	return g.client.Close()
}

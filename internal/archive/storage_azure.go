package archive

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureStore implements Store on Azure Blob Storage
type AzureStore struct {
	serviceURL azblob.ServiceURL
	container  string
}

// NewAzureStore creates an Azure-backed archive store
func NewAzureStore(config *AzureConfig) (*AzureStore, error) {
	if config == nil {
		return nil, NewValidationError("Azure storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, NewStorageError("failed to create Azure credentials", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, NewStorageError("failed to parse Azure service URL", err)
	}

	return &AzureStore{
		serviceURL: azblob.NewServiceURL(*serviceURL, pipeline),
		container:  config.ContainerName,
	}, nil
}

// Store uploads an archive payload and its metadata sidecar
func (az *AzureStore) Store(ctx context.Context, a *Archive) error {
	if a == nil {
		return NewValidationError("archive cannot be nil", nil)
	}

	a.Metadata.StorageLocation = fmt.Sprintf("azure://%s/%s", az.container, objectKey(a.ID, payloadObject))
	a.Seal()

	if err := a.Validate(); err != nil {
		return err
	}

	containerURL := az.serviceURL.NewContainerURL(az.container)

	payloadURL := containerURL.NewBlockBlobURL(objectKey(a.ID, payloadObject))
	_, err := azblob.UploadBufferToBlockBlob(ctx, a.Data, payloadURL, azblob.UploadToBlockBlobOptions{
		BlockSize:   4 * 1024 * 1024,
		Parallelism: 16,
		Metadata: azblob.Metadata{
			"archiveid":    a.ID,
			"databasename": a.Metadata.DatabaseName,
			"checksum":     a.Metadata.Checksum,
		},
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: "application/octet-stream",
		},
	})
	if err != nil {
		return NewStorageError("failed to upload archive to Azure", err)
	}

	metadataData, err := a.Metadata.ToJSON()
	if err != nil {
		return NewStorageError("failed to serialize archive metadata", err)
	}

	metadataURL := containerURL.NewBlockBlobURL(objectKey(a.ID, metadataObject))
	_, err = azblob.UploadBufferToBlockBlob(ctx, metadataData, metadataURL, azblob.UploadToBlockBlobOptions{
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: "application/json",
		},
	})
	if err != nil {
		return NewStorageError("failed to upload archive metadata to Azure", err)
	}

	return nil
}

// Retrieve downloads an archive and verifies its checksum
func (az *AzureStore) Retrieve(ctx context.Context, id string) (*Archive, error) {
	metadata, err := az.GetMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	blobURL := az.serviceURL.NewContainerURL(az.container).NewBlockBlobURL(objectKey(id, payloadObject))
	response, err := blobURL.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		return nil, NewStorageError(fmt.Sprintf("failed to download archive %s from Azure", id), err)
	}

	body := response.Body(azblob.RetryReaderOptions{MaxRetryRequests: 3})
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, NewStorageError("failed to read archive payload", err)
	}

	a := &Archive{ID: metadata.ID, Metadata: *metadata, Data: data}
	if !a.VerifyChecksum() {
		return nil, NewCorruptionError(fmt.Sprintf("archive %s failed checksum verification", id), nil)
	}

	return a, nil
}

// Delete removes all blobs belonging to an archive
func (az *AzureStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return NewValidationError("archive ID cannot be empty", nil)
	}

	containerURL := az.serviceURL.NewContainerURL(az.container)
	prefix := objectPrefix + sanitizeID(id) + "/"

	deleted := 0
	for marker := (azblob.Marker{}); marker.NotDone(); {
		listBlob, err := containerURL.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{
			Prefix: prefix,
		})
		if err != nil {
			return NewStorageError("failed to list archive blobs", err)
		}
		marker = listBlob.NextMarker

		for _, blob := range listBlob.Segment.BlobItems {
			blobURL := containerURL.NewBlockBlobURL(blob.Name)
			_, err := blobURL.Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
			if err != nil {
				return NewStorageError("failed to delete archive blob from Azure", err)
			}
			deleted++
		}
	}

	if deleted == 0 {
		return NewNotFoundError(fmt.Sprintf("archive %s not found", id), nil)
	}

	return nil
}

// List returns metadata for all stored archives
func (az *AzureStore) List(ctx context.Context) ([]*Metadata, error) {
	containerURL := az.serviceURL.NewContainerURL(az.container)

	var archives []*Metadata
	for marker := (azblob.Marker{}); marker.NotDone(); {
		listBlob, err := containerURL.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{
			Prefix: objectPrefix,
		})
		if err != nil {
			return nil, NewStorageError("failed to list archives from Azure", err)
		}
		marker = listBlob.NextMarker

		for _, blob := range listBlob.Segment.BlobItems {
			id := idFromMetadataKey(blob.Name)
			if id == "" {
				continue
			}

			metadata, err := az.GetMetadata(ctx, id)
			if err != nil {
				continue
			}
			archives = append(archives, metadata)
		}
	}

	return archives, nil
}

// GetMetadata downloads the metadata sidecar for an archive
func (az *AzureStore) GetMetadata(ctx context.Context, id string) (*Metadata, error) {
	if id == "" {
		return nil, NewValidationError("archive ID cannot be empty", nil)
	}

	blobURL := az.serviceURL.NewContainerURL(az.container).NewBlockBlobURL(objectKey(id, metadataObject))
	response, err := blobURL.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		return nil, NewNotFoundError(fmt.Sprintf("archive %s not found", id), err)
	}

	body := response.Body(azblob.RetryReaderOptions{MaxRetryRequests: 3})
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, NewStorageError("failed to read archive metadata", err)
	}

	return MetadataFromJSON(data)
}

// HealthCheck verifies the container is accessible
func (az *AzureStore) HealthCheck(ctx context.Context) error {
	containerURL := az.serviceURL.NewContainerURL(az.container)
	_, err := containerURL.GetProperties(ctx, azblob.LeaseAccessConditions{})
	if err != nil {
		return NewStorageError("Azure container is not accessible", err)
	}
	return nil
}

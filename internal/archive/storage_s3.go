package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Store implements Store on Amazon S3
type S3Store struct {
	client *s3.S3
	bucket string
}

// NewS3Store creates an S3-backed archive store
func NewS3Store(config *S3Config) (*S3Store, error) {
	if config == nil {
		return nil, NewValidationError("S3 storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(config.Region),
		Credentials: credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, ""),
	})
	if err != nil {
		return nil, NewStorageError("failed to create AWS session", err)
	}

	return &S3Store{
		client: s3.New(sess),
		bucket: config.Bucket,
	}, nil
}

// Store uploads an archive payload and its metadata sidecar
func (s *S3Store) Store(ctx context.Context, a *Archive) error {
	if a == nil {
		return NewValidationError("archive cannot be nil", nil)
	}

	a.Metadata.StorageLocation = fmt.Sprintf("s3://%s/%s", s.bucket, objectKey(a.ID, payloadObject))
	a.Seal()

	if err := a.Validate(); err != nil {
		return err
	}

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(a.ID, payloadObject)),
		Body:        bytes.NewReader(a.Data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]*string{
			"archive-id":    aws.String(a.ID),
			"database-name": aws.String(a.Metadata.DatabaseName),
			"compression":   aws.String(string(a.Metadata.Compression)),
			"checksum":      aws.String(a.Metadata.Checksum),
		},
	})
	if err != nil {
		return NewStorageError("failed to upload archive to S3", err)
	}

	metadataData, err := a.Metadata.ToJSON()
	if err != nil {
		return NewStorageError("failed to serialize archive metadata", err)
	}

	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(a.ID, metadataObject)),
		Body:        bytes.NewReader(metadataData),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return NewStorageError("failed to upload archive metadata to S3", err)
	}

	return nil
}

// Retrieve downloads an archive and verifies its checksum
func (s *S3Store) Retrieve(ctx context.Context, id string) (*Archive, error) {
	metadata, err := s.GetMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(id, payloadObject)),
	})
	if err != nil {
		return nil, NewStorageError(fmt.Sprintf("failed to download archive %s from S3", id), err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
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
func (s *S3Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return NewValidationError("archive ID cannot be empty", nil)
	}

	prefix := objectPrefix + sanitizeID(id) + "/"
	listResult, err := s.client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return NewStorageError("failed to list archive objects", err)
	}

	if len(listResult.Contents) == 0 {
		return NewNotFoundError(fmt.Sprintf("archive %s not found", id), nil)
	}

	var objects []*s3.ObjectIdentifier
	for _, obj := range listResult.Contents {
		objects = append(objects, &s3.ObjectIdentifier{Key: obj.Key})
	}

	_, err = s.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &s3.Delete{Objects: objects},
	})
	if err != nil {
		return NewStorageError("failed to delete archive objects from S3", err)
	}

	return nil
}

// List returns metadata for all stored archives
func (s *S3Store) List(ctx context.Context) ([]*Metadata, error) {
	var archives []*Metadata

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(objectPrefix),
	}

	err := s.client.ListObjectsV2PagesWithContext(ctx, input,
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				id := idFromMetadataKey(*obj.Key)
				if id == "" {
					continue
				}

				metadata, err := s.GetMetadata(ctx, id)
				if err != nil {
					continue
				}
				archives = append(archives, metadata)
			}
			return true
		})
	if err != nil {
		return nil, NewStorageError("failed to list archives from S3", err)
	}

	return archives, nil
}

// GetMetadata downloads the metadata sidecar for an archive
func (s *S3Store) GetMetadata(ctx context.Context, id string) (*Metadata, error) {
	if id == "" {
		return nil, NewValidationError("archive ID cannot be empty", nil)
	}

	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(id, metadataObject)),
	})
	if err != nil {
		return nil, NewNotFoundError(fmt.Sprintf("archive %s not found", id), err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, NewStorageError("failed to read archive metadata", err)
	}

	return MetadataFromJSON(data)
}

// HealthCheck verifies the bucket is accessible
func (s *S3Store) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return NewStorageError("S3 bucket is not accessible", err)
	}
	return nil
}

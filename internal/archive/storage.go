package archive

import (
	"context"
	"strings"
)

// Store persists packed dump archives. Each archive lands as two objects
// under its ID: the raw payload and a metadata JSON sidecar.
type Store interface {
	// Store saves an archive
	Store(ctx context.Context, a *Archive) error

	// Retrieve loads an archive by ID, verifying its checksum
	Retrieve(ctx context.Context, id string) (*Archive, error)

	// Delete removes an archive by ID
	Delete(ctx context.Context, id string) error

	// List returns metadata for all stored archives
	List(ctx context.Context) ([]*Metadata, error)

	// GetMetadata retrieves metadata for a single archive
	GetMetadata(ctx context.Context, id string) (*Metadata, error)

	// HealthCheck verifies the backend is reachable and writable
	HealthCheck(ctx context.Context) error
}

const (
	objectPrefix   = "archives/"
	payloadObject  = "archive.bin"
	metadataObject = "metadata.json"
)

// objectKey builds the storage key for one of an archive's objects
func objectKey(id, name string) string {
	return objectPrefix + sanitizeID(id) + "/" + name
}

// sanitizeID strips characters that are unsafe in object keys
func sanitizeID(id string) string {
	id = strings.ReplaceAll(id, " ", "_")
	id = strings.ReplaceAll(id, "\\", "_")
	id = strings.ReplaceAll(id, "..", "_")
	return id
}

// idFromMetadataKey extracts the archive ID from a metadata object key,
// returning "" for keys that are not metadata sidecars
func idFromMetadataKey(key string) string {
	if !strings.HasPrefix(key, objectPrefix) {
		return ""
	}
	rest := strings.TrimPrefix(key, objectPrefix)
	if !strings.HasSuffix(rest, "/"+metadataObject) {
		return ""
	}
	return strings.TrimSuffix(rest, "/"+metadataObject)
}

package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore implements Store on the local filesystem
type LocalStore struct {
	directory string
}

// NewLocalStore creates a filesystem store rooted at the configured directory
func NewLocalStore(config *LocalConfig) (*LocalStore, error) {
	if config == nil {
		return nil, NewValidationError("local storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(config.Directory, 0o755); err != nil {
		return nil, NewStorageError("failed to create storage directory", err)
	}

	return &LocalStore{directory: config.Directory}, nil
}

// Store saves an archive to disk
func (ls *LocalStore) Store(_ context.Context, a *Archive) error {
	if a == nil {
		return NewValidationError("archive cannot be nil", nil)
	}

	dir := ls.archiveDir(a.ID)
	if _, err := os.Stat(dir); err == nil {
		return NewConflictError(fmt.Sprintf("archive %s already exists", a.ID), nil)
	}

	a.Metadata.StorageLocation = dir
	a.Seal()

	if err := a.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return NewStorageError("failed to create archive directory", err)
	}

	if err := os.WriteFile(filepath.Join(dir, payloadObject), a.Data, 0o644); err != nil {
		return NewStorageError("failed to write archive payload", err)
	}

	metadataData, err := a.Metadata.ToJSON()
	if err != nil {
		return NewStorageError("failed to serialize archive metadata", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataObject), metadataData, 0o644); err != nil {
		return NewStorageError("failed to write archive metadata", err)
	}

	return nil
}

// Retrieve loads an archive from disk
func (ls *LocalStore) Retrieve(ctx context.Context, id string) (*Archive, error) {
	metadata, err := ls.GetMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(ls.archiveDir(id), payloadObject))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewNotFoundError(fmt.Sprintf("archive %s not found", id), err)
		}
		return nil, NewStorageError("failed to read archive payload", err)
	}

	a := &Archive{ID: metadata.ID, Metadata: *metadata, Data: data}
	if !a.VerifyChecksum() {
		return nil, NewCorruptionError(fmt.Sprintf("archive %s failed checksum verification", id), nil)
	}

	return a, nil
}

// Delete removes an archive from disk
func (ls *LocalStore) Delete(_ context.Context, id string) error {
	if id == "" {
		return NewValidationError("archive ID cannot be empty", nil)
	}

	dir := ls.archiveDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return NewNotFoundError(fmt.Sprintf("archive %s not found", id), err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return NewStorageError("failed to delete archive", err)
	}

	return nil
}

// List returns metadata for all archives in the storage directory
func (ls *LocalStore) List(ctx context.Context) ([]*Metadata, error) {
	entries, err := os.ReadDir(ls.directory)
	if err != nil {
		return nil, NewStorageError("failed to list storage directory", err)
	}

	var archives []*Metadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		metadata, err := ls.GetMetadata(ctx, entry.Name())
		if err != nil {
			// Skip directories without usable metadata
			continue
		}
		archives = append(archives, metadata)
	}

	return archives, nil
}

// GetMetadata loads the metadata sidecar for an archive
func (ls *LocalStore) GetMetadata(_ context.Context, id string) (*Metadata, error) {
	if id == "" {
		return nil, NewValidationError("archive ID cannot be empty", nil)
	}

	data, err := os.ReadFile(filepath.Join(ls.archiveDir(id), metadataObject))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewNotFoundError(fmt.Sprintf("archive %s not found", id), err)
		}
		return nil, NewStorageError("failed to read archive metadata", err)
	}

	return MetadataFromJSON(data)
}

// HealthCheck verifies the storage directory is writable
func (ls *LocalStore) HealthCheck(_ context.Context) error {
	probe := filepath.Join(ls.directory, ".health")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return NewStorageError("storage directory is not writable", err)
	}
	os.Remove(probe)
	return nil
}

func (ls *LocalStore) archiveDir(id string) string {
	return filepath.Join(ls.directory, sanitizeID(id))
}

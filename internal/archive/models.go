package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Algorithm identifies a compression algorithm applied to archive payloads
type Algorithm string

const (
	AlgorithmNone Algorithm = "none"
	AlgorithmGzip Algorithm = "gzip"
	AlgorithmLZ4  Algorithm = "lz4"
	AlgorithmZstd Algorithm = "zstd"
)

// Metadata describes a stored dump archive without carrying its payload
type Metadata struct {
	ID              string    `json:"id"`
	DatabaseName    string    `json:"database_name"`
	CreatedAt       time.Time `json:"created_at"`
	CreatedBy       string    `json:"created_by"`
	OriginalSize    int64     `json:"original_size"`
	StoredSize      int64     `json:"stored_size"`
	Compression     Algorithm `json:"compression"`
	Encrypted       bool      `json:"encrypted"`
	Checksum        string    `json:"checksum"`
	StorageLocation string    `json:"storage_location,omitempty"`
}

// Archive is a packed database dump ready for storage
type Archive struct {
	ID       string   `json:"id"`
	Metadata Metadata `json:"metadata"`
	Data     []byte   `json:"data"`
}

// New creates an archive around a raw dump payload
func New(database, createdBy string, data []byte) *Archive {
	id := uuid.New().String()
	return &Archive{
		ID:   id,
		Data: data,
		Metadata: Metadata{
			ID:           id,
			DatabaseName: database,
			CreatedAt:    time.Now().UTC(),
			CreatedBy:    createdBy,
			OriginalSize: int64(len(data)),
			StoredSize:   int64(len(data)),
			Compression:  AlgorithmNone,
		},
	}
}

// Checksum returns the hex SHA-256 digest of the payload
func (a *Archive) ChecksumHex() string {
	sum := sha256.Sum256(a.Data)
	return hex.EncodeToString(sum[:])
}

// Seal records the payload checksum and stored size in the metadata.
// Call after the final transformation (compression, encryption) so the
// checksum covers the bytes that actually land in storage.
func (a *Archive) Seal() {
	a.Metadata.Checksum = a.ChecksumHex()
	a.Metadata.StoredSize = int64(len(a.Data))
}

// VerifyChecksum reports whether the payload matches the recorded checksum
func (a *Archive) VerifyChecksum() bool {
	return a.Metadata.Checksum != "" && a.Metadata.Checksum == a.ChecksumHex()
}

// Validate checks the archive for storage readiness
func (a *Archive) Validate() error {
	if a.ID == "" {
		return NewValidationError("archive ID is required", nil)
	}
	if a.Metadata.DatabaseName == "" {
		return NewValidationError("database name is required", nil)
	}
	if len(a.Data) == 0 {
		return NewValidationError("archive payload is empty", nil)
	}
	if a.Metadata.Checksum == "" {
		return NewValidationError("archive is not sealed", nil)
	}
	return nil
}

// Validate checks metadata consistency
func (m *Metadata) Validate() error {
	if m.ID == "" {
		return NewValidationError("metadata ID is required", nil)
	}
	if m.DatabaseName == "" {
		return NewValidationError("database name is required", nil)
	}
	return nil
}

// ToJSON serializes the metadata
func (m *Metadata) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// MetadataFromJSON deserializes metadata
func MetadataFromJSON(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, NewStorageError("failed to unmarshal archive metadata", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

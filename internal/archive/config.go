package archive

import (
	"fmt"
)

// StorageType identifies a storage backend
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
	StorageTypeGCS   StorageType = "gcs"
	StorageTypeAzure StorageType = "azure"
)

// StorageConfig selects and configures the archive storage backend
type StorageConfig struct {
	Type  StorageType  `mapstructure:"type" yaml:"type"`
	Local *LocalConfig `mapstructure:"local" yaml:"local,omitempty"`
	S3    *S3Config    `mapstructure:"s3" yaml:"s3,omitempty"`
	GCS   *GCSConfig   `mapstructure:"gcs" yaml:"gcs,omitempty"`
	Azure *AzureConfig `mapstructure:"azure" yaml:"azure,omitempty"`
}

// LocalConfig configures filesystem archive storage
type LocalConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
}

// S3Config configures Amazon S3 archive storage
type S3Config struct {
	Region    string `mapstructure:"region" yaml:"region"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
}

// GCSConfig configures Google Cloud Storage archive storage
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	CredentialsPath string `mapstructure:"credentials_path" yaml:"credentials_path"`
}

// AzureConfig configures Azure Blob Storage archive storage
type AzureConfig struct {
	AccountName   string `mapstructure:"account_name" yaml:"account_name"`
	AccountKey    string `mapstructure:"account_key" yaml:"account_key"`
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
}

// CompressionConfig configures archive payload compression
type CompressionConfig struct {
	Algorithm Algorithm `mapstructure:"algorithm" yaml:"algorithm"`
	Level     int       `mapstructure:"level" yaml:"level"`
}

// EncryptionConfig configures archive payload encryption
type EncryptionConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Passphrase string `mapstructure:"passphrase" yaml:"passphrase"`
}

// Validate checks the storage configuration
func (sc *StorageConfig) Validate() error {
	switch sc.Type {
	case StorageTypeLocal:
		if sc.Local == nil {
			return NewValidationError("local storage configuration is required", nil)
		}
		return sc.Local.Validate()
	case StorageTypeS3:
		if sc.S3 == nil {
			return NewValidationError("S3 storage configuration is required", nil)
		}
		return sc.S3.Validate()
	case StorageTypeGCS:
		if sc.GCS == nil {
			return NewValidationError("GCS storage configuration is required", nil)
		}
		return sc.GCS.Validate()
	case StorageTypeAzure:
		if sc.Azure == nil {
			return NewValidationError("Azure storage configuration is required", nil)
		}
		return sc.Azure.Validate()
	case "":
		return NewValidationError("storage type is required", nil)
	default:
		return NewValidationError(fmt.Sprintf("unsupported storage type: %s", sc.Type), nil)
	}
}

// Validate checks the local storage configuration
func (lc *LocalConfig) Validate() error {
	if lc.Directory == "" {
		return NewValidationError("storage directory is required", nil)
	}
	return nil
}

// Validate checks the S3 storage configuration
func (s3c *S3Config) Validate() error {
	if s3c.Region == "" {
		return NewValidationError("S3 region is required", nil)
	}
	if s3c.Bucket == "" {
		return NewValidationError("S3 bucket is required", nil)
	}
	if s3c.AccessKey == "" || s3c.SecretKey == "" {
		return NewValidationError("S3 credentials are required", nil)
	}
	return nil
}

// Validate checks the GCS storage configuration
func (gc *GCSConfig) Validate() error {
	if gc.Bucket == "" {
		return NewValidationError("GCS bucket is required", nil)
	}
	return nil
}

// Validate checks the Azure storage configuration
func (ac *AzureConfig) Validate() error {
	if ac.AccountName == "" || ac.AccountKey == "" {
		return NewValidationError("Azure account credentials are required", nil)
	}
	if ac.ContainerName == "" {
		return NewValidationError("Azure container name is required", nil)
	}
	return nil
}

// Validate checks the compression configuration
func (cc *CompressionConfig) Validate() error {
	switch cc.Algorithm {
	case "", AlgorithmNone, AlgorithmGzip, AlgorithmLZ4, AlgorithmZstd:
		return nil
	default:
		return NewValidationError(fmt.Sprintf("unsupported compression algorithm: %s", cc.Algorithm), nil)
	}
}

// Validate checks the encryption configuration
func (ec *EncryptionConfig) Validate() error {
	if ec.Enabled && ec.Passphrase == "" {
		return NewValidationError("encryption passphrase is required when encryption is enabled", nil)
	}
	return nil
}

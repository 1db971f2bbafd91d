package archive

import (
	"context"
	"fmt"
)

// NewStore creates the storage backend selected by the configuration
func NewStore(ctx context.Context, config *StorageConfig) (Store, error) {
	if config == nil {
		return nil, NewValidationError("storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case StorageTypeLocal:
		return NewLocalStore(config.Local)
	case StorageTypeS3:
		return NewS3Store(config.S3)
	case StorageTypeGCS:
		return NewGCSStore(ctx, config.GCS)
	case StorageTypeAzure:
		return NewAzureStore(config.Azure)
	default:
		return nil, NewValidationError(fmt.Sprintf("unsupported storage type: %s", config.Type), nil)
	}
}

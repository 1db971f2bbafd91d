package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_Local(t *testing.T) {
	store, err := NewStore(context.Background(), &StorageConfig{
		Type:  StorageTypeLocal,
		Local: &LocalConfig{Directory: t.TempDir()},
	})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)
}

func TestNewStore_MissingConfig(t *testing.T) {
	_, err := NewStore(context.Background(), nil)
	assert.Error(t, err)

	_, err = NewStore(context.Background(), &StorageConfig{})
	assert.Error(t, err)

	_, err = NewStore(context.Background(), &StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}

func TestNewStore_BackendConfigRequired(t *testing.T) {
	_, err := NewStore(context.Background(), &StorageConfig{Type: StorageTypeS3})
	require.Error(t, err)

	_, err = NewStore(context.Background(), &StorageConfig{Type: StorageTypeAzure})
	require.Error(t, err)

	_, err = NewStore(context.Background(), &StorageConfig{Type: StorageTypeGCS})
	require.Error(t, err)
}

func TestStorageConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  StorageConfig
		wantErr bool
	}{
		{
			name: "valid local",
			config: StorageConfig{
				Type:  StorageTypeLocal,
				Local: &LocalConfig{Directory: "/var/lib/archives"},
			},
		},
		{
			name: "valid s3",
			config: StorageConfig{
				Type: StorageTypeS3,
				S3: &S3Config{
					Region:    "eu-west-1",
					Bucket:    "db-archives",
					AccessKey: "AKIA...",
					SecretKey: "secret",
				},
			},
		},
		{
			name: "s3 missing bucket",
			config: StorageConfig{
				Type: StorageTypeS3,
				S3:   &S3Config{Region: "eu-west-1", AccessKey: "a", SecretKey: "s"},
			},
			wantErr: true,
		},
		{
			name: "azure missing container",
			config: StorageConfig{
				Type:  StorageTypeAzure,
				Azure: &AzureConfig{AccountName: "acct", AccountKey: "key"},
			},
			wantErr: true,
		},
		{
			name: "gcs valid with default credentials",
			config: StorageConfig{
				Type: StorageTypeGCS,
				GCS:  &GCSConfig{Bucket: "db-archives"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pg-selective-restore/internal/archive"
	"pg-selective-restore/internal/database"
	"pg-selective-restore/internal/toc"
)

// Config is the full application configuration
type Config struct {
	Database database.DatabaseConfig `mapstructure:"database" yaml:"database"`
	Filter   toc.Config              `mapstructure:"filter" yaml:"filter"`
	Restore  RestoreConfig           `mapstructure:"restore" yaml:"restore"`
	Archive  ArchiveConfig           `mapstructure:"archive" yaml:"archive"`
	Display  DisplayConfig           `mapstructure:"display" yaml:"display"`
	Log      LogConfig               `mapstructure:"log" yaml:"log"`
}

// RestoreConfig holds pg_restore invocation settings
type RestoreConfig struct {
	// RestoreCmd is the pg_restore binary; psql and pg_dump are resolved
	// as its siblings.
	RestoreCmd        string `mapstructure:"restore_cmd" yaml:"restore_cmd"`
	SingleTransaction bool   `mapstructure:"single_transaction" yaml:"single_transaction"`
	Jobs              int    `mapstructure:"jobs" yaml:"jobs"`
	VacuumAfter       bool   `mapstructure:"vacuum_after" yaml:"vacuum_after"`
	// WorkDir holds rewritten catalog files during a restore
	WorkDir string `mapstructure:"work_dir" yaml:"work_dir"`
}

// ArchiveConfig holds dump archiving settings
type ArchiveConfig struct {
	Enabled     bool                      `mapstructure:"enabled" yaml:"enabled"`
	Storage     archive.StorageConfig     `mapstructure:"storage" yaml:"storage"`
	Compression archive.CompressionConfig `mapstructure:"compression" yaml:"compression"`
	Encryption  archive.EncryptionConfig  `mapstructure:"encryption" yaml:"encryption"`
}

// DisplayConfig holds terminal output settings
type DisplayConfig struct {
	Theme       string `mapstructure:"theme" yaml:"theme"`
	Quiet       bool   `mapstructure:"quiet" yaml:"quiet"`
	AutoApprove bool   `mapstructure:"auto_approve" yaml:"auto_approve"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// SetDefaults fills in defaults for unset fields
func (c *Config) SetDefaults() {
	c.Database.SetDefaults()

	if c.Restore.RestoreCmd == "" {
		c.Restore.RestoreCmd = "/usr/bin/pg_restore"
	}
	if c.Restore.WorkDir == "" {
		c.Restore.WorkDir = os.TempDir()
	}

	if c.Display.Theme == "" {
		c.Display.Theme = "dark"
	}

	if c.Log.Level == "" {
		c.Log.Level = "normal"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}

	if c.Restore.Jobs < 0 {
		return fmt.Errorf("restore jobs must not be negative")
	}

	return c.ValidateOffline()
}

// ValidateOffline checks everything except the database connection
// settings, for commands that never open a connection (catalog dry runs,
// archive management).
func (c *Config) ValidateOffline() error {
	if err := c.Filter.Validate(); err != nil {
		return fmt.Errorf("filter configuration: %w", err)
	}

	if c.Archive.Enabled {
		if err := c.Archive.Storage.Validate(); err != nil {
			return fmt.Errorf("archive storage: %w", err)
		}
		if err := c.Archive.Compression.Validate(); err != nil {
			return fmt.Errorf("archive compression: %w", err)
		}
		if err := c.Archive.Encryption.Validate(); err != nil {
			return fmt.Errorf("archive encryption: %w", err)
		}
	}

	return nil
}

// Load builds the configuration from a viper instance that has already
// read its sources (config file, environment, bound flags)
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	// A bare integer timeout in the config file decodes as nanoseconds;
	// treat such values as seconds.
	if cfg.Database.Timeout > 0 && cfg.Database.Timeout < time.Millisecond {
		cfg.Database.Timeout = cfg.Database.Timeout * time.Second
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// Sample renders a commented starting-point configuration
func Sample() ([]byte, error) {
	cfg := Config{
		Database: database.DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Username: "postgres",
			Database: "app",
		},
		Filter: toc.Config{
			Schemas:       []string{"public"},
			SchemasNoData: []string{},
		},
		Restore: RestoreConfig{
			RestoreCmd:        "/usr/bin/pg_restore",
			SingleTransaction: true,
		},
		Archive: ArchiveConfig{
			Storage: archive.StorageConfig{
				Type:  archive.StorageTypeLocal,
				Local: &archive.LocalConfig{Directory: "/var/lib/pg-archives"},
			},
			Compression: archive.CompressionConfig{
				Algorithm: archive.AlgorithmZstd,
				Level:     3,
			},
		},
		Display: DisplayConfig{Theme: "dark"},
		Log:     LogConfig{Level: "normal", Format: "text"},
	}
	cfg.SetDefaults()

	return yaml.Marshal(&cfg)
}

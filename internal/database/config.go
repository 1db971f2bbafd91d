package database

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DatabaseConfig holds the configuration parameters for database connection
type DatabaseConfig struct {
	Host          string        `mapstructure:"host" yaml:"host"`
	Port          int           `mapstructure:"port" yaml:"port"`
	Username      string        `mapstructure:"username" yaml:"username"`
	Password      string        `mapstructure:"password" yaml:"password"`
	Database      string        `mapstructure:"database" yaml:"database"`
	MaintenanceDB string        `mapstructure:"maintenance_db" yaml:"maintenance_db"`
	SSLMode       string        `mapstructure:"sslmode" yaml:"sslmode"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Validate checks if the database configuration has all required parameters
func (dc *DatabaseConfig) Validate() error {
	var errs []error

	if dc.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}

	if dc.Port <= 0 || dc.Port > 65535 {
		errs = append(errs, errors.New("port must be between 1 and 65535"))
	}

	if dc.Username == "" {
		errs = append(errs, errors.New("username is required"))
	}

	if dc.Database == "" {
		errs = append(errs, errors.New("database name is required"))
	}

	if dc.Timeout <= 0 {
		dc.Timeout = 30 * time.Second // Set default timeout
	}

	if len(errs) > 0 {
		return fmt.Errorf("database configuration validation failed: %v", errs)
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (dc *DatabaseConfig) SetDefaults() {
	if dc.Port == 0 {
		dc.Port = 5432
	}
	if dc.MaintenanceDB == "" {
		dc.MaintenanceDB = "postgres"
	}
	if dc.SSLMode == "" {
		dc.SSLMode = "disable"
	}
	if dc.Timeout == 0 {
		dc.Timeout = 30 * time.Second
	}
}

// DSN returns the keyword/value connection string for the target database
func (dc *DatabaseConfig) DSN() string {
	return dc.dsnFor(dc.Database)
}

// MaintenanceDSN returns a connection string against the maintenance
// database, used for CREATE DATABASE and DROP DATABASE which cannot run
// against the database they operate on.
func (dc *DatabaseConfig) MaintenanceDSN() string {
	db := dc.MaintenanceDB
	if db == "" {
		db = "postgres"
	}
	return dc.dsnFor(db)
}

func (dc *DatabaseConfig) dsnFor(database string) string {
	sslMode := dc.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	parts := []string{
		fmt.Sprintf("host=%s", quoteParam(dc.Host)),
		fmt.Sprintf("port=%d", dc.Port),
		fmt.Sprintf("user=%s", quoteParam(dc.Username)),
		fmt.Sprintf("dbname=%s", quoteParam(database)),
		fmt.Sprintf("sslmode=%s", sslMode),
		fmt.Sprintf("connect_timeout=%d", int(dc.Timeout.Seconds())),
	}

	if dc.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", quoteParam(dc.Password)))
	}

	return strings.Join(parts, " ")
}

// quoteParam quotes a keyword/value parameter when it contains characters
// the connection string parser would otherwise split on.
func quoteParam(value string) string {
	if value == "" {
		return "''"
	}
	if !strings.ContainsAny(value, " '\\") {
		return value
	}

	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return "'" + escaped + "'"
}

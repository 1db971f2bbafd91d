package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pg-selective-restore/internal/errors"
	"pg-selective-restore/internal/logging"

	"github.com/lib/pq"
)

// DatabaseService defines the interface for maintenance operations around a
// restore: probing connectivity, creating and dropping the target database,
// and the post-restore housekeeping queries.
type DatabaseService interface {
	Connect(config DatabaseConfig) (*sql.DB, error)
	ConnectMaintenance(config DatabaseConfig) (*sql.DB, error)
	TryConnection(config DatabaseConfig) error
	Close(db *sql.DB) error
	GetVersion(db *sql.DB) (string, error)
	CreateDatabase(db *sql.DB, name, owner string) error
	DropDatabase(db *sql.DB, name string) error
	VacuumAnalyze(db *sql.DB) (time.Duration, error)
	DatabaseSize(db *sql.DB, name string) (int64, string, error)
	ShowSetting(db *sql.DB, name string) (string, error)
	SetSearchPath(db *sql.DB, database string, schemas []string) error
}

// Service implements the DatabaseService interface
type Service struct {
	connectionTimeout time.Duration
	maxRetries        int
	retryDelay        time.Duration
	logger            *logging.Logger
	retryHandler      *errors.RetryHandler
}

// NewService creates a new database service with default settings
func NewService() *Service {
	return &Service{
		connectionTimeout: 30 * time.Second,
		maxRetries:        3,
		retryDelay:        2 * time.Second,
		logger:            logging.NewDefaultLogger(),
		retryHandler:      errors.NewDefaultRetryHandler(),
	}
}

// NewServiceWithLogger creates a new database service with a custom logger
func NewServiceWithLogger(logger *logging.Logger) *Service {
	return &Service{
		connectionTimeout: 30 * time.Second,
		maxRetries:        3,
		retryDelay:        2 * time.Second,
		logger:            logger,
		retryHandler:      errors.NewDefaultRetryHandler(),
	}
}

// NewServiceWithOptions creates a new database service with custom options
func NewServiceWithOptions(timeout time.Duration, maxRetries int, retryDelay time.Duration) *Service {
	retryConfig := errors.RetryConfig{
		MaxAttempts: maxRetries,
		BaseDelay:   retryDelay,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
	}

	return &Service{
		connectionTimeout: timeout,
		maxRetries:        maxRetries,
		retryDelay:        retryDelay,
		logger:            logging.NewDefaultLogger(),
		retryHandler:      errors.NewRetryHandler(retryConfig),
	}
}

// Connect establishes a connection to the target database with retry logic
func (s *Service) Connect(config DatabaseConfig) (*sql.DB, error) {
	return s.connect(config, config.DSN(), config.Database)
}

// ConnectMaintenance connects to the maintenance database instead of the
// target, for CREATE DATABASE and DROP DATABASE.
func (s *Service) ConnectMaintenance(config DatabaseConfig) (*sql.DB, error) {
	return s.connect(config, config.MaintenanceDSN(), config.MaintenanceDB)
}

func (s *Service) connect(config DatabaseConfig, dsn, database string) (*sql.DB, error) {
	startTime := time.Now()

	s.logger.WithFields(map[string]interface{}{
		"host":     config.Host,
		"database": database,
		"port":     config.Port,
	}).Info("Attempting database connection")

	ctx, cancel := errors.CreateContextWithTimeout(s.connectionTimeout)
	defer cancel()

	var db *sql.DB
	err := s.retryHandler.Retry(ctx, func() error {
		var connectErr error

		db, connectErr = sql.Open("postgres", dsn)
		if connectErr != nil {
			return errors.WrapError(connectErr, "failed to open database connection")
		}

		// Set connection pool settings
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// Test the connection
		if testErr := s.TestConnection(db); testErr != nil {
			db.Close()
			return testErr
		}

		return nil
	})

	duration := time.Since(startTime)
	success := err == nil

	s.logger.LogDatabaseConnection(config.Host, database, success, duration, err)

	if err != nil {
		return nil, err
	}

	return db, nil
}

// TryConnection opens a connection, pings it, and closes it again. Used as a
// preflight probe before kicking off a long restore.
func (s *Service) TryConnection(config DatabaseConfig) error {
	db, err := s.Connect(config)
	if err != nil {
		return err
	}
	return s.Close(db)
}

// TestConnection verifies that the database connection is working
func (s *Service) TestConnection(db *sql.DB) error {
	if db == nil {
		return errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return errors.WrapError(err, "failed to ping database")
	}

	s.logger.Debug("Database connection test successful")
	return nil
}

// Close gracefully closes the database connection
func (s *Service) Close(db *sql.DB) error {
	if db == nil {
		s.logger.Debug("Database connection is nil, nothing to close")
		return nil
	}

	s.logger.Debug("Closing database connection")
	if err := db.Close(); err != nil {
		s.logger.WithField("error", err.Error()).Error("Failed to close database connection")
		return errors.WrapError(err, "failed to close database connection")
	}

	return nil
}

// GetVersion retrieves the PostgreSQL server version
func (s *Service) GetVersion(db *sql.DB) (string, error) {
	if db == nil {
		return "", errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.connectionTimeout)
	defer cancel()

	var version string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", errors.WrapError(err, "failed to get database version")
	}

	s.logger.WithField("version", version).Debug("Retrieved database version")
	return version, nil
}

// CreateDatabase creates a database, optionally owned by the given role.
// Must run on a maintenance connection; CREATE DATABASE cannot execute
// inside a transaction or against the database being created.
func (s *Service) CreateDatabase(db *sql.DB, name, owner string) error {
	if db == nil {
		return errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}
	if name == "" {
		return errors.NewAppError(errors.ErrorTypeValidation, "database name is required", nil)
	}

	stmt := fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(name))
	if owner != "" {
		stmt += fmt.Sprintf(" OWNER %s", pq.QuoteIdentifier(owner))
	}

	s.logger.WithField("database", name).Info("Creating database")
	if _, err := db.Exec(stmt); err != nil {
		return errors.WrapError(err, fmt.Sprintf("failed to create database %s", name))
	}

	return nil
}

// DropDatabase drops a database. Must run on a maintenance connection.
func (s *Service) DropDatabase(db *sql.DB, name string) error {
	if db == nil {
		return errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}
	if name == "" {
		return errors.NewAppError(errors.ErrorTypeValidation, "database name is required", nil)
	}

	stmt := fmt.Sprintf("DROP DATABASE %s", pq.QuoteIdentifier(name))

	s.logger.WithField("database", name).Info("Dropping database")
	if _, err := db.Exec(stmt); err != nil {
		return errors.WrapError(err, fmt.Sprintf("failed to drop database %s", name))
	}

	return nil
}

// VacuumAnalyze runs VACUUM ANALYZE on the connected database and reports
// how long it took.
func (s *Service) VacuumAnalyze(db *sql.DB) (time.Duration, error) {
	if db == nil {
		return 0, errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}

	s.logger.Info("Running VACUUM ANALYZE")
	startTime := time.Now()

	_, err := db.Exec("VACUUM ANALYZE")
	duration := time.Since(startTime)

	if err != nil {
		return duration, errors.WrapError(err, "vacuum analyze failed")
	}

	s.logger.WithField("duration", duration.String()).Info("VACUUM ANALYZE completed")
	return duration, nil
}

// DatabaseSize returns the size of a database in bytes together with its
// human-readable form from pg_size_pretty.
func (s *Service) DatabaseSize(db *sql.DB, name string) (int64, string, error) {
	if db == nil {
		return 0, "", errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}

	var bytes int64
	var pretty string
	query := "SELECT pg_database_size($1), pg_size_pretty(pg_database_size($1))"
	if err := db.QueryRow(query, name).Scan(&bytes, &pretty); err != nil {
		return 0, "", errors.WrapError(err, fmt.Sprintf("failed to get size of database %s", name))
	}

	return bytes, pretty, nil
}

// ShowSetting returns the value of a server configuration parameter.
func (s *Service) ShowSetting(db *sql.DB, name string) (string, error) {
	if db == nil {
		return "", errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}

	var value string
	// SHOW does not take bind parameters; current_setting does.
	if err := db.QueryRow("SELECT current_setting($1)", name).Scan(&value); err != nil {
		return "", errors.WrapError(err, fmt.Sprintf("failed to read setting %s", name))
	}

	return value, nil
}

// SetSearchPath sets the persistent search_path of a database so later
// sessions resolve unqualified names against the restored schemas.
func (s *Service) SetSearchPath(db *sql.DB, database string, schemas []string) error {
	if db == nil {
		return errors.NewAppError(errors.ErrorTypeValidation, "database connection is nil", nil)
	}
	if len(schemas) == 0 {
		return errors.NewAppError(errors.ErrorTypeValidation, "at least one schema is required", nil)
	}

	path := ""
	for i, schema := range schemas {
		if i > 0 {
			path += ", "
		}
		path += pq.QuoteIdentifier(schema)
	}

	stmt := fmt.Sprintf("ALTER DATABASE %s SET search_path TO %s",
		pq.QuoteIdentifier(database), path)

	s.logger.WithFields(map[string]interface{}{
		"database":    database,
		"search_path": path,
	}).Info("Setting database search_path")

	if _, err := db.Exec(stmt); err != nil {
		return errors.WrapError(err, fmt.Sprintf("failed to set search_path on %s", database))
	}

	return nil
}

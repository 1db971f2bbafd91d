package restore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"pg-selective-restore/internal/database"
	"pg-selective-restore/internal/errors"
	"pg-selective-restore/internal/logging"
	"pg-selective-restore/internal/pgexec"
	"pg-selective-restore/internal/toc"
)

// Options parameterizes a selective restore
type Options struct {
	Conn     pgexec.ConnArgs
	DumpFile string
	Filter   toc.Config

	SingleTransaction bool
	Jobs              int
	VacuumAfter       bool

	// WorkDir receives the rewritten catalog file; empty means os.TempDir
	WorkDir string
}

// Result summarizes a completed restore
type Result struct {
	Stats          *toc.RewriteStats
	CatalogFile    string
	Duration       time.Duration
	VacuumDuration time.Duration
}

// Service drives the restore flow: list the archive catalog, rewrite it
// through the filter rules, and feed it back to pg_restore.
type Service struct {
	toolset   *pgexec.Toolset
	dbService database.DatabaseService
	logger    *logging.Logger
}

// NewService creates a restore service
func NewService(toolset *pgexec.Toolset, dbService database.DatabaseService, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Service{
		toolset:   toolset,
		dbService: dbService,
		logger:    logger,
	}
}

// PrepareCatalog produces the rewritten catalog text for a dump file.
// With an empty filter configuration the catalog passes through unchanged.
func (s *Service) PrepareCatalog(ctx context.Context, dumpFile string, cfg toc.Config) (string, *toc.RewriteStats, error) {
	listing, err := s.toolset.ListCatalog(ctx, dumpFile)
	if err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(listing) == "" {
		return "", nil, errors.NewAppError(errors.ErrorTypeInput,
			fmt.Sprintf("catalog listing for %s is empty", dumpFile), nil)
	}

	var deps *toc.DependencyMap
	if len(cfg.Schemas) > 0 || len(cfg.SchemasNoData) > 0 {
		// Trigger dependencies only matter when schema filtering is active
		schemaDump, err := s.toolset.SchemaOnlyDump(ctx, dumpFile)
		if err != nil {
			return "", nil, err
		}
		if strings.TrimSpace(schemaDump) == "" {
			return "", nil, errors.NewAppError(errors.ErrorTypeInput,
				fmt.Sprintf("schema dump for %s is empty", dumpFile), nil)
		}
		deps = toc.ExtractDependencies(schemaDump)
	}

	filter, err := toc.NewFilter(cfg, deps)
	if err != nil {
		return "", nil, err
	}

	start := time.Now()
	catalog, stats := toc.Rewrite(listing, filter)
	s.logger.LogCatalogFilter(stats.Entries, stats.Kept, stats.Dropped, time.Since(start))

	return catalog, stats, nil
}

// Run performs the selective restore into the target database
func (s *Service) Run(ctx context.Context, opts Options) (*Result, error) {
	catalog, stats, err := s.PrepareCatalog(ctx, opts.DumpFile, opts.Filter)
	if err != nil {
		return nil, err
	}

	catalogFile, err := writeCatalogFile(opts.WorkDir, catalog)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	_, err = s.toolset.Restore(ctx, pgexec.RestoreArgs{
		Conn:              opts.Conn,
		DumpFile:          opts.DumpFile,
		CatalogFile:       catalogFile,
		SingleTransaction: opts.SingleTransaction,
		Jobs:              opts.Jobs,
	})
	duration := time.Since(start)

	s.logger.LogRestore(opts.Conn.Database, duration, err)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Stats:       stats,
		CatalogFile: catalogFile,
		Duration:    duration,
	}

	if opts.VacuumAfter {
		vacuumDuration, err := s.vacuum(opts.Conn)
		if err != nil {
			// The data is already restored; report but do not fail
			s.logger.Warnf("post-restore vacuum failed: %v", err)
		}
		result.VacuumDuration = vacuumDuration
	}

	return result, nil
}

// SourceFile loads a SQL file into the target database through psql
func (s *Service) SourceFile(ctx context.Context, conn pgexec.ConnArgs, filename string) error {
	if _, err := os.Stat(filename); err != nil {
		return errors.NewAppError(errors.ErrorTypeInput,
			fmt.Sprintf("SQL file not found: %s", filename), err)
	}

	_, err := s.toolset.SourceFile(ctx, conn, filename)
	return err
}

func (s *Service) vacuum(conn pgexec.ConnArgs) (time.Duration, error) {
	if s.dbService == nil {
		return 0, errors.NewAppError(errors.ErrorTypeValidation, "no database service configured", nil)
	}

	db, err := s.dbService.Connect(database.DatabaseConfig{
		Host:     conn.Host,
		Port:     conn.Port,
		Username: conn.User,
		Database: conn.Database,
	})
	if err != nil {
		return 0, err
	}
	defer s.dbService.Close(db)

	return s.dbService.VacuumAnalyze(db)
}

// writeCatalogFile persists the rewritten catalog where pg_restore can
// read it back through -L
func writeCatalogFile(workDir, catalog string) (string, error) {
	if workDir == "" {
		workDir = os.TempDir()
	}

	path := filepath.Join(workDir, fmt.Sprintf("catalog-%s.toc", uuid.New().String()))
	if err := os.WriteFile(path, []byte(catalog), 0o644); err != nil {
		return "", errors.WrapError(err, "failed to write rewritten catalog")
	}

	return path, nil
}

package restore

import (
	"context"
	"fmt"
	"os"
	"time"

	"pg-selective-restore/internal/archive"
	"pg-selective-restore/internal/errors"
	"pg-selective-restore/internal/logging"
	"pg-selective-restore/internal/pgexec"
)

// DumpOptions parameterizes a database dump
type DumpOptions struct {
	Conn       pgexec.ConnArgs
	OutputFile string

	// Force overwrites an existing output file
	Force bool

	// Format is the pg_dump format flag; defaults to custom format
	Format string
}

// DumpResult summarizes a completed dump
type DumpResult struct {
	OutputFile string
	Size       int64
	Duration   time.Duration
	ArchiveID  string
}

// DumpService produces dumps through pg_dump and optionally packs them
// into the archive store.
type DumpService struct {
	toolset *pgexec.Toolset
	packer  *archive.Packer
	store   archive.Store
	logger  *logging.Logger
}

// NewDumpService creates a dump service. Packer and store are optional;
// without them dumps only land on the local filesystem.
func NewDumpService(toolset *pgexec.Toolset, packer *archive.Packer, store archive.Store, logger *logging.Logger) *DumpService {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &DumpService{
		toolset: toolset,
		packer:  packer,
		store:   store,
		logger:  logger,
	}
}

// Dump runs pg_dump and writes the output file
func (d *DumpService) Dump(ctx context.Context, opts DumpOptions) (*DumpResult, error) {
	if opts.OutputFile == "" {
		return nil, errors.NewAppError(errors.ErrorTypeValidation, "dump output file is required", nil)
	}

	if _, err := os.Stat(opts.OutputFile); err == nil && !opts.Force {
		return nil, errors.NewAppError(errors.ErrorTypeValidation,
			fmt.Sprintf("output file %s already exists (use force to overwrite)", opts.OutputFile), nil)
	}

	start := time.Now()
	size, err := d.dumpToFile(ctx, opts)
	if err != nil {
		return nil, err
	}

	dumpResult := &DumpResult{
		OutputFile: opts.OutputFile,
		Size:       size,
		Duration:   time.Since(start),
	}

	if d.packer != nil && d.store != nil {
		// Packing needs the payload in memory once; read it back rather
		// than buffering it during the dump.
		data, err := os.ReadFile(opts.OutputFile)
		if err != nil {
			return nil, errors.WrapError(err, "failed to read dump file back for archiving")
		}
		archiveID, err := d.archiveDump(ctx, opts.Conn.Database, data)
		if err != nil {
			return nil, err
		}
		dumpResult.ArchiveID = archiveID
	}

	d.logger.WithFields(map[string]interface{}{
		"database": opts.Conn.Database,
		"output":   opts.OutputFile,
		"size":     dumpResult.Size,
		"duration": dumpResult.Duration.String(),
	}).Info("Dump completed")

	return dumpResult, nil
}

// dumpToFile streams pg_dump output straight into the output file so the
// dump never has to fit in memory. A failed dump leaves no partial file
// behind.
func (d *DumpService) dumpToFile(ctx context.Context, opts DumpOptions) (int64, error) {
	file, err := os.Create(opts.OutputFile)
	if err != nil {
		return 0, errors.WrapError(err, "failed to create dump file")
	}

	_, dumpErr := d.toolset.Dump(ctx, opts.Conn, opts.Format, file)
	closeErr := file.Close()

	if dumpErr != nil {
		os.Remove(opts.OutputFile)
		return 0, dumpErr
	}
	if closeErr != nil {
		os.Remove(opts.OutputFile)
		return 0, errors.WrapError(closeErr, "failed to write dump file")
	}

	info, err := os.Stat(opts.OutputFile)
	if err != nil {
		return 0, errors.WrapError(err, "failed to stat dump file")
	}
	return info.Size(), nil
}

func (d *DumpService) archiveDump(ctx context.Context, database string, data []byte) (string, error) {
	createdBy := os.Getenv("USER")

	a, stats, err := d.packer.Pack(database, createdBy, data)
	if err != nil {
		return "", err
	}

	if err := d.store.Store(ctx, a); err != nil {
		return "", err
	}

	d.logger.WithFields(map[string]interface{}{
		"archive_id":  a.ID,
		"database":    database,
		"compression": string(stats.Algorithm),
		"ratio":       fmt.Sprintf("%.2f", stats.Ratio),
	}).Info("Dump archived")

	return a.ID, nil
}

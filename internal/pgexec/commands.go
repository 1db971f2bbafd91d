package pgexec

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"pg-selective-restore/internal/logging"
)

// ConnArgs holds the connection parameters passed to the client binaries.
type ConnArgs struct {
	Host     string
	Port     int
	User     string
	Database string
}

func (c ConnArgs) flags() []string {
	return []string{
		"-h", c.Host,
		"-p", strconv.Itoa(c.Port),
		"-U", c.User,
		"-d", c.Database,
	}
}

// RestoreArgs parameterizes a pg_restore invocation against a live database.
type RestoreArgs struct {
	Conn ConnArgs

	// DumpFile is the custom-format archive to restore.
	DumpFile string

	// CatalogFile, when set, is passed with -L so pg_restore only
	// materializes the entries left uncommented in the rewritten catalog.
	CatalogFile string

	// SingleTransaction wraps the whole restore in one transaction.
	SingleTransaction bool

	// Jobs enables parallel restore when greater than one.
	Jobs int
}

// Toolset builds and runs the PostgreSQL client commands the restore flow
// needs. All binaries are derived from the configured pg_restore path, the
// same way the companion psql and pg_dump binaries ship next to it.
type Toolset struct {
	restoreCmd string
	runner     Runner
	logger     *logging.Logger
}

// NewToolset validates that the pg_restore binary exists and returns a
// toolset using it. A missing binary is reported up front rather than at
// first use.
func NewToolset(restoreCmd string, runner Runner, logger *logging.Logger) (*Toolset, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if runner == nil {
		runner = NewExecRunner(logger)
	}

	info, err := os.Stat(restoreCmd)
	if err != nil || info.IsDir() {
		return nil, &UnknownCommandError{Path: restoreCmd}
	}

	return &Toolset{
		restoreCmd: restoreCmd,
		runner:     runner,
		logger:     logger,
	}, nil
}

// RestoreCommand returns the configured pg_restore binary path.
func (t *Toolset) RestoreCommand() string {
	return t.restoreCmd
}

// psqlCmd and dumpCmd derive their sibling binaries from the pg_restore path.
func (t *Toolset) psqlCmd() string {
	return strings.Replace(t.restoreCmd, "pg_restore", "psql", 1)
}

func (t *Toolset) dumpCmd() string {
	return strings.Replace(t.restoreCmd, "pg_restore", "pg_dump", 1)
}

// ListCatalog returns the archive's table of contents (pg_restore -l).
func (t *Toolset) ListCatalog(ctx context.Context, dumpFile string) (string, error) {
	result, err := t.runner.Run(ctx, t.restoreCmd, "-l", dumpFile)
	if err != nil {
		return "", err
	}
	return result.Stdout, nil
}

// SchemaOnlyDump returns the archive's DDL-only dump text (pg_restore -s),
// the input for trigger dependency extraction.
func (t *Toolset) SchemaOnlyDump(ctx context.Context, dumpFile string) (string, error) {
	result, err := t.runner.Run(ctx, t.restoreCmd, "-s", dumpFile)
	if err != nil {
		return "", err
	}
	return result.Stdout, nil
}

// Restore materializes the archive into the target database, optionally
// driven by a rewritten catalog.
func (t *Toolset) Restore(ctx context.Context, args RestoreArgs) (*Result, error) {
	cmdArgs := make([]string, 0, 16)
	if args.SingleTransaction {
		cmdArgs = append(cmdArgs, "-1")
	}
	cmdArgs = append(cmdArgs, args.Conn.flags()...)
	if args.Jobs > 1 {
		cmdArgs = append(cmdArgs, "-j", strconv.Itoa(args.Jobs))
	}
	if args.CatalogFile != "" {
		cmdArgs = append(cmdArgs, "-L", args.CatalogFile)
	}
	cmdArgs = append(cmdArgs, args.DumpFile)

	return t.runner.Run(ctx, t.restoreCmd, cmdArgs...)
}

// Dump produces a dump of the database in the requested format, writing
// pg_dump's stdout to out. Custom-format dumps can exceed memory, so a
// stream-capable runner pipes directly into out; other runners fall back
// to buffered output.
func (t *Toolset) Dump(ctx context.Context, conn ConnArgs, format string, out io.Writer) (*Result, error) {
	if format == "" {
		format = "-Fc"
	}
	cmdArgs := []string{
		format,
		"-h", conn.Host,
		"-p", strconv.Itoa(conn.Port),
		"-U", conn.User,
		conn.Database,
	}

	if sr, ok := t.runner.(StreamRunner); ok {
		return sr.RunTo(ctx, out, t.dumpCmd(), cmdArgs...)
	}

	result, err := t.runner.Run(ctx, t.dumpCmd(), cmdArgs...)
	if err != nil {
		return result, err
	}
	if _, err := io.WriteString(out, result.Stdout); err != nil {
		return result, err
	}
	return result, nil
}

// SourceFile loads a SQL file into the given database through psql, which
// supports the extended commands pg_restore does not.
func (t *Toolset) SourceFile(ctx context.Context, conn ConnArgs, filename string) (*Result, error) {
	cmdArgs := []string{
		"-f", filename,
		"-h", conn.Host,
		"-p", strconv.Itoa(conn.Port),
		"-U", conn.User,
		conn.Database,
	}
	return t.runner.Run(ctx, t.psqlCmd(), cmdArgs...)
}

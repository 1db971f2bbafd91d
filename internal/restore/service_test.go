package restore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pg-selective-restore/internal/errors"
	"pg-selective-restore/internal/pgexec"
	"pg-selective-restore/internal/toc"
)

const sampleListing = `;
; Archive created at 2026-08-30 02:15:04 CEST
;
3; 2615 122814 SCHEMA - pgq postgres
10; 2615 122815 SCHEMA - jdb postgres
6236; 2620 15995620 TRIGGER jdb www_to_reporting_logger webadmin
2153; 0 0 ACL - pgq postgres
`

const sampleSchemaDump = `SET search_path = jdb, pg_catalog;

CREATE TRIGGER www_to_reporting_logger
    AFTER INSERT OR UPDATE ON www_events
    FOR EACH ROW
    EXECUTE PROCEDURE pgq.logutriga('reporting_queue');
`

// scriptedRunner replays canned results keyed by the first argument of
// each invocation (-l, -s, and so on).
type scriptedRunner struct {
	calls     [][]string
	responses map[string]*pgexec.Result
	errs      map[string]error
}

func (s *scriptedRunner) Run(_ context.Context, name string, args ...string) (*pgexec.Result, error) {
	s.calls = append(s.calls, append([]string{name}, args...))

	key := ""
	if len(args) > 0 {
		key = args[0]
	}
	if err, ok := s.errs[key]; ok {
		return &pgexec.Result{}, err
	}
	if result, ok := s.responses[key]; ok {
		return result, nil
	}
	return &pgexec.Result{}, nil
}

func newTestService(t *testing.T, runner *scriptedRunner) *Service {
	t.Helper()

	dir := t.TempDir()
	restorePath := filepath.Join(dir, "pg_restore")
	require.NoError(t, os.WriteFile(restorePath, []byte("#!/bin/sh\n"), 0o755))

	toolset, err := pgexec.NewToolset(restorePath, runner, nil)
	require.NoError(t, err)

	return NewService(toolset, nil, nil)
}

func TestPrepareCatalog_NoFilterPassesThrough(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]*pgexec.Result{
		"-l": {Stdout: sampleListing},
	}}
	service := newTestService(t, runner)

	catalog, stats, err := service.PrepareCatalog(context.Background(), "/dumps/app.dump", toc.Config{})
	require.NoError(t, err)

	assert.Equal(t, sampleListing, catalog)
	assert.Equal(t, 4, stats.Entries)
	assert.Zero(t, stats.Dropped)

	// No schema dump fetched when schema filtering is inactive
	for _, call := range runner.calls {
		assert.NotEqual(t, "-s", call[1])
	}
}

func TestPrepareCatalog_SchemaFilterDropsEntries(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]*pgexec.Result{
		"-l": {Stdout: sampleListing},
		"-s": {Stdout: sampleSchemaDump},
	}}
	service := newTestService(t, runner)

	catalog, stats, err := service.PrepareCatalog(context.Background(), "/dumps/app.dump",
		toc.Config{Schemas: []string{"jdb"}})
	require.NoError(t, err)

	assert.Contains(t, catalog, ";3; 2615 122814 SCHEMA - pgq postgres")
	assert.Contains(t, catalog, "\n10; 2615 122815 SCHEMA - jdb postgres")
	// Trigger calls a pgq procedure, so it goes too
	assert.Contains(t, catalog, ";6236; 2620 15995620 TRIGGER jdb www_to_reporting_logger webadmin")
	assert.Contains(t, catalog, ";2153; 0 0 ACL - pgq postgres")

	assert.Equal(t, 4, stats.Entries)
	assert.Equal(t, 1, stats.Kept)
	assert.Equal(t, 3, stats.Dropped)
}

func TestPrepareCatalog_EmptyListingIsInputError(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]*pgexec.Result{
		"-l": {Stdout: "\n"},
	}}
	service := newTestService(t, runner)

	_, _, err := service.PrepareCatalog(context.Background(), "/dumps/app.dump", toc.Config{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeInput, errors.GetErrorType(err))
}

func TestPrepareCatalog_EmptySchemaDumpIsInputError(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]*pgexec.Result{
		"-l": {Stdout: sampleListing},
		"-s": {Stdout: ""},
	}}
	service := newTestService(t, runner)

	_, _, err := service.PrepareCatalog(context.Background(), "/dumps/app.dump",
		toc.Config{Schemas: []string{"jdb"}})
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeInput, errors.GetErrorType(err))
}

func TestRun_WritesCatalogAndRestores(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]*pgexec.Result{
		"-l": {Stdout: sampleListing},
		"-s": {Stdout: sampleSchemaDump},
	}}
	service := newTestService(t, runner)

	workDir := t.TempDir()
	result, err := service.Run(context.Background(), Options{
		Conn:              pgexec.ConnArgs{Host: "db1", Port: 5432, User: "staging", Database: "app"},
		DumpFile:          "/dumps/app.dump",
		Filter:            toc.Config{Schemas: []string{"jdb"}},
		SingleTransaction: true,
		WorkDir:           workDir,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, strings.HasPrefix(filepath.Base(result.CatalogFile), "catalog-"))
	assert.Equal(t, workDir, filepath.Dir(result.CatalogFile))

	written, err := os.ReadFile(result.CatalogFile)
	require.NoError(t, err)
	assert.Contains(t, string(written), ";6236;")

	// Last invocation is the actual restore with the rewritten catalog
	last := runner.calls[len(runner.calls)-1]
	joined := strings.Join(last, " ")
	assert.Contains(t, joined, "-1")
	assert.Contains(t, joined, "-L "+result.CatalogFile)
	assert.Contains(t, joined, "-d app")
}

func TestRun_RestoreFailurePropagates(t *testing.T) {
	runner := &scriptedRunner{
		responses: map[string]*pgexec.Result{
			"-l": {Stdout: sampleListing},
		},
		errs: map[string]error{
			"-h": &pgexec.CommandError{Command: "pg_restore", ExitCode: 1, Detail: "connection refused"},
		},
	}
	service := newTestService(t, runner)

	_, err := service.Run(context.Background(), Options{
		Conn:     pgexec.ConnArgs{Host: "db1", Port: 5432, User: "staging", Database: "app"},
		DumpFile: "/dumps/app.dump",
		WorkDir:  t.TempDir(),
	})
	require.Error(t, err)
	assert.True(t, pgexec.IsCommandFailure(err))
}

func TestSourceFile_MissingFile(t *testing.T) {
	service := newTestService(t, &scriptedRunner{})

	err := service.SourceFile(context.Background(),
		pgexec.ConnArgs{Host: "db1", Port: 5432, User: "staging", Database: "app"},
		"/nonexistent/fix.sql")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeInput, errors.GetErrorType(err))
}

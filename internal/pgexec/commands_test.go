package pgexec

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner records invocations and replays canned results.
type stubRunner struct {
	calls  [][]string
	result *Result
	err    error
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) (*Result, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	if s.result == nil {
		return &Result{}, s.err
	}
	return s.result, s.err
}

func fakeBinary(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func TestNewToolset_MissingBinary(t *testing.T) {
	_, err := NewToolset("/nonexistent/pg_restore", &stubRunner{}, nil)

	require.Error(t, err)
	var unknownErr *UnknownCommandError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "/nonexistent/pg_restore", unknownErr.Path)
}

func TestToolset_ListCatalog(t *testing.T) {
	runner := &stubRunner{result: &Result{Stdout: "3; 2615 122814 SCHEMA - pgq postgres\n"}}
	ts, err := NewToolset(fakeBinary(t, "pg_restore"), runner, nil)
	require.NoError(t, err)

	out, err := ts.ListCatalog(context.Background(), "/dumps/db.dump")
	require.NoError(t, err)
	assert.Contains(t, out, "SCHEMA - pgq")

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{ts.RestoreCommand(), "-l", "/dumps/db.dump"}, runner.calls[0])
}

func TestToolset_SchemaOnlyDump(t *testing.T) {
	runner := &stubRunner{result: &Result{Stdout: "CREATE TRIGGER t ...;"}}
	ts, err := NewToolset(fakeBinary(t, "pg_restore"), runner, nil)
	require.NoError(t, err)

	_, err = ts.SchemaOnlyDump(context.Background(), "/dumps/db.dump")
	require.NoError(t, err)
	assert.Equal(t, "-s", runner.calls[0][1])
}

func TestToolset_RestoreArgs(t *testing.T) {
	runner := &stubRunner{}
	ts, err := NewToolset(fakeBinary(t, "pg_restore"), runner, nil)
	require.NoError(t, err)

	_, err = ts.Restore(context.Background(), RestoreArgs{
		Conn:              ConnArgs{Host: "db1", Port: 5432, User: "staging", Database: "app"},
		DumpFile:          "/dumps/app.dump",
		CatalogFile:       "/tmp/catalog.toc",
		SingleTransaction: true,
		Jobs:              4,
	})
	require.NoError(t, err)

	call := strings.Join(runner.calls[0], " ")
	assert.Contains(t, call, "-1 -h db1 -p 5432 -U staging -d app")
	assert.Contains(t, call, "-j 4")
	assert.Contains(t, call, "-L /tmp/catalog.toc")
	assert.True(t, strings.HasSuffix(call, "/dumps/app.dump"))
}

func TestToolset_RestoreOmitsOptionalArgs(t *testing.T) {
	runner := &stubRunner{}
	ts, err := NewToolset(fakeBinary(t, "pg_restore"), runner, nil)
	require.NoError(t, err)

	_, err = ts.Restore(context.Background(), RestoreArgs{
		Conn:     ConnArgs{Host: "db1", Port: 5432, User: "staging", Database: "app"},
		DumpFile: "/dumps/app.dump",
	})
	require.NoError(t, err)

	call := strings.Join(runner.calls[0], " ")
	assert.NotContains(t, call, "-1")
	assert.NotContains(t, call, "-j")
	assert.NotContains(t, call, "-L")
}

func TestToolset_SiblingBinaries(t *testing.T) {
	dir := t.TempDir()
	restorePath := filepath.Join(dir, "pg_restore")
	require.NoError(t, os.WriteFile(restorePath, []byte("#!/bin/sh\n"), 0o755))

	runner := &stubRunner{}
	ts, err := NewToolset(restorePath, runner, nil)
	require.NoError(t, err)

	_, err = ts.Dump(context.Background(), ConnArgs{Host: "h", Port: 5432, User: "u", Database: "d"}, "", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pg_dump"), runner.calls[0][0])
	assert.Equal(t, "-Fc", runner.calls[0][1])

	_, err = ts.SourceFile(context.Background(), ConnArgs{Host: "h", Port: 5432, User: "u", Database: "d"}, "/tmp/fix.sql")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "psql"), runner.calls[1][0])
	assert.Equal(t, []string{"-f", "/tmp/fix.sql"}, runner.calls[1][1:3])
}

// streamingStubRunner additionally records stream targets, standing in for
// a runner that pipes stdout straight to the writer.
type streamingStubRunner struct {
	stubRunner
	streamed string
	payload  string
}

func (s *streamingStubRunner) RunTo(_ context.Context, w io.Writer, name string, args ...string) (*Result, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	if _, err := io.WriteString(w, s.payload); err != nil {
		return nil, err
	}
	s.streamed = s.payload
	return &Result{}, s.err
}

func TestToolset_DumpStreamsToWriter(t *testing.T) {
	runner := &streamingStubRunner{payload: "PGDMP streamed bytes"}
	ts, err := NewToolset(fakeBinary(t, "pg_restore"), runner, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	result, err := ts.Dump(context.Background(), ConnArgs{Host: "h", Port: 5432, User: "u", Database: "d"}, "", &out)
	require.NoError(t, err)

	// The stream path is taken: the payload reaches the writer without
	// passing through Result.Stdout.
	assert.Equal(t, "PGDMP streamed bytes", out.String())
	assert.Empty(t, result.Stdout)
	assert.Equal(t, "PGDMP streamed bytes", runner.streamed)
}

func TestToolset_DumpBufferedFallbackWritesOut(t *testing.T) {
	runner := &stubRunner{result: &Result{Stdout: "PGDMP buffered"}}
	ts, err := NewToolset(fakeBinary(t, "pg_restore"), runner, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = ts.Dump(context.Background(), ConnArgs{Host: "h", Port: 5432, User: "u", Database: "d"}, "", &out)
	require.NoError(t, err)
	assert.Equal(t, "PGDMP buffered", out.String())
}

func TestExecRunner_CapturesOutputAndExitCode(t *testing.T) {
	runner := NewExecRunner(nil)

	result, err := runner.Run(context.Background(), "sh", "-c", "echo out; echo err >&2")
	require.NoError(t, err)
	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
	assert.Zero(t, result.ExitCode)
}

func TestExecRunner_RunToStreamsStdout(t *testing.T) {
	runner := NewExecRunner(nil)

	var out bytes.Buffer
	result, err := runner.RunTo(context.Background(), &out, "sh", "-c", "echo streamed; echo err >&2")
	require.NoError(t, err)
	assert.Equal(t, "streamed\n", out.String())
	assert.Empty(t, result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	runner := NewExecRunner(nil)

	result, err := runner.Run(context.Background(), "sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 3, result.ExitCode)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, "broken", cmdErr.Detail)
	assert.True(t, IsCommandFailure(err))
}

func TestExecRunner_StdoutFallbackDetail(t *testing.T) {
	runner := NewExecRunner(nil)

	_, err := runner.Run(context.Background(), "sh", "-c", "echo only stdout; exit 1")
	require.Error(t, err)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "only stdout", cmdErr.Detail)
}

func TestExecRunner_MissingBinary(t *testing.T) {
	runner := NewExecRunner(nil)

	_, err := runner.Run(context.Background(), "/nonexistent/binary")
	require.Error(t, err)
	assert.False(t, IsCommandFailure(err))
}

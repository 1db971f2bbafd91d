package pgexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"pg-selective-restore/internal/logging"
)

// Result captures one finished command invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes an external command and returns its captured output and
// exit status. The interface exists so orchestration code can be tested
// without the PostgreSQL client binaries installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// StreamRunner is implemented by runners that can stream a command's
// stdout to a writer instead of buffering it, for outputs that may not
// fit in memory.
type StreamRunner interface {
	RunTo(ctx context.Context, w io.Writer, name string, args ...string) (*Result, error)
}

// CommandError reports a command that exited with an unexpected status.
type CommandError struct {
	Command  string
	ExitCode int
	Detail   string
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command failed [exit %d]: %s\nDetail: %s", e.ExitCode, e.Command, e.Detail)
}

// UnknownCommandError reports a client binary that does not exist on disk.
type UnknownCommandError struct {
	Path string
}

// Error implements the error interface.
func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("no such command: %s", e.Path)
}

// IsCommandFailure reports whether err represents a command that ran but
// exited non-zero, as opposed to a command that could not be started or
// produced unusable output.
func IsCommandFailure(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr)
}

// ExecRunner runs commands through os/exec, logging each invocation.
type ExecRunner struct {
	logger *logging.Logger
}

// NewExecRunner creates a runner backed by os/exec.
func NewExecRunner(logger *logging.Logger) *ExecRunner {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &ExecRunner{logger: logger}
}

// Run executes the command, capturing stdout and stderr separately. A
// non-zero exit status comes back as a CommandError whose detail carries
// stderr, falling back to stdout when stderr is empty.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	display := name + " " + strings.Join(args, " ")
	r.logger.WithField("command", display).Debug("Running external command")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			r.logger.LogCommandExecution(display, -1, duration, err)
			return nil, fmt.Errorf("failed to start command %s: %w", name, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	r.logger.LogCommandExecution(display, result.ExitCode, duration, err)

	if result.ExitCode != 0 {
		detail := strings.TrimSpace(result.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(result.Stdout)
		}
		return result, &CommandError{
			Command:  display,
			ExitCode: result.ExitCode,
			Detail:   detail,
		}
	}

	return result, nil
}

// RunTo executes the command with stdout streamed to w; only stderr is
// buffered. Result.Stdout stays empty, and error detail comes from stderr
// alone since stdout has already left the process.
func (r *ExecRunner) RunTo(ctx context.Context, w io.Writer, name string, args ...string) (*Result, error) {
	display := name + " " + strings.Join(args, " ")
	r.logger.WithField("command", display).Debug("Running external command (streaming)")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = w
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &Result{
		Stderr:   stderr.String(),
		Duration: duration,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			r.logger.LogCommandExecution(display, -1, duration, err)
			return nil, fmt.Errorf("failed to start command %s: %w", name, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	r.logger.LogCommandExecution(display, result.ExitCode, duration, err)

	if result.ExitCode != 0 {
		return result, &CommandError{
			Command:  display,
			ExitCode: result.ExitCode,
			Detail:   strings.TrimSpace(result.Stderr),
		}
	}

	return result, nil
}

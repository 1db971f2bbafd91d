package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "error without cause",
			err:      NewAppError(ErrorTypeConnection, "connection failed", nil),
			expected: "connection: connection failed",
		},
		{
			name:     "error with cause",
			err:      NewAppError(ErrorTypeSQL, "query failed", errors.New("syntax error")),
			expected: "sql: query failed (caused by: syntax error)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_WithContext(t *testing.T) {
	err := NewAppError(ErrorTypeCommand, "command failed", nil).
		WithContext("exit_code", 1).
		WithContext("command", "pg_restore -l db.dump")

	assert.Equal(t, 1, err.Context["exit_code"])
	assert.Equal(t, "pg_restore -l db.dump", err.Context["command"])
}

func TestErrorClassifier_PostgresErrors(t *testing.T) {
	classifier := NewErrorClassifier()

	tests := []struct {
		name         string
		code         pq.ErrorCode
		expectedType ErrorType
		recoverable  bool
	}{
		{"invalid password", "28P01", ErrorTypePermission, false},
		{"unknown database", "3D000", ErrorTypeValidation, false},
		{"duplicate database", "42P04", ErrorTypeValidation, false},
		{"undefined table", "42P01", ErrorTypeSQL, false},
		{"invalid schema", "3F000", ErrorTypeSQL, false},
		{"object in use", "55006", ErrorTypeConnection, true},
		{"too many connections", "53300", ErrorTypeConnection, true},
		{"server starting up", "57P03", ErrorTypeConnection, true},
		{"unmapped sqlstate", "22012", ErrorTypeSQL, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pqErr := &pq.Error{Code: tt.code, Message: tt.name}
			appErr := classifier.ClassifyError(pqErr)

			require.NotNil(t, appErr)
			assert.Equal(t, tt.expectedType, appErr.Type)
			assert.Equal(t, tt.recoverable, appErr.IsRecoverable())
			assert.Equal(t, string(tt.code), appErr.Context["sqlstate"])
		})
	}
}

func TestErrorClassifier_SQLDriverErrors(t *testing.T) {
	classifier := NewErrorClassifier()

	appErr := classifier.ClassifyError(sql.ErrConnDone)
	assert.Equal(t, ErrorTypeConnection, appErr.Type)
	assert.True(t, appErr.IsRecoverable())

	appErr = classifier.ClassifyError(sql.ErrNoRows)
	assert.Equal(t, ErrorTypeValidation, appErr.Type)
}

func TestErrorClassifier_ContextErrors(t *testing.T) {
	classifier := NewErrorClassifier()

	appErr := classifier.ClassifyError(context.DeadlineExceeded)
	assert.Equal(t, ErrorTypeTimeout, appErr.Type)
	assert.True(t, appErr.IsRecoverable())

	appErr = classifier.ClassifyError(context.Canceled)
	assert.Equal(t, ErrorTypeInterruption, appErr.Type)
	assert.False(t, appErr.IsRecoverable())
}

func TestErrorClassifier_FileSystemErrors(t *testing.T) {
	classifier := NewErrorClassifier()

	pathErr := &os.PathError{Op: "open", Path: "/missing/db.dump", Err: syscall.ENOENT}
	appErr := classifier.ClassifyError(pathErr)
	assert.Equal(t, ErrorTypeInput, appErr.Type)
	assert.Contains(t, appErr.Message, "/missing/db.dump")

	pathErr = &os.PathError{Op: "open", Path: "/protected", Err: syscall.EACCES}
	appErr = classifier.ClassifyError(pathErr)
	assert.Equal(t, ErrorTypePermission, appErr.Type)
}

func TestErrorClassifier_PassesThroughAppError(t *testing.T) {
	classifier := NewErrorClassifier()
	original := NewAppError(ErrorTypeInput, "catalog listing was empty", nil)

	classified := classifier.ClassifyError(fmt.Errorf("wrapped: %w", original))
	assert.Same(t, original, classified)
}

func TestRetryHandler_SucceedsAfterRetries(t *testing.T) {
	handler := NewRetryHandler(RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    10 * time.Millisecond,
		Multiplier:  2.0,
	})

	attempts := 0
	err := handler.Retry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return NewRecoverableError(ErrorTypeConnection, "transient", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryHandler_StopsOnNonRecoverable(t *testing.T) {
	handler := NewDefaultRetryHandler()

	attempts := 0
	err := handler.Retry(context.Background(), func() error {
		attempts++
		return NewAppError(ErrorTypeValidation, "bad input", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, ErrorTypeValidation, GetErrorType(err))
}

func TestRetryHandler_ExhaustsAttempts(t *testing.T) {
	handler := NewRetryHandler(RetryConfig{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2.0,
	})

	attempts := 0
	err := handler.Retry(context.Background(), func() error {
		attempts++
		return NewRecoverableError(ErrorTypeConnection, "still down", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 2, appErr.Context["attempts"])
}

func TestIsRecoverableError(t *testing.T) {
	assert.True(t, IsRecoverableError(NewRecoverableError(ErrorTypeTimeout, "slow", nil)))
	assert.False(t, IsRecoverableError(NewAppError(ErrorTypeInput, "missing", nil)))
	assert.False(t, IsRecoverableError(errors.New("plain error")))
}

func TestFormatUserError(t *testing.T) {
	appErr := NewAppError(ErrorTypePermission, "internal detail", nil)
	appErr.UserMessage = "Check your credentials"
	assert.Equal(t, "Check your credentials", FormatUserError(appErr))

	assert.Equal(t, "", FormatUserError(nil))
	assert.Contains(t, FormatUserError(errors.New("raw")), "unexpected error")
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ignored"))

	inner := NewAppError(ErrorTypeCommand, "exit 1", nil)
	wrapped := WrapError(inner, "restore failed")

	var appErr *AppError
	require.ErrorAs(t, wrapped, &appErr)
	assert.Equal(t, ErrorTypeCommand, appErr.Type)
	assert.Equal(t, "restore failed", appErr.Message)
	assert.ErrorIs(t, wrapped, inner)
}

func TestGracefulShutdown_RunsFuncsInReverseOrder(t *testing.T) {
	handler := NewGracefulShutdownHandler()

	var order []int
	handler.RegisterShutdownFunc(func() error {
		order = append(order, 1)
		return nil
	})
	handler.RegisterShutdownFunc(func() error {
		order = append(order, 2)
		return nil
	})

	handler.Start()
	handler.signalChan <- syscall.SIGINT
	handler.WaitForShutdown()

	assert.Equal(t, []int{2, 1}, order)
}

func TestGracefulShutdown_StopDoesNotTriggerFuncs(t *testing.T) {
	handler := NewGracefulShutdownHandler()

	triggered := false
	handler.RegisterShutdownFunc(func() error {
		triggered = true
		return nil
	})

	handler.Start()
	handler.Stop()

	select {
	case <-handler.done:
		t.Fatal("shutdown ran after Stop")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, triggered)
}

package archive

import (
	"fmt"
)

// ArchiveError represents errors that occur while packing, storing, or
// retrieving dump archives
type ArchiveError struct {
	Type    ArchiveErrorType       `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *ArchiveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *ArchiveError) Unwrap() error {
	return e.Cause
}

// ArchiveErrorType represents different types of archive errors
type ArchiveErrorType string

const (
	ArchiveErrorTypeStorage     ArchiveErrorType = "STORAGE_ERROR"
	ArchiveErrorTypeValidation  ArchiveErrorType = "VALIDATION_ERROR"
	ArchiveErrorTypeCompression ArchiveErrorType = "COMPRESSION_ERROR"
	ArchiveErrorTypeEncryption  ArchiveErrorType = "ENCRYPTION_ERROR"
	ArchiveErrorTypeCorruption  ArchiveErrorType = "CORRUPTION_ERROR"
	ArchiveErrorTypeNotFound    ArchiveErrorType = "NOT_FOUND_ERROR"
	ArchiveErrorTypeConflict    ArchiveErrorType = "CONFLICT_ERROR"
)

// NewArchiveError creates a new ArchiveError
func NewArchiveError(errorType ArchiveErrorType, message string, cause error) *ArchiveError {
	return &ArchiveError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *ArchiveError) WithContext(key string, value interface{}) *ArchiveError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors
func NewStorageError(message string, cause error) *ArchiveError {
	return NewArchiveError(ArchiveErrorTypeStorage, message, cause)
}

func NewValidationError(message string, cause error) *ArchiveError {
	return NewArchiveError(ArchiveErrorTypeValidation, message, cause)
}

func NewCompressionError(message string, cause error) *ArchiveError {
	return NewArchiveError(ArchiveErrorTypeCompression, message, cause)
}

func NewEncryptionError(message string, cause error) *ArchiveError {
	return NewArchiveError(ArchiveErrorTypeEncryption, message, cause)
}

func NewCorruptionError(message string, cause error) *ArchiveError {
	return NewArchiveError(ArchiveErrorTypeCorruption, message, cause)
}

func NewNotFoundError(message string, cause error) *ArchiveError {
	return NewArchiveError(ArchiveErrorTypeNotFound, message, cause)
}

func NewConflictError(message string, cause error) *ArchiveError {
	return NewArchiveError(ArchiveErrorTypeConflict, message, cause)
}

// IsNotFound reports whether the error marks a missing archive
func IsNotFound(err error) bool {
	if archiveErr, ok := err.(*ArchiveError); ok {
		return archiveErr.Type == ArchiveErrorTypeNotFound
	}
	return false
}

// IsRetryable determines if an error is retryable
func IsRetryable(err error) bool {
	if archiveErr, ok := err.(*ArchiveError); ok {
		return archiveErr.Type == ArchiveErrorTypeStorage
	}
	return false
}

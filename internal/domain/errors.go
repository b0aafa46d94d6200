package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals a malformed request rejected before any external call.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrRetryable signals a transient external failure worth another attempt.
	ErrRetryable = errors.New("retryable error")
	// ErrTerminal signals a permanent external failure.
	ErrTerminal = errors.New("terminal error")
	// ErrCancelled signals a target left unresolved when the batch was aborted.
	ErrCancelled = errors.New("cancelled")
	// ErrNothingToRetry signals a retry request for a batch without failures.
	ErrNothingToRetry = fmt.Errorf("nothing to retry: %w", ErrValidation)
	// ErrNotConfigured signals a missing external integration.
	ErrNotConfigured = errors.New("not configured")
)

// ValidationError carries the offending input name along with ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for the given input.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

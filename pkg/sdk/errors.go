package batchsync

import (
	"github.com/westmoney/batchsync/internal/domain"
	"github.com/westmoney/batchsync/internal/domain/batch"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation     = domain.ErrValidation
	ErrNotFound       = domain.ErrNotFound
	ErrNothingToRetry = domain.ErrNothingToRetry
	ErrNotConfigured  = domain.ErrNotConfigured
	ErrRetryable      = domain.ErrRetryable
	ErrTerminal       = domain.ErrTerminal
)

// Retryable marks an ExternalClient failure as transient; the target is retried.
func Retryable(message string, cause error) error {
	return batch.Retryable(message, cause)
}

// Terminal marks an ExternalClient failure as permanent; the target fails at once.
// Unmarked errors are treated as terminal too.
func Terminal(message string, cause error) error {
	return batch.Terminal(message, cause)
}

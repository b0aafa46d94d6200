package batch

import (
	"errors"
	"fmt"

	"github.com/westmoney/batchsync/internal/domain"
)

// ErrorKind classifies why a target failed.
type ErrorKind string

// Error kinds.
const (
	KindRetryable ErrorKind = "retryable"
	KindTerminal  ErrorKind = "terminal"
	KindCancelled ErrorKind = "cancelled"
)

// Valid reports whether k is a known kind.
func (k ErrorKind) Valid() bool {
	switch k {
	case KindRetryable, KindTerminal, KindCancelled:
		return true
	}
	return false
}

// ApplyError is a classified failure returned by an external client.
type ApplyError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ApplyError) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *ApplyError) Unwrap() []error {
	errs := []error{kindSentinel(e.Kind)}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Retryable creates a transient ApplyError.
func Retryable(message string, cause error) *ApplyError {
	return &ApplyError{Kind: KindRetryable, Message: message, Err: cause}
}

// Terminal creates a permanent ApplyError.
func Terminal(message string, cause error) *ApplyError {
	return &ApplyError{Kind: KindTerminal, Message: message, Err: cause}
}

// Classify maps an error returned by a client to a kind and a message.
// Errors carrying no classification are terminal.
func Classify(err error) (ErrorKind, string) {
	var ae *ApplyError
	if errors.As(err, &ae) {
		msg := ae.Message
		if msg == "" && ae.Err != nil {
			msg = ae.Err.Error()
		}
		if !ae.Kind.Valid() {
			return KindTerminal, msg
		}
		return ae.Kind, msg
	}
	switch {
	case errors.Is(err, domain.ErrCancelled):
		return KindCancelled, err.Error()
	case errors.Is(err, domain.ErrRetryable):
		return KindRetryable, err.Error()
	default:
		return KindTerminal, err.Error()
	}
}

func kindSentinel(k ErrorKind) error {
	switch k {
	case KindRetryable:
		return domain.ErrRetryable
	case KindCancelled:
		return domain.ErrCancelled
	default:
		return domain.ErrTerminal
	}
}

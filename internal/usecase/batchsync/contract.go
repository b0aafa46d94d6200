package batchsync

import (
	"context"

	"github.com/westmoney/batchsync/internal/domain/batch/field"
)

// Client applies a single field change to one external record.
// A nil error is an acknowledgement; failures should be *batch.ApplyError
// so the engine can tell retryable from terminal.
type Client interface {
	Apply(ctx context.Context, targetID string, f field.Field, v field.Value) error
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, targetID string, f field.Field, v field.Value) error

// Apply calls fn.
func (fn ClientFunc) Apply(ctx context.Context, targetID string, f field.Field, v field.Value) error {
	return fn(ctx, targetID, f, v)
}

package batchsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/westmoney/batchsync/internal/domain"
	"github.com/westmoney/batchsync/internal/domain/batch"
	"github.com/westmoney/batchsync/internal/domain/batch/field"
	"github.com/westmoney/batchsync/internal/logger"
)

// Engine applies one field change to many external records with bounded
// concurrency, retries and per-target accounting.
type Engine struct {
	client Client
	policy RetryPolicy
	logger *zap.Logger
	now    func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine bound to a default client and policy.
func New(client Client, policy RetryPolicy, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{client: client, policy: policy, logger: logger, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Policy returns the default policy of the engine.
func (e *Engine) Policy() RetryPolicy { return e.policy }

// Run executes req with the engine's client and policy.
func (e *Engine) Run(ctx context.Context, req batch.Request) (batch.Result, error) {
	return e.RunWith(ctx, req, e.client, e.policy)
}

// RunWith executes req against client under policy.
//
// The only error returned is a validation error, raised before any call is
// made. Every other outcome (external failures, cancellation, the batch
// deadline) is reported per target inside the Result, which always accounts
// for each target exactly once.
func (e *Engine) RunWith(
	ctx context.Context, req batch.Request, client Client, policy RetryPolicy,
) (batch.Result, error) {
	if err := req.Validate(); err != nil {
		return batch.Result{}, err
	}
	if client == nil {
		return batch.Result{}, domain.NewValidationError("client", "no client configured")
	}
	if err := policy.Validate(); err != nil {
		return batch.Result{}, err
	}

	if policy.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, policy.BatchTimeout)
		defer cancel()
	}

	log := logger.FromContextOr(ctx, e.logger)
	rec := batch.NewRecorder(req, e.now())
	log.Info("Batch started",
		zap.String("field", req.Field().String()),
		zap.Int("targets", req.Len()),
		zap.Int("max_attempts", policy.MaxAttempts),
		zap.Int("concurrency", policy.MaxConcurrency),
	)

	g := new(errgroup.Group)
	g.SetLimit(policy.MaxConcurrency)
	for i := range rec.Len() {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			e.runTarget(ctx, log, rec, i, client, policy, req.Field(), req.Value())
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	// Targets never dispatched share the reason of the in-flight ones.
	if ctx.Err() != nil {
		reason := cancelMessage(ctx)
		for i := range rec.Len() {
			if !rec.Resolved(i) {
				rec.Fail(i, batch.KindCancelled, reason, 0)
			}
		}
	}

	res := rec.Finish(e.now())
	ObserveResult(res)
	log.Info("Batch finished",
		zap.String("field", res.Field().String()),
		zap.Int("total", res.Total()),
		zap.Int("success", res.Succeeded()),
		zap.Int("failed", res.FailedCount()),
		zap.Duration("duration", res.Duration()),
		zap.Bool("cancelled", ctx.Err() != nil),
	)
	return res, nil
}

// runTarget drives one target to a terminal state and records it.
func (e *Engine) runTarget(
	ctx context.Context, log *zap.Logger, rec *batch.Recorder, i int,
	client Client, policy RetryPolicy, f field.Field, v field.Value,
) {
	t := tracker{id: rec.Target(i), state: batch.StatePending, logger: log}
	d := policy.newDelays()

	fail := func(kind batch.ErrorKind, msg string, attempts int) {
		t.move(batch.StateFailed)
		rec.Fail(i, kind, msg, attempts)
	}

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			fail(batch.KindCancelled, cancelMessage(ctx), attempt-1)
			return
		}

		t.move(batch.StateAttempting)
		err := callWithTimeout(ctx, client, policy.CallTimeout, t.id, f, v)
		if err == nil {
			t.move(batch.StateSucceeded)
			rec.Succeed(i, attempt)
			return
		}
		if ctx.Err() != nil {
			fail(batch.KindCancelled, cancelMessage(ctx), attempt)
			return
		}

		kind, msg := batch.Classify(err)
		if kind != batch.KindRetryable {
			fail(kind, msg, attempt)
			return
		}
		if attempt >= policy.MaxAttempts {
			fail(batch.KindRetryable, fmt.Sprintf("%s (gave up after %d attempts)", msg, attempt), attempt)
			return
		}

		t.move(batch.StateRetrying)
		wait := d.next()
		log.Debug("Retrying target",
			zap.String("target", t.id),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.String("reason", msg),
		)
		if !sleep(ctx, wait) {
			fail(batch.KindCancelled, cancelMessage(ctx), attempt)
			return
		}
	}
}

type callResult struct{ err error }

// callWithTimeout bounds a single Apply by timeout and by ctx even when the
// client ignores its context.
func callWithTimeout(
	ctx context.Context, client Client, timeout time.Duration,
	id string, f field.Field, v field.Value,
) error {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan callResult, 1)
	go func() {
		done <- callResult{err: client.Apply(callCtx, id, f, v)}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return batch.Retryable(fmt.Sprintf("call timed out after %s", timeout), r.err)
		}
		return r.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return &batch.ApplyError{Kind: batch.KindCancelled, Message: cancelMessage(ctx), Err: ctx.Err()}
		}
		return batch.Retryable(fmt.Sprintf("call timed out after %s", timeout), callCtx.Err())
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func cancelMessage(ctx context.Context) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "batch deadline exceeded"
	}
	return "batch cancelled"
}

// tracker follows the state of one target and flags illegal moves.
type tracker struct {
	id     string
	state  batch.State
	logger *zap.Logger
}

func (t *tracker) move(next batch.State) {
	if !t.state.CanTransition(next) {
		t.logger.Warn("Illegal target transition",
			zap.String("target", t.id),
			zap.String("from", string(t.state)),
			zap.String("to", string(next)),
		)
	}
	t.logger.Debug("Target transition",
		zap.String("target", t.id),
		zap.String("from", string(t.state)),
		zap.String("to", string(next)),
	)
	t.state = next
}

package batchsync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/westmoney/batchsync/internal/domain/batch"
	"github.com/westmoney/batchsync/internal/domain/batch/field"
	"github.com/westmoney/batchsync/internal/metrics"
)

// InstrumentedClient wraps Client with per-call metrics and logging.
// Transport-level details (status codes, rate limiting) stay in the client.
type InstrumentedClient struct {
	inner  Client
	system string
	logger *zap.Logger
}

// NewInstrumentedClient wraps a client with observability.
func NewInstrumentedClient(inner Client, system string, logger *zap.Logger) *InstrumentedClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedClient{inner: inner, system: system, logger: logger}
}

// Apply delegates to the inner client and records the outcome.
func (c *InstrumentedClient) Apply(ctx context.Context, targetID string, f field.Field, v field.Value) error {
	start := time.Now()
	err := c.inner.Apply(ctx, targetID, f, v)
	duration := time.Since(start)

	metrics.ApplyDuration.WithLabelValues(f.String()).Observe(duration.Seconds())

	if err != nil {
		kind, msg := batch.Classify(err)
		metrics.ApplyAttemptsTotal.WithLabelValues(f.String(), string(kind)).Inc()
		c.logger.Debug("Apply failed",
			zap.String("system", c.system),
			zap.String("target", targetID),
			zap.String("field", f.String()),
			zap.String("kind", string(kind)),
			zap.String("message", msg),
			zap.Duration("duration", duration),
		)
		return err
	}

	metrics.ApplyAttemptsTotal.WithLabelValues(f.String(), "ok").Inc()
	c.logger.Debug("Apply completed",
		zap.String("system", c.system),
		zap.String("target", targetID),
		zap.String("field", f.String()),
		zap.Duration("duration", duration),
	)
	return nil
}

// ObserveResult records the per-target and per-batch metrics of a finished run.
func ObserveResult(res batch.Result) {
	f := res.Field().String()
	metrics.BatchesTotal.WithLabelValues(f).Inc()
	metrics.BatchDuration.WithLabelValues(f).Observe(res.Duration().Seconds())
	if n := res.Succeeded(); n > 0 {
		metrics.TargetsTotal.WithLabelValues(f, "success", "").Add(float64(n))
	}
	for _, fl := range res.Failed() {
		metrics.TargetsTotal.WithLabelValues(f, "failed", string(fl.Kind)).Inc()
	}
}

package batchsync

import (
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/westmoney/batchsync/internal/domain"
)

// RetryPolicy bounds how hard the engine pushes against the external system.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls per target, first attempt included.
	MaxAttempts int
	// BaseDelay is the wait before the first retry; it doubles per retry.
	BaseDelay time.Duration
	// MaxDelay caps a single backoff wait.
	MaxDelay time.Duration
	// Jitter is the randomization factor applied to each wait (0..1).
	Jitter float64
	// CallTimeout bounds one Apply call. 0 disables it.
	CallTimeout time.Duration
	// BatchTimeout bounds the whole run. 0 disables it.
	BatchTimeout time.Duration
	// MaxConcurrency is the number of targets in flight at once.
	MaxConcurrency int
}

// DefaultRetryPolicy returns the policy used when nothing is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      200 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Jitter:         0.2,
		CallTimeout:    15 * time.Second,
		MaxConcurrency: 4,
	}
}

// Validate checks the policy for usable values.
func (p RetryPolicy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return domain.NewValidationError("policy.max_attempts", "must be at least 1, got %d", p.MaxAttempts)
	case p.MaxConcurrency < 1:
		return domain.NewValidationError("policy.max_concurrency", "must be at least 1, got %d", p.MaxConcurrency)
	case p.BaseDelay < 0:
		return domain.NewValidationError("policy.base_delay", "must not be negative")
	case p.MaxDelay < p.BaseDelay:
		return domain.NewValidationError("policy.max_delay", "must be >= base_delay (%s)", p.BaseDelay)
	case p.Jitter < 0 || p.Jitter > 1:
		return domain.NewValidationError("policy.jitter", "must be between 0 and 1, got %g", p.Jitter)
	case p.CallTimeout < 0 || p.BatchTimeout < 0:
		return domain.NewValidationError("policy.timeout", "must not be negative")
	}
	return nil
}

// delays yields the jittered exponential waits between attempts of one target.
type delays struct {
	b   *backoff.ExponentialBackOff
	max time.Duration
}

func (p RetryPolicy) newDelays() *delays {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = p.Jitter
	b.Reset()
	return &delays{b: b, max: p.MaxDelay}
}

// next returns base * 2^retry with jitter, never above MaxDelay.
func (d *delays) next() time.Duration {
	wait := d.b.NextBackOff()
	if wait < 0 {
		return d.max
	}
	if wait > d.max {
		return d.max
	}
	return wait
}

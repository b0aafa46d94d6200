package batchsync

import (
	"time"

	"github.com/westmoney/batchsync/internal/domain/batch"
	"github.com/westmoney/batchsync/internal/domain/batch/field"
	domjob "github.com/westmoney/batchsync/internal/domain/job"
	syncuc "github.com/westmoney/batchsync/internal/usecase/batchsync"
)

// Updatable fields.
const (
	FieldWhatsAppConsent       = string(field.WhatsAppConsent)
	FieldWhatsAppConsentStatus = string(field.WhatsAppConsentStatus)
	FieldLifecycleStage        = string(field.LifecycleStage)
)

// Kind classifies a failed target.
type Kind string

// Failure kinds.
const (
	KindRetryable Kind = Kind(batch.KindRetryable)
	KindTerminal  Kind = Kind(batch.KindTerminal)
	KindCancelled Kind = Kind(batch.KindCancelled)
)

// Failure is one target that did not succeed.
type Failure struct {
	ID       string
	Kind     Kind
	Message  string
	Attempts int
}

// Result is the outcome of one batch run.
// Success + len(Failed) always equals Total.
type Result struct {
	BatchID    string
	ParentID   string
	Field      string
	Value      string
	Total      int
	Success    int
	Failed     []Failure
	StartedAt  time.Time
	FinishedAt time.Time
}

// FailedIDs returns the IDs of failed targets in request order.
func (r Result) FailedIDs() []string {
	ids := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		ids[i] = f.ID
	}
	return ids
}

// Duration returns the wall time of the run.
func (r Result) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Policy bounds retries, timeouts and concurrency of a run.
type Policy struct {
	MaxAttempts    int           // attempts per target, first call included
	BaseDelay      time.Duration // backoff before the second attempt
	MaxDelay       time.Duration // backoff ceiling
	Jitter         float64       // randomization factor in [0,1]
	CallTimeout    time.Duration // 0 = none
	BatchTimeout   time.Duration // 0 = none
	MaxConcurrency int
}

// DefaultPolicy returns the policy used when WithPolicy is not given.
func DefaultPolicy() Policy {
	return policyFromInternal(syncuc.DefaultRetryPolicy())
}

// FieldValues lists the permitted values of every updatable field.
func FieldValues() map[string][]string {
	out := make(map[string][]string)
	for _, f := range field.All() {
		for _, v := range f.Values() {
			out[f.String()] = append(out[f.String()], v.String())
		}
	}
	return out
}

func (p Policy) internal() syncuc.RetryPolicy {
	return syncuc.RetryPolicy{
		MaxAttempts:    p.MaxAttempts,
		BaseDelay:      p.BaseDelay,
		MaxDelay:       p.MaxDelay,
		Jitter:         p.Jitter,
		CallTimeout:    p.CallTimeout,
		BatchTimeout:   p.BatchTimeout,
		MaxConcurrency: p.MaxConcurrency,
	}
}

func policyFromInternal(p syncuc.RetryPolicy) Policy {
	return Policy{
		MaxAttempts:    p.MaxAttempts,
		BaseDelay:      p.BaseDelay,
		MaxDelay:       p.MaxDelay,
		Jitter:         p.Jitter,
		CallTimeout:    p.CallTimeout,
		BatchTimeout:   p.BatchTimeout,
		MaxConcurrency: p.MaxConcurrency,
	}
}

func resultFromDomain(id, parentID string, res batch.Result) Result {
	failed := res.Failed()
	out := Result{
		BatchID:    id,
		ParentID:   parentID,
		Field:      res.Field().String(),
		Value:      res.Value().String(),
		Total:      res.Total(),
		Success:    res.Succeeded(),
		Failed:     make([]Failure, len(failed)),
		StartedAt:  res.StartedAt(),
		FinishedAt: res.FinishedAt(),
	}
	for i, f := range failed {
		out.Failed[i] = Failure{ID: f.TargetID, Kind: Kind(f.Kind), Message: f.Message, Attempts: f.Attempts}
	}
	return out
}

func resultFromJob(j domjob.Job) Result {
	return resultFromDomain(j.ID(), j.ParentID(), j.Result())
}

package batch

import (
	"time"

	"github.com/westmoney/batchsync/internal/domain/batch/field"
)

// Failure accounts for one target that did not succeed.
type Failure struct {
	TargetID string
	Kind     ErrorKind
	Message  string
	Attempts int
}

// Result is the completed outcome of a batch run.
type Result struct {
	field      field.Field
	value      field.Value
	total      int
	succeeded  int
	failed     []Failure
	startedAt  time.Time
	finishedAt time.Time
}

// Reconstruct creates a Result without validation (storage hydration).
func Reconstruct(
	f field.Field, v field.Value, succeeded int, failed []Failure, startedAt, finishedAt time.Time,
) Result {
	return Result{
		field:      f,
		value:      v,
		total:      succeeded + len(failed),
		succeeded:  succeeded,
		failed:     failed,
		startedAt:  startedAt,
		finishedAt: finishedAt,
	}
}

// Field returns the attribute the batch changed.
func (r Result) Field() field.Field { return r.field }

// Value returns the value the batch applied.
func (r Result) Value() field.Value { return r.value }

// Total returns the number of targets in the batch.
func (r Result) Total() int { return r.total }

// Succeeded returns the number of acknowledged targets.
func (r Result) Succeeded() int { return r.succeeded }

// Failed returns a copy of the failures in request order.
func (r Result) Failed() []Failure {
	out := make([]Failure, len(r.failed))
	copy(out, r.failed)
	return out
}

// FailedCount returns the number of failed targets.
func (r Result) FailedCount() int { return len(r.failed) }

// FailedTargets returns the IDs of failed targets, ready for a re-run request.
func (r Result) FailedTargets() []string {
	ids := make([]string, len(r.failed))
	for i, f := range r.failed {
		ids[i] = f.TargetID
	}
	return ids
}

// StartedAt returns when the run began.
func (r Result) StartedAt() time.Time { return r.startedAt }

// FinishedAt returns when the run completed.
func (r Result) FinishedAt() time.Time { return r.finishedAt }

// Duration returns the wall time of the run.
func (r Result) Duration() time.Duration { return r.finishedAt.Sub(r.startedAt) }

// Consistent reports whether every target is accounted for exactly once.
func (r Result) Consistent() bool {
	return r.succeeded+len(r.failed) == r.total
}

type slot struct {
	done     bool
	ok       bool
	kind     ErrorKind
	message  string
	attempts int
}

// Recorder accumulates per-target outcomes during a run.
// Each target owns one slot, so distinct targets may be recorded from
// different goroutines; a slot is written at most once.
type Recorder struct {
	req       Request
	slots     []slot
	startedAt time.Time
}

// NewRecorder creates an empty recorder for req.
func NewRecorder(req Request, startedAt time.Time) *Recorder {
	return &Recorder{req: req, slots: make([]slot, req.Len()), startedAt: startedAt}
}

// Target returns the ID of target i.
func (rc *Recorder) Target(i int) string { return rc.req.target(i) }

// Len returns the number of targets.
func (rc *Recorder) Len() int { return len(rc.slots) }

// Resolved reports whether target i already has an outcome.
func (rc *Recorder) Resolved(i int) bool { return rc.slots[i].done }

// Succeed records an acknowledged target. Returns false if i was already resolved.
func (rc *Recorder) Succeed(i, attempts int) bool {
	if rc.slots[i].done {
		return false
	}
	rc.slots[i] = slot{done: true, ok: true, attempts: attempts}
	return true
}

// Fail records a failed target. Returns false if i was already resolved.
func (rc *Recorder) Fail(i int, kind ErrorKind, message string, attempts int) bool {
	if rc.slots[i].done {
		return false
	}
	rc.slots[i] = slot{done: true, kind: kind, message: message, attempts: attempts}
	return true
}

// Finish merges the slots into an immutable Result.
// Targets that never resolved are reported as cancelled.
func (rc *Recorder) Finish(finishedAt time.Time) Result {
	res := Result{
		field:      rc.req.Field(),
		value:      rc.req.Value(),
		total:      len(rc.slots),
		startedAt:  rc.startedAt,
		finishedAt: finishedAt,
	}
	for i, s := range rc.slots {
		switch {
		case !s.done:
			res.failed = append(res.failed, Failure{
				TargetID: rc.req.target(i),
				Kind:     KindCancelled,
				Message:  "batch cancelled before target was attempted",
			})
		case s.ok:
			res.succeeded++
		default:
			res.failed = append(res.failed, Failure{
				TargetID: rc.req.target(i),
				Kind:     s.kind,
				Message:  s.message,
				Attempts: s.attempts,
			})
		}
	}
	return res
}

package job

import (
	"time"

	"github.com/westmoney/batchsync/internal/domain/batch"
)

// Job is a finished batch run identified for later lookup and re-runs.
type Job struct {
	id        string
	parentID  string
	result    batch.Result
	createdAt time.Time
}

// New creates a Job for a completed run.
func New(id, parentID string, result batch.Result, createdAt time.Time) Job {
	return Job{id: id, parentID: parentID, result: result, createdAt: createdAt}
}

// ID returns the batch identifier.
func (j Job) ID() string { return j.id }

// ParentID returns the batch this one re-ran failures of, if any.
func (j Job) ParentID() string { return j.parentID }

// Result returns the run outcome.
func (j Job) Result() batch.Result { return j.result }

// CreatedAt returns when the job was recorded.
func (j Job) CreatedAt() time.Time { return j.createdAt }

// HasFailures reports whether any target failed.
func (j Job) HasFailures() bool { return j.result.FailedCount() > 0 }

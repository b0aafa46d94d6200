package job

import (
	"context"

	"github.com/westmoney/batchsync/internal/domain/batch"
	"github.com/westmoney/batchsync/internal/domain/batch/field"
	"github.com/westmoney/batchsync/internal/domain/contact"
	domjob "github.com/westmoney/batchsync/internal/domain/job"
)

// Runner executes a batch request.
type Runner interface {
	Run(ctx context.Context, req batch.Request) (batch.Result, error)
}

// Repository persists finished jobs.
type Repository interface {
	Save(ctx context.Context, j domjob.Job) error
	Get(ctx context.Context, id string) (domjob.Job, error)
	List(ctx context.Context, cursor string, limit int) ([]domjob.Job, string, error)
}

// Publisher announces finished jobs.
type Publisher interface {
	PublishCompleted(ctx context.Context, j domjob.Job) error
}

// ContactSearcher finds contacts by their current WhatsApp consent status.
type ContactSearcher interface {
	SearchByConsentStatus(ctx context.Context, status field.Value, limit int) ([]contact.Contact, error)
}

package job

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/westmoney/batchsync/internal/domain"
	"github.com/westmoney/batchsync/internal/domain/batch"
	"github.com/westmoney/batchsync/internal/domain/batch/field"
	"github.com/westmoney/batchsync/internal/domain/contact"
	domjob "github.com/westmoney/batchsync/internal/domain/job"
	"github.com/westmoney/batchsync/internal/logger"
)

// List paging bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Service submits batches to the engine and keeps their results.
type Service struct {
	engine     Runner
	repo       Repository
	events     Publisher
	contacts   ContactSearcher
	logger     *zap.Logger
	maxTargets int
	newID      func() string
	now        func() time.Time
}

// New creates a job service.
func New(engine Runner, repo Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		engine:     engine,
		repo:       repo,
		logger:     log,
		maxTargets: batch.DefaultMaxTargets,
		newID:      func() string { return ulid.Make().String() },
		now:        time.Now,
	}
}

// WithPublisher enables batch-completed events.
func (s *Service) WithPublisher(p Publisher) *Service {
	s.events = p
	return s
}

// WithContactSearcher enables target selection by consent status.
func (s *Service) WithContactSearcher(c ContactSearcher) *Service {
	s.contacts = c
	return s
}

// WithMaxTargets configures the maximum number of targets per batch.
func (s *Service) WithMaxTargets(n int) *Service {
	if n > 0 {
		s.maxTargets = n
	}
	return s
}

// Submit runs a batch over the given targets and records it.
func (s *Service) Submit(
	ctx context.Context, targets []string, f field.Field, v field.Value,
) (domjob.Job, error) {
	req, err := batch.NewRequest(targets, f, v, s.maxTargets)
	if err != nil {
		return domjob.Job{}, err
	}
	return s.run(ctx, req, "")
}

// SubmitSelection runs a batch over every contact whose consent status is selector.
func (s *Service) SubmitSelection(
	ctx context.Context, selector field.Value, f field.Field, v field.Value,
) (domjob.Job, error) {
	if s.contacts == nil {
		return domjob.Job{}, fmt.Errorf("contact search: %w", domain.ErrNotConfigured)
	}
	if !field.WhatsAppConsentStatus.Allows(selector) {
		return domjob.Job{}, domain.NewValidationError("target",
			"unknown consent status %q", selector)
	}

	// One past the cap tells a full selection apart from a truncated one.
	found, err := s.contacts.SearchByConsentStatus(ctx, selector, s.maxTargets+1)
	if err != nil {
		return domjob.Job{}, fmt.Errorf("search contacts by %s: %w", selector, err)
	}
	if len(found) > s.maxTargets {
		return domjob.Job{}, domain.NewValidationError("target",
			"more than %d contacts with consent status %q", s.maxTargets, selector)
	}
	if len(found) == 0 {
		return domjob.Job{}, domain.NewValidationError("target",
			"no contacts with consent status %q", selector)
	}

	return s.Submit(ctx, contact.IDs(found), f, v)
}

// Get returns a recorded job.
func (s *Service) Get(ctx context.Context, id string) (domjob.Job, error) {
	j, err := s.repo.Get(ctx, id)
	if err != nil {
		return domjob.Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return j, nil
}

// List returns recorded jobs newest first. limit 0 means DefaultListLimit.
func (s *Service) List(ctx context.Context, cursor string, limit int) ([]domjob.Job, string, error) {
	switch {
	case limit == 0:
		limit = DefaultListLimit
	case limit < 0 || limit > MaxListLimit:
		return nil, "", domain.NewValidationError("limit", "must be between 1 and %d", MaxListLimit)
	}

	jobs, next, err := s.repo.List(ctx, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list jobs: %w", err)
	}
	return jobs, next, nil
}

// RetryFailed re-runs the failed targets of job id as a new child job.
func (s *Service) RetryFailed(ctx context.Context, id string) (domjob.Job, error) {
	parent, err := s.Get(ctx, id)
	if err != nil {
		return domjob.Job{}, err
	}

	res := parent.Result()
	if res.FailedCount() == 0 {
		return domjob.Job{}, fmt.Errorf("job %s: %w", id, domain.ErrNothingToRetry)
	}

	req, err := batch.NewRequest(res.FailedTargets(), res.Field(), res.Value(), 0)
	if err != nil {
		return domjob.Job{}, fmt.Errorf("rebuild request for %s: %w", id, err)
	}
	return s.run(ctx, req, id)
}

// run executes req and records the outcome.
// Once the engine returns, the batch has been applied: storage and event
// failures are logged and the job is still returned.
func (s *Service) run(ctx context.Context, req batch.Request, parentID string) (domjob.Job, error) {
	id := s.newID()
	log := logger.FromContextOr(ctx, s.logger).With(zap.String("batch_id", id))
	if parentID != "" {
		log = log.With(zap.String("parent_id", parentID))
	}

	res, err := s.engine.Run(logger.ContextWithLogger(ctx, log), req)
	if err != nil {
		return domjob.Job{}, fmt.Errorf("run batch: %w", err)
	}

	j := domjob.New(id, parentID, res, s.now())

	// The request may already be gone; the record must still be written.
	bg := context.WithoutCancel(ctx)
	if err := s.repo.Save(bg, j); err != nil {
		log.Error("Failed to persist batch", zap.Error(err))
	}
	if s.events != nil {
		if err := s.events.PublishCompleted(bg, j); err != nil {
			log.Warn("Failed to publish batch event", zap.Error(err))
		}
	}

	log.Info("Batch recorded",
		zap.String("field", res.Field().String()),
		zap.Int("total", res.Total()),
		zap.Int("success", res.Succeeded()),
		zap.Int("failed", res.FailedCount()),
	)
	return j, nil
}

package batchsync

import (
	"context"
	"fmt"
	"time"

	"github.com/westmoney/batchsync/internal/domain"
)

// JobService reads and retries recorded runs.
type JobService struct {
	svc jobUseCase
	obs *observer
}

func (s *JobService) configured() error {
	if s.svc == nil {
		return fmt.Errorf("job history (use WithRedis): %w", domain.ErrNotConfigured)
	}
	return nil
}

// Get returns a recorded run by batch ID.
func (s *JobService) Get(ctx context.Context, id string) (res Result, err error) {
	start := time.Now()
	defer func() { s.obs.observe("jobs.get", start, err) }()

	if err := s.configured(); err != nil {
		return Result{}, err
	}
	j, err := s.svc.Get(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("get %s: %w", id, err)
	}
	return resultFromJob(j), nil
}

// List returns recorded runs newest first. Pass the returned cursor to get
// the next page; an empty cursor means there are no more.
func (s *JobService) List(ctx context.Context, cursor string, limit int) (res []Result, next string, err error) {
	start := time.Now()
	defer func() { s.obs.observe("jobs.list", start, err) }()

	if err := s.configured(); err != nil {
		return nil, "", err
	}
	jobs, next, err := s.svc.List(ctx, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list: %w", err)
	}
	res = make([]Result, len(jobs))
	for i, j := range jobs {
		res[i] = resultFromJob(j)
	}
	return res, next, nil
}

// Retry re-runs the failed targets of recorded run id.
func (s *JobService) Retry(ctx context.Context, id string) (res Result, err error) {
	start := time.Now()
	defer func() { s.obs.observe("jobs.retry", start, err) }()

	if err := s.configured(); err != nil {
		return Result{}, err
	}
	j, err := s.svc.RetryFailed(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("retry %s: %w", id, err)
	}
	return resultFromJob(j), nil
}

package job

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/westmoney/batchsync/internal/db"
	"github.com/westmoney/batchsync/internal/domain"
	domjob "github.com/westmoney/batchsync/internal/domain/job"
)

const keyPrefix = "batchsync:job:"

// store is the consumer interface for jobs (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/job.Repository on top of a key-value store.
type Repo struct {
	store store
	ttl   time.Duration
}

// New creates a job repository. ttl <= 0 keeps jobs forever.
func New(s store, ttl time.Duration) *Repo {
	return &Repo{store: s, ttl: ttl}
}

// Save stores a finished job.
func (r *Repo) Save(ctx context.Context, j domjob.Job) error {
	data, err := encodeJob(j)
	if err != nil {
		return err
	}
	if err := r.store.SetWithTTL(ctx, jobKey(j.ID()), data, r.ttl); err != nil {
		return fmt.Errorf("set job %s: %w", j.ID(), err)
	}
	return nil
}

// Get retrieves a job by ID.
func (r *Repo) Get(ctx context.Context, id string) (domjob.Job, error) {
	data, err := r.store.Get(ctx, jobKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domjob.Job{}, domain.ErrNotFound
		}
		return domjob.Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return decodeJob(data)
}

// List returns up to limit jobs newest first, starting after cursor.
// IDs are ULIDs, so lexical order is creation order.
// The returned cursor is empty when there are no more jobs.
func (r *Repo) List(ctx context.Context, cursor string, limit int) ([]domjob.Job, string, error) {
	keys, err := r.store.Scan(ctx, jobKey("*"))
	if err != nil {
		return nil, "", fmt.Errorf("scan jobs: %w", err)
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		id := strings.TrimPrefix(k, keyPrefix)
		if cursor != "" && id >= cursor {
			continue
		}
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))

	next := ""
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
		next = ids[limit-1]
	}
	if len(ids) == 0 {
		return []domjob.Job{}, "", nil
	}

	pageKeys := make([]string, len(ids))
	for i, id := range ids {
		pageKeys[i] = jobKey(id)
	}
	values, err := r.store.GetMulti(ctx, pageKeys)
	if err != nil {
		return nil, "", fmt.Errorf("get jobs: %w", err)
	}

	jobs := make([]domjob.Job, 0, len(values))
	for i, data := range values {
		if data == nil {
			continue // expired between SCAN and MGET
		}
		j, err := decodeJob(data)
		if err != nil {
			return nil, "", fmt.Errorf("parse job %s: %w", ids[i], err)
		}
		jobs = append(jobs, j)
	}
	return jobs, next, nil
}

func jobKey(id string) string {
	return keyPrefix + id
}

package job

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/westmoney/batchsync/internal/domain"
	"github.com/westmoney/batchsync/internal/domain/batch"
	"github.com/westmoney/batchsync/internal/domain/batch/field"
	"github.com/westmoney/batchsync/internal/domain/contact"
	domjob "github.com/westmoney/batchsync/internal/domain/job"
)

var testTime = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

// mockRunner succeeds every target except those listed in fail.
type mockRunner struct {
	fail  map[string]batch.ErrorKind
	calls []batch.Request
	err   error
}

func (m *mockRunner) Run(_ context.Context, req batch.Request) (batch.Result, error) {
	m.calls = append(m.calls, req)
	if m.err != nil {
		return batch.Result{}, m.err
	}
	rec := batch.NewRecorder(req, testTime)
	for i := range rec.Len() {
		if kind, ok := m.fail[rec.Target(i)]; ok {
			rec.Fail(i, kind, "failed", 1)
			continue
		}
		rec.Succeed(i, 1)
	}
	return rec.Finish(testTime.Add(time.Second)), nil
}

type mockRepo struct {
	jobs    map[string]domjob.Job
	saveErr error
	listFn  func(ctx context.Context, cursor string, limit int) ([]domjob.Job, string, error)
}

func newMockRepo() *mockRepo {
	return &mockRepo{jobs: make(map[string]domjob.Job)}
}

func (m *mockRepo) Save(_ context.Context, j domjob.Job) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.jobs[j.ID()] = j
	return nil
}

func (m *mockRepo) Get(_ context.Context, id string) (domjob.Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return domjob.Job{}, domain.ErrNotFound
	}
	return j, nil
}

func (m *mockRepo) List(ctx context.Context, cursor string, limit int) ([]domjob.Job, string, error) {
	if m.listFn != nil {
		return m.listFn(ctx, cursor, limit)
	}
	return nil, "", nil
}

type mockPublisher struct {
	published []domjob.Job
	err       error
}

func (m *mockPublisher) PublishCompleted(_ context.Context, j domjob.Job) error {
	m.published = append(m.published, j)
	return m.err
}

type mockSearcher struct {
	byStatus map[field.Value][]string
	limit    int
}

func (m *mockSearcher) SearchByConsentStatus(
	_ context.Context, status field.Value, limit int,
) ([]contact.Contact, error) {
	m.limit = limit
	var out []contact.Contact
	for _, id := range m.byStatus[status] {
		if limit > 0 && len(out) == limit {
			break
		}
		c, err := contact.New(id, contact.Attributes{})
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func newTestService(t *testing.T, r *mockRunner, repo *mockRepo) *Service {
	t.Helper()
	n := 0
	svc := New(r, repo, nil)
	svc.newID = func() string {
		n++
		return fmt.Sprintf("01JOB%03d", n)
	}
	svc.now = func() time.Time { return testTime.Add(2 * time.Second) }
	return svc
}

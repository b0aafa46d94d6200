package batchsync

import (
	"context"
	"sync"

	"github.com/westmoney/batchsync/internal/domain/batch/field"
	domjob "github.com/westmoney/batchsync/internal/domain/job"
)

// --- ExternalClient fake ---

type fakeExternal struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(id string, attempt int) error
}

func (f *fakeExternal) Apply(_ context.Context, id, _, _ string) error {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[id]++
	n := f.calls[id]
	f.mu.Unlock()
	if f.fn == nil {
		return nil
	}
	return f.fn(id, n)
}

func (f *fakeExternal) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// --- jobUseCase mock ---

type mockJobUC struct {
	submitFn func(ctx context.Context, targets []string, f field.Field, v field.Value) (domjob.Job, error)
	getFn    func(ctx context.Context, id string) (domjob.Job, error)
	listFn   func(ctx context.Context, cursor string, limit int) ([]domjob.Job, string, error)
	retryFn  func(ctx context.Context, id string) (domjob.Job, error)
}

func (m *mockJobUC) Submit(ctx context.Context, targets []string, f field.Field, v field.Value) (domjob.Job, error) {
	return m.submitFn(ctx, targets, f, v)
}

func (m *mockJobUC) Get(ctx context.Context, id string) (domjob.Job, error) {
	return m.getFn(ctx, id)
}

func (m *mockJobUC) List(ctx context.Context, cursor string, limit int) ([]domjob.Job, string, error) {
	return m.listFn(ctx, cursor, limit)
}

func (m *mockJobUC) RetryFailed(ctx context.Context, id string) (domjob.Job, error) {
	return m.retryFn(ctx, id)
}

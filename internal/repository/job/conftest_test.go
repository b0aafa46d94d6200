package job

import (
	"context"
	"testing"
	"time"

	"github.com/westmoney/batchsync/internal/db"
	"github.com/westmoney/batchsync/internal/domain/batch"
	"github.com/westmoney/batchsync/internal/domain/batch/field"
	domjob "github.com/westmoney/batchsync/internal/domain/job"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn        func(ctx context.Context, key string) ([]byte, error)
	getMultiFn   func(ctx context.Context, keys []string) ([][]byte, error)
	setWithTTLFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	scanFn       func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, nil
}

func (m *mockStore) GetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if m.getMultiFn != nil {
		return m.getMultiFn(ctx, keys)
	}
	return make([][]byte, len(keys)), nil
}

func (m *mockStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setWithTTLFn != nil {
		return m.setWithTTLFn(ctx, key, value, ttl)
	}
	return nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

// memStore backs mockStore with a map so Save/Get/List round trip.
func memStore(data map[string][]byte) *mockStore {
	return &mockStore{
		getFn: func(_ context.Context, key string) ([]byte, error) {
			v, ok := data[key]
			if !ok {
				return nil, db.ErrKeyNotFound
			}
			return v, nil
		},
		getMultiFn: func(_ context.Context, keys []string) ([][]byte, error) {
			out := make([][]byte, len(keys))
			for i, k := range keys {
				out[i] = data[k]
			}
			return out, nil
		},
		setWithTTLFn: func(_ context.Context, key string, value []byte, _ time.Duration) error {
			data[key] = value
			return nil
		},
		scanFn: func(_ context.Context, _ string) ([]string, error) {
			keys := make([]string, 0, len(data))
			for k := range data {
				keys = append(keys, k)
			}
			return keys, nil
		},
	}
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, time.Hour), ms
}

var testTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func testJob(t *testing.T, id string) domjob.Job {
	t.Helper()
	res := batch.Reconstruct(
		field.WhatsAppConsent, field.ConsentGranted, 2,
		[]batch.Failure{{TargetID: "c2", Kind: batch.KindTerminal, Message: "contact not found", Attempts: 1}},
		testTime, testTime.Add(1500*time.Millisecond),
	)
	return domjob.New(id, "", res, testTime.Add(2*time.Second))
}

func ids(jobs []domjob.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID()
	}
	return out
}

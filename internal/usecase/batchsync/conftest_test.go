package batchsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/westmoney/batchsync/internal/domain/batch"
	"github.com/westmoney/batchsync/internal/domain/batch/field"
)

// mockClient counts calls per target and delegates behavior to fn.
type mockClient struct {
	mu       sync.Mutex
	calls    map[string]int
	inFlight int
	peak     int
	fn       func(ctx context.Context, id string, call int) error
}

func newMockClient(fn func(ctx context.Context, id string, call int) error) *mockClient {
	return &mockClient{calls: make(map[string]int), fn: fn}
}

func (m *mockClient) Apply(ctx context.Context, id string, _ field.Field, _ field.Value) error {
	m.mu.Lock()
	m.calls[id]++
	call := m.calls[id]
	m.inFlight++
	if m.inFlight > m.peak {
		m.peak = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.fn == nil {
		return nil
	}
	return m.fn(ctx, id, call)
}

func (m *mockClient) callsFor(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[id]
}

func (m *mockClient) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      time.Millisecond,
		MaxDelay:       2 * time.Millisecond,
		MaxConcurrency: 4,
	}
}

func mustRequest(t *testing.T, ids ...string) batch.Request {
	t.Helper()
	req, err := batch.NewRequest(ids, field.WhatsAppConsent, field.ConsentGranted, 0)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return req
}

func newTestEngine(c Client, p RetryPolicy) *Engine {
	return New(c, p, zap.NewNop())
}

// assertAccounted checks that every requested target appears exactly once.
func assertAccounted(t *testing.T, req batch.Request, res batch.Result) {
	t.Helper()
	if res.Total() != req.Len() {
		t.Fatalf("total = %d, want %d", res.Total(), req.Len())
	}
	if !res.Consistent() {
		t.Fatalf("inconsistent result: success=%d failed=%d total=%d",
			res.Succeeded(), res.FailedCount(), res.Total())
	}
	seen := make(map[string]bool)
	for _, f := range res.Failed() {
		if seen[f.TargetID] {
			t.Fatalf("target %s reported twice", f.TargetID)
		}
		seen[f.TargetID] = true
	}
}

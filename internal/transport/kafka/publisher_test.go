package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/westmoney/batchsync/internal/domain/batch"
	"github.com/westmoney/batchsync/internal/domain/batch/field"
	domjob "github.com/westmoney/batchsync/internal/domain/job"
)

type mockWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func testJob() domjob.Job {
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	res := batch.Reconstruct(field.WhatsAppConsent, field.ConsentGranted, 2,
		[]batch.Failure{{TargetID: "c3", Kind: batch.KindRetryable, Message: "503", Attempts: 3}},
		start, start.Add(time.Second))
	return domjob.New("01JOB", "01PARENT", res, start.Add(time.Second))
}

func TestPublishCompleted(t *testing.T) {
	w := &mockWriter{}
	p := &Publisher{writer: w}

	if err := p.PublishCompleted(context.Background(), testJob()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}

	msg := w.msgs[0]
	if string(msg.Key) != "01JOB" {
		t.Errorf("key = %q, want 01JOB", msg.Key)
	}
	var ev completedEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Type != "batch.completed" || ev.ParentID != "01PARENT" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.Total != 3 || ev.Success != 2 || ev.Failed != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", ev.Total, ev.Success, ev.Failed)
	}
}

func TestPublishCompleted_WriteError(t *testing.T) {
	p := &Publisher{writer: &mockWriter{err: errors.New("leader not available")}}

	if err := p.PublishCompleted(context.Background(), testJob()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewPublisher(t *testing.T) {
	if _, err := NewPublisher(Config{}); err == nil {
		t.Fatal("expected error without brokers")
	}

	p, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kw, ok := p.writer.(*kafka.Writer)
	if !ok {
		t.Fatalf("writer is %T", p.writer)
	}
	if kw.Topic != DefaultTopic {
		t.Errorf("topic = %q, want %q", kw.Topic, DefaultTopic)
	}
}

func TestClose(t *testing.T) {
	w := &mockWriter{}
	p := &Publisher{writer: w}
	if err := p.Close(); err != nil || !w.closed {
		t.Fatalf("close: err=%v closed=%v", err, w.closed)
	}
}

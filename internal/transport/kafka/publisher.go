// Package kafka publishes batch lifecycle events.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	domjob "github.com/westmoney/batchsync/internal/domain/job"
)

// DefaultTopic receives batch.completed events.
const DefaultTopic = "batchsync.batch.completed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds broker settings.
type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// Publisher writes one message per finished batch, keyed by batch ID.
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a Kafka-backed publisher.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
			WriteTimeout: cfg.WriteTimeout,
		},
	}, nil
}

type completedEvent struct {
	Type       string    `json:"type"`
	BatchID    string    `json:"batch_id"`
	ParentID   string    `json:"parent_id,omitempty"`
	Field      string    `json:"field"`
	Value      string    `json:"value"`
	Total      int       `json:"total"`
	Success    int       `json:"success"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// PublishCompleted announces a finished batch.
func (p *Publisher) PublishCompleted(ctx context.Context, j domjob.Job) error {
	res := j.Result()
	data, err := json.Marshal(completedEvent{
		Type:       "batch.completed",
		BatchID:    j.ID(),
		ParentID:   j.ParentID(),
		Field:      res.Field().String(),
		Value:      res.Value().String(),
		Total:      res.Total(),
		Success:    res.Succeeded(),
		Failed:     res.FailedCount(),
		StartedAt:  res.StartedAt(),
		FinishedAt: res.FinishedAt(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(j.ID()),
		Value: data,
		Time:  res.FinishedAt(),
	})
	if err != nil {
		return fmt.Errorf("write batch.completed %s: %w", j.ID(), err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}

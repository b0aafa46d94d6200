package job

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/westmoney/batchsync/internal/domain/batch"
	"github.com/westmoney/batchsync/internal/domain/batch/field"
	domjob "github.com/westmoney/batchsync/internal/domain/job"
)

type failureDTO struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Attempts int    `json:"attempts"`
}

// jobDTO is the stored JSON shape of a finished batch.
type jobDTO struct {
	ID         string       `json:"id"`
	ParentID   string       `json:"parent_id,omitempty"`
	Field      string       `json:"field"`
	Value      string       `json:"value"`
	Succeeded  int          `json:"succeeded"`
	Failed     []failureDTO `json:"failed"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	CreatedAt  time.Time    `json:"created_at"`
}

func encodeJob(j domjob.Job) ([]byte, error) {
	res := j.Result()
	failed := res.Failed()
	dto := jobDTO{
		ID:         j.ID(),
		ParentID:   j.ParentID(),
		Field:      res.Field().String(),
		Value:      res.Value().String(),
		Succeeded:  res.Succeeded(),
		Failed:     make([]failureDTO, len(failed)),
		StartedAt:  res.StartedAt(),
		FinishedAt: res.FinishedAt(),
		CreatedAt:  j.CreatedAt(),
	}
	for i, f := range failed {
		dto.Failed[i] = failureDTO{ID: f.TargetID, Kind: string(f.Kind), Message: f.Message, Attempts: f.Attempts}
	}

	data, err := json.Marshal(dto)
	if err != nil {
		return nil, fmt.Errorf("marshal job %s: %w", j.ID(), err)
	}
	return data, nil
}

func decodeJob(data []byte) (domjob.Job, error) {
	var dto jobDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return domjob.Job{}, fmt.Errorf("unmarshal job: %w", err)
	}

	failed := make([]batch.Failure, len(dto.Failed))
	for i, f := range dto.Failed {
		kind := batch.ErrorKind(f.Kind)
		if !kind.Valid() {
			return domjob.Job{}, fmt.Errorf("job %s: unknown error kind %q", dto.ID, f.Kind)
		}
		failed[i] = batch.Failure{TargetID: f.ID, Kind: kind, Message: f.Message, Attempts: f.Attempts}
	}

	res := batch.Reconstruct(
		field.Field(dto.Field), field.Value(dto.Value),
		dto.Succeeded, failed, dto.StartedAt, dto.FinishedAt,
	)
	return domjob.New(dto.ID, dto.ParentID, res, dto.CreatedAt), nil
}

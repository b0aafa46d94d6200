package chi

import (
	"time"

	"github.com/westmoney/batchsync/internal/domain/batch/field"
	domjob "github.com/westmoney/batchsync/internal/domain/job"
)

// ErrorCode is a machine-readable API error code.
type ErrorCode string

// API error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeNotFound         ErrorCode = "not_found"
	ErrorCodeNotImplemented   ErrorCode = "not_implemented"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SubmitBatchRequest is the body of POST /api/v1/batches.
type SubmitBatchRequest struct {
	Targets []string `json:"targets"`
	Field   string   `json:"field"`
	Value   string   `json:"value"`
}

// BulkConsentRequest is the body of POST /api/v1/whatsapp/consent/bulk.
// Target "selected" (default) uses ContactIDs; any consent status selects
// the contacts currently holding it.
type BulkConsentRequest struct {
	ContactIDs []string `json:"contact_ids"`
	Status     string   `json:"status"`
	Target     string   `json:"target"`
}

// TargetError reports one failed target.
type TargetError struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Attempts int    `json:"attempts"`
}

// BatchResponse is the outcome of one batch run.
type BatchResponse struct {
	BatchID    string        `json:"batch_id"`
	ParentID   string        `json:"parent_id,omitempty"`
	Field      string        `json:"field"`
	Value      string        `json:"value"`
	Total      int           `json:"total"`
	Success    int           `json:"success"`
	Failed     int           `json:"failed"`
	Errors     []TargetError `json:"errors"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	DurationMs int64         `json:"duration_ms"`
}

// BatchListResponse is a page of batches, newest first.
type BatchListResponse struct {
	Items      []BatchResponse `json:"items"`
	NextCursor *string         `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

// FieldResponse describes one updatable field.
type FieldResponse struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func batchToResponse(j domjob.Job) BatchResponse {
	res := j.Result()
	failed := res.Failed()
	errs := make([]TargetError, len(failed))
	for i, f := range failed {
		errs[i] = TargetError{ID: f.TargetID, Kind: string(f.Kind), Message: f.Message, Attempts: f.Attempts}
	}
	return BatchResponse{
		BatchID:    j.ID(),
		ParentID:   j.ParentID(),
		Field:      res.Field().String(),
		Value:      res.Value().String(),
		Total:      res.Total(),
		Success:    res.Succeeded(),
		Failed:     len(failed),
		Errors:     errs,
		StartedAt:  res.StartedAt().UTC(),
		FinishedAt: res.FinishedAt().UTC(),
		DurationMs: res.Duration().Milliseconds(),
	}
}

func fieldsToResponse(fields []field.Field) []FieldResponse {
	out := make([]FieldResponse, len(fields))
	for i, f := range fields {
		vals := f.Values()
		names := make([]string, len(vals))
		for j, v := range vals {
			names[j] = v.String()
		}
		out[i] = FieldResponse{Name: f.String(), Values: names}
	}
	return out
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/westmoney/batchsync/internal/domain"
	"github.com/westmoney/batchsync/internal/domain/batch"
	"github.com/westmoney/batchsync/internal/domain/batch/field"
)

// Report is the JSON document a run writes and a retry reads back.
type Report struct {
	BatchID    string        `json:"batch_id"`
	ParentID   string        `json:"parent_id,omitempty"`
	Field      string        `json:"field"`
	Value      string        `json:"value"`
	Total      int           `json:"total"`
	Success    int           `json:"success"`
	Failed     int           `json:"failed"`
	Errors     []ReportError `json:"errors"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	DurationMs int64         `json:"duration_ms"`
}

// ReportError is one failed target.
type ReportError struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Attempts int    `json:"attempts"`
}

func newReport(id, parentID string, res batch.Result) Report {
	failed := res.Failed()
	errs := make([]ReportError, len(failed))
	for i, f := range failed {
		errs[i] = ReportError{ID: f.TargetID, Kind: string(f.Kind), Message: f.Message, Attempts: f.Attempts}
	}
	return Report{
		BatchID:    id,
		ParentID:   parentID,
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

// FailedIDs returns the failed target IDs in report order.
func (r Report) FailedIDs() []string {
	ids := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		ids[i] = e.ID
	}
	return ids
}

// Change parses the field and value the report applied.
func (r Report) Change() (field.Field, field.Value, error) {
	f, err := field.Parse(r.Field)
	if err != nil {
		return "", "", err
	}
	v, err := field.ParseValue(f, r.Value)
	if err != nil {
		return "", "", err
	}
	return f, v, nil
}

func writeReport(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// saveReport writes r to path, reporting a failed close.
func saveReport(path string, r Report) (err error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return invalid(fmt.Errorf("create output: %w", err))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()
	return writeReport(f, r)
}

func readReport(path string) (Report, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Report{}, domain.NewValidationError("from", "read %s: %v", path, err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, domain.NewValidationError("from", "parse %s: %v", path, err)
	}
	return r, nil
}

package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/westmoney/batchsync/internal/domain"
	"github.com/westmoney/batchsync/internal/domain/batch/field"
	domjob "github.com/westmoney/batchsync/internal/domain/job"
	healthuc "github.com/westmoney/batchsync/internal/usecase/health"
)

// maxBodyBytes caps request bodies; a full batch of IDs fits comfortably.
const maxBodyBytes = 1 << 20

const (
	targetSelected = "selected"
	defaultStatus  = field.ConsentGranted
)

// JobService runs and records batches.
type JobService interface {
	Submit(ctx context.Context, targets []string, f field.Field, v field.Value) (domjob.Job, error)
	SubmitSelection(ctx context.Context, selector field.Value, f field.Field, v field.Value) (domjob.Job, error)
	Get(ctx context.Context, id string) (domjob.Job, error)
	List(ctx context.Context, cursor string, limit int) ([]domjob.Job, string, error)
	RetryFailed(ctx context.Context, id string) (domjob.Job, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the batch API.
type Server struct {
	jobs          JobService
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(jobs JobService, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{jobs: jobs, health: health, logger: logger}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrNotConfigured, http.StatusNotImplemented, ErrorCodeNotImplemented),
	}
	return s
}

// RegisterRoutes mounts every endpoint on r.
func (s *Server) RegisterRoutes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r gochi.Router) {
		r.Get("/fields", s.ListFields)
		r.Post("/batches", s.SubmitBatch)
		r.Get("/batches", s.ListBatches)
		r.Get("/batches/{id}", s.GetBatch)
		r.Post("/batches/{id}/retry", s.RetryBatch)
		r.Post("/whatsapp/consent/bulk", s.BulkConsent)
	})
}

// SubmitBatch handles POST /api/v1/batches.
func (s *Server) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req SubmitBatchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	f, err := field.Parse(req.Field)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	v, err := field.ParseValue(f, req.Value)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	j, err := s.jobs.Submit(r.Context(), req.Targets, f, v)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batchToResponse(j))
}

// BulkConsent handles POST /api/v1/whatsapp/consent/bulk.
func (s *Server) BulkConsent(w http.ResponseWriter, r *http.Request) {
	var req BulkConsentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	status := field.Value(strings.TrimSpace(req.Status))
	if status == "" {
		status = defaultStatus
	}
	f, err := consentField(status)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	target := strings.TrimSpace(req.Target)
	var j domjob.Job
	if target == "" || target == targetSelected {
		j, err = s.jobs.Submit(r.Context(), req.ContactIDs, f, status)
	} else {
		j, err = s.jobs.SubmitSelection(r.Context(), field.Value(target), f, status)
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batchToResponse(j))
}

// consentField picks the consent attribute that accepts status.
// The status property wins when both accept it ("pending").
func consentField(status field.Value) (field.Field, error) {
	for _, f := range []field.Field{field.WhatsAppConsentStatus, field.WhatsAppConsent} {
		if f.Allows(status) {
			return f, nil
		}
	}
	return "", domain.NewValidationError("status", "unsupported consent status %q", status)
}

// ListBatches handles GET /api/v1/batches.
func (s *Server) ListBatches(w http.ResponseWriter, r *http.Request) {
	var (
		limit  *int
		cursor *string
	)
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, fmt.Sprintf("invalid limit: %v", err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "cursor", r.URL.Query(), &cursor); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, fmt.Sprintf("invalid cursor: %v", err))
		return
	}

	jobs, next, err := s.jobs.List(r.Context(), derefString(cursor), derefInt(limit))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := BatchListResponse{Items: make([]BatchResponse, len(jobs))}
	for i, j := range jobs {
		resp.Items[i] = batchToResponse(j)
	}
	if next != "" {
		resp.NextCursor = &next
		resp.HasMore = true
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetBatch handles GET /api/v1/batches/{id}.
func (s *Server) GetBatch(w http.ResponseWriter, r *http.Request) {
	j, err := s.jobs.Get(r.Context(), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batchToResponse(j))
}

// RetryBatch handles POST /api/v1/batches/{id}/retry.
func (s *Server) RetryBatch(w http.ResponseWriter, r *http.Request) {
	j, err := s.jobs.RetryFailed(r.Context(), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batchToResponse(j))
}

// ListFields handles GET /api/v1/fields.
func (s *Server) ListFields(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, fieldsToResponse(field.All()))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	sentinels := []error{
		domain.ErrNothingToRetry,
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrNotConfigured,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// validationHandler maps every ErrValidation wrap to 400.
func validationHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, msg)
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

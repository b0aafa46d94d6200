// Package hubspot talks to the HubSpot CRM v3 contacts API.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/westmoney/batchsync/internal/domain/batch"
	"github.com/westmoney/batchsync/internal/domain/batch/field"
	"github.com/westmoney/batchsync/internal/metrics"
)

// DefaultBaseURL is the public HubSpot API endpoint.
const DefaultBaseURL = "https://api.hubapi.com"

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Config holds the HubSpot client settings.
type Config struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Client updates and searches HubSpot contacts.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a HubSpot client. RatePerSecond <= 0 disables rate limiting.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		token:   cfg.Token,
		limiter: limiter,
		logger:  log,
		now:     time.Now,
	}
}

type patchRequest struct {
	Properties map[string]string `json:"properties"`
}

// Apply writes one field of one contact. Failures are *batch.ApplyError.
func (c *Client) Apply(ctx context.Context, contactID string, f field.Field, v field.Value) error {
	props, err := properties(f, v, c.now())
	if err != nil {
		return batch.Terminal(err.Error(), err)
	}

	body, err := json.Marshal(patchRequest{Properties: props})
	if err != nil {
		return batch.Terminal("encode request", err)
	}

	path := "/crm/v3/objects/contacts/" + url.PathEscape(contactID)
	resp, err := c.do(ctx, "update_contact", http.MethodPatch, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return classifyResponse(resp)
}

// HealthCheck verifies the token can read contacts.
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.do(ctx, "health", http.MethodGet, "/crm/v3/objects/contacts?limit=1", nil)
	if err != nil {
		return fmt.Errorf("hubspot health: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hubspot health: status %d", resp.StatusCode)
	}
	return nil
}

// do sends one rate-limited request. Transport failures come back classified.
func (c *Client) do(
	ctx context.Context, operation, method, path string, body []byte,
) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classifyTransport(fmt.Errorf("rate limiter: %w", err))
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, batch.Terminal("build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.HubSpotRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.HubSpotRequestsTotal.WithLabelValues(operation, "error").Inc()
		c.logger.Debug("HubSpot request failed",
			zap.String("operation", operation),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, classifyTransport(err)
	}
	metrics.HubSpotRequestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()
	return resp, nil
}

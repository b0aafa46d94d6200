package hubspot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/westmoney/batchsync/internal/domain/batch"
)

// apiError is the HubSpot JSON error body.
type apiError struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

// classifyResponse turns a non-2xx response into an ApplyError.
// 408, 425, 429 and 5xx are retryable; every other status is terminal.
func classifyResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := fmt.Sprintf("hubspot status %d", resp.StatusCode)
	var body apiError
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		msg = fmt.Sprintf("hubspot status %d: %s", resp.StatusCode, body.Message)
	}
	cause := fmt.Errorf("status %d", resp.StatusCode)

	if retryableStatus(resp.StatusCode) {
		return batch.Retryable(msg, cause)
	}
	return batch.Terminal(msg, cause)
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return code >= 500
}

// classifyTransport maps a failed round trip. Cancellation stays cancelled,
// timeouts and network errors are retryable.
func classifyTransport(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return &batch.ApplyError{Kind: batch.KindCancelled, Message: "request cancelled", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return batch.Retryable("request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return batch.Retryable("network error: "+netErr.Error(), err)
	}
	return batch.Retryable("transport error: "+err.Error(), err)
}

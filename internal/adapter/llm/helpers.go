package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"wildrose/internal/domain"
)

// maxResponseBody is the maximum response body size read from the model service.
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// maxErrorBody bounds how much of a failed response is quoted in errors.
const maxErrorBody = 512

// doJSONRequest performs a JSON request and returns the response body.
// body may be nil for GET requests. Non-2xx responses and transport
// failures are mapped to domain errors.
func doJSONRequest(ctx context.Context, client *http.Client, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrService, err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, mapTransportError(ctx, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, mapTransportError(ctx, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, mapHTTPError(httpResp.StatusCode, respBody)
	}
	return respBody, nil
}

// mapHTTPError maps a non-2xx status code and body to ErrService.
func mapHTTPError(statusCode int, body []byte) error {
	if len(body) > maxErrorBody {
		body = append(body[:maxErrorBody:maxErrorBody], "..."...)
	}
	return fmt.Errorf("%w: API error %d: %s", domain.ErrService, statusCode, bytes.TrimSpace(body))
}

// mapTransportError classifies a failed exchange. Deadline expiry becomes
// ErrTimeout, caller cancellation ErrCanceled, and anything else ErrService.
func mapTransportError(ctx context.Context, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", domain.ErrCanceled, err)
	default:
		return fmt.Errorf("%w: http request: %w", domain.ErrService, err)
	}
}

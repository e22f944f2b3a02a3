// Package externalapi holds helpers shared by the exchange API clients.
package externalapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crypto_backend/internal/feature/candles/domain"
)

// UserAgent is sent with every exchange request. Coinbase rejects requests without one.
const UserAgent = "crypto-backend/1.0"

// maxErrorBody bounds how much of an error response is kept for logs.
const maxErrorBody = 512

// ReadErrorBody reads the head of an error response for StatusError.
func ReadErrorBody(r io.Reader) []byte {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return body
}

// StatusError converts a non-2xx response into an error.
// 429, 418 and 5xx responses wrap domain.ErrTransient.
func StatusError(source string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))

	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusTeapot,
		status >= http.StatusInternalServerError:
		return fmt.Errorf("%s http %d: %s: %w", source, status, msg, domain.ErrTransient)
	default:
		return fmt.Errorf("%s http %d: %s", source, status, msg)
	}
}

// TransportError wraps a failed round trip. Network failures are transient
// unless the caller's context ended.
func TransportError(ctx context.Context, source string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", source, ctxErr)
	}
	return fmt.Errorf("%s: %v: %w", source, err, domain.ErrTransient)
}

// CloseBody closes a response body, logging failures.
func CloseBody(source string, body io.Closer) {
	if err := body.Close(); err != nil {
		slog.Warn("failed to close response body", "source", source, "error", err)
	}
}

// ParseFloat parses a decimal string field of an API payload.
func ParseFloat(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return v, nil
}

// DayStart truncates t to midnight UTC.
func DayStart(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// Package backoff holds the retry loop and HTTP status mapping shared by the
// LLM provider clients.
package backoff

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	domai "github.com/bryanwahyu/neurolint/internal/domain/ai"
)

// MaxRetries is the default number of retries after the first attempt.
const MaxRetries = 3

// Base delay before the first retry; doubles per attempt.
var Base = time.Second

// StatusError carries a non-200 upstream answer.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Code, truncate(e.Body, 512))
}

// Unwrap maps the status onto the domain errors callers branch on.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusTooManyRequests:
		return domai.ErrQuotaExceeded
	case e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden:
		return domai.ErrUpstreamAuth
	}
	return nil
}

// Retryable reports whether another attempt may succeed.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// CheckStatus returns nil for 200 and a *StatusError otherwise.
func CheckStatus(provider string, code int, body []byte) error {
	if code == http.StatusOK {
		return nil
	}
	return &StatusError{Provider: provider, Code: code, Body: string(body)}
}

// Do runs fn until it succeeds, returns a non-retryable error, retries are
// exhausted or ctx is done. Only *StatusError values with Retryable() are retried.
func Do(ctx context.Context, maxRetries int, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var se *StatusError
		if !errors.As(lastErr, &se) || !se.Retryable() {
			return lastErr
		}
		if attempt < maxRetries {
			wait := Base * time.Duration(1<<uint(attempt))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

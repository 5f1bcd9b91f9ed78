package providers

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// HTTPError is an HTTP-level provider error carrying the status and body.
type HTTPError struct {
	Status     int
	Body       string
	RetryAfter time.Duration // from Retry-After header, 0 if absent
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// Retryable reports whether the error is worth retrying:
// 429 (rate limit), 408 (timeout), and 5xx server errors.
func (e *HTTPError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests ||
		e.Status == http.StatusRequestTimeout ||
		e.Status >= 500
}

// ParseRetryAfter parses a Retry-After header value (delta-seconds form).
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// RetryConfig controls the retry loop for provider HTTP calls.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// RetryDo runs fn with exponential backoff and jitter. Retries only on
// retryable HTTPErrors; any other error aborts immediately. A Retry-After
// duration from the server overrides the computed backoff.
func RetryDo[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		httpErr, ok := err.(*HTTPError)
		if !ok || !httpErr.Retryable() || attempt == cfg.MaxAttempts {
			return zero, err
		}

		delay := cfg.BaseDelay << (attempt - 1)
		if httpErr.RetryAfter > 0 {
			delay = httpErr.RetryAfter
		}
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		// jitter up to 25% to avoid thundering herd
		delay += time.Duration(rand.Int63n(int64(delay)/4 + 1))

		slog.Warn("provider call failed, retrying",
			"attempt", attempt, "status", httpErr.Status, "delay", delay)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, lastErr
}

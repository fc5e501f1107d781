package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"
)

// RetryConfig controls how outbound YouTube, backend and TMDB calls are retried.
type RetryConfig struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration // also caps a server-sent Retry-After
	Multiplier  float64
}

// DefaultRetryConfig keeps a resolution inside its 10s budget: at most three attempts.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:  2,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     4 * time.Second,
	Multiplier:  2.0,
}

// wait returns the pause before retry number attempt (0-based).
func (rc RetryConfig) wait(attempt int, hint time.Duration) time.Duration {
	w := time.Duration(float64(rc.InitialWait) * math.Pow(rc.Multiplier, float64(attempt)))
	if hint > w {
		w = hint
	}
	if rc.MaxWait > 0 && w > rc.MaxWait {
		w = rc.MaxWait
	}
	return w
}

// RetryDo calls fn until it succeeds, fails permanently or MaxRetries is spent.
// Context cancellation and expiry are never retried.
func RetryDo[T any](ctx context.Context, rc RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= rc.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == rc.MaxRetries {
			break
		}

		var hint time.Duration
		var se *retryStatusError
		if errors.As(err, &se) {
			hint = se.RetryAfter
		}
		pause := rc.wait(attempt, hint)
		slog.Debug("retrying", slog.Int("attempt", attempt+1), slog.Duration("wait", pause), slog.Any("error", err))

		t := time.NewTimer(pause)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}

// RetryHTTP sends the request built by fn, retrying 429 and 5xx gateway statuses.
// Other statuses are returned to the caller with the body unread.
func RetryHTTP(ctx context.Context, rc RetryConfig, fn func() (*http.Response, error)) (*http.Response, error) {
	return RetryDo(ctx, rc, func() (*http.Response, error) {
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		if !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}
		resp.Body.Close()
		return nil, &retryStatusError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	})
}

// retryStatusError is a retryable HTTP status, kept after the last attempt.
type retryStatusError struct {
	StatusCode int
	RetryAfter time.Duration
}

func (e *retryStatusError) Error() string {
	return fmt.Sprintf("status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// RetryStatus reports the HTTP status that exhausted RetryHTTP, if any.
func RetryStatus(err error) (int, bool) {
	var se *retryStatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}

// parseRetryAfter reads the delay-seconds form of Retry-After. YouTube never sends the date form.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func isRetryable(err error) bool {
	var se *retryStatusError
	if errors.As(err, &se) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	// net.Error also matches OpError, so it goes last.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

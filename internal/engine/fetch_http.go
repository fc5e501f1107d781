package engine

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// maxJSONBody caps API response bodies read into memory.
const maxJSONBody = 2 << 20

// StatusError is returned for a non-2xx API response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

func newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	return bo
}

func httpClient() *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	return http.DefaultClient
}

// FetchJSON performs a GET against a JSON API and decodes the body into out.
// Transport errors and retryable statuses are retried with exponential backoff;
// any other non-200 status fails immediately with *StatusError.
func FetchJSON(ctx context.Context, fetchURL string, headers map[string]string, out any) error {
	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Accept-Encoding", "gzip")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := httpClient().Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		defer resp.Body.Close()

		body, err := readResponseBody(resp)
		if err != nil {
			return nil, err
		}
		if isRetryableStatus(resp.StatusCode) {
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: Truncate(string(body), 256)}
		}
		if resp.StatusCode != http.StatusOK {
			return nil, backoff.Permanent(&StatusError{StatusCode: resp.StatusCode, Body: Truncate(string(body), 256)})
		}
		return body, nil
	}

	maxElapsed := cfg.FetchTimeout
	if maxElapsed <= 0 {
		maxElapsed = 10 * time.Second
	}
	body, err := backoff.Retry(ctx, operation, backoff.WithBackOff(newBackOff()), backoff.WithMaxTries(3), backoff.WithMaxElapsedTime(maxElapsed))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// PostJSON sends body as JSON and returns the raw response whatever its status.
// Only transport failures are retried; the caller owns status interpretation.
func PostJSON(ctx context.Context, client *http.Client, postURL string, headers map[string]string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	if client == nil {
		client = httpClient()
	}

	operation := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL, bytes.NewReader(payload))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return resp, nil
	}

	return backoff.Retry(ctx, operation, backoff.WithBackOff(newBackOff()), backoff.WithMaxTries(3))
}

// ReadLimited reads at most limit bytes of the response body, undoing gzip when needed.
func ReadLimited(resp *http.Response, limit int64) ([]byte, error) {
	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(io.LimitReader(r, limit))
}

// readResponseBody reads an API response body, handling gzip decompression if needed.
func readResponseBody(resp *http.Response) ([]byte, error) {
	return ReadLimited(resp, maxJSONBody)
}

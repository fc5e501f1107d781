package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_moviematch/internal/engine"
)

const (
	ytResultsPath   = "/results"
	ytMaxPageBytes  = 4 * 1024 * 1024
	defaultTimeout  = 10 * time.Second
	sourceScrape    = "scrape"
	sourceDelegated = "delegated"
	sourceCache     = "cache"
)

// ScrapeResolver fetches the YouTube results page itself and parses ytInitialData locally.
type ScrapeResolver struct {
	BaseURL    string
	HTTPClient *http.Client
	Browser    *engine.BrowserClient // non-nil = fetch with Chrome TLS fingerprint
	Limiter    *rate.Limiter         // nil = unlimited
	Retry      engine.RetryConfig
	Timeout    time.Duration
}

// NewScrapeResolver builds a ScrapeResolver from the engine configuration.
func NewScrapeResolver() *ScrapeResolver {
	r := &ScrapeResolver{
		BaseURL:    engine.Cfg.YouTubeBaseURL,
		HTTPClient: engine.Cfg.HTTPClient,
		Limiter:    engine.YouTubeLimiter(),
		Retry:      engine.DefaultRetryConfig,
		Timeout:    engine.Cfg.ResolveTimeout,
	}
	if engine.Cfg.UseBrowserFetch {
		r.Browser = engine.Cfg.BrowserClient
	}
	return r
}

// SearchURL returns the results page URL for a composed phrase.
func (r *ScrapeResolver) SearchURL(phrase string) string {
	base := strings.TrimRight(r.BaseURL, "/")
	if base == "" {
		base = "https://www.youtube.com"
	}
	return base + ytResultsPath + "?search_query=" + url.QueryEscape(phrase)
}

// Resolve implements Resolver.
func (r *ScrapeResolver) Resolve(ctx context.Context, q Query) (Match, error) {
	if err := q.Validate(); err != nil {
		return Match{}, err
	}
	return r.ResolvePhrase(ctx, q.Phrase())
}

// ResolvePhrase resolves an already-composed search phrase.
// The scraping backend uses it directly since its callers send the phrase.
func (r *ScrapeResolver) ResolvePhrase(ctx context.Context, phrase string) (Match, error) {
	phrase = engine.CollapseSpace(phrase)
	if phrase == "" {
		return Match{}, newError(KindInvalidQuery, "query is required", nil)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := r.fetch(ctx, r.SearchURL(phrase))
	if err != nil {
		return Match{}, err
	}

	cand, err := ParseSearchResults(page)
	if err != nil {
		return Match{}, err
	}
	return Match{
		VideoID: cand.VideoID,
		Title:   cand.Title,
		Phrase:  phrase,
		Source:  sourceScrape,
	}, nil
}

// fetch GETs the results page, returning a KindNetwork error on any transport
// failure, timeout or non-2xx status.
func (r *ScrapeResolver) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return nil, networkError(ctx, "rate limiter", err)
		}
	}
	engine.IncrYouTubeFetch()

	if r.Browser != nil {
		return r.fetchBrowser(ctx, pageURL)
	}

	client := r.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := engine.RetryHTTP(ctx, r.Retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return client.Do(req)
	})
	if err != nil {
		if code, ok := engine.RetryStatus(err); ok {
			return nil, newError(KindNetwork, fmt.Sprintf("search page returned %d", code), err)
		}
		return nil, networkError(ctx, "search page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(KindNetwork, fmt.Sprintf("search page returned %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, ytMaxPageBytes+1))
	if err != nil {
		return nil, networkError(ctx, "read search page", err)
	}
	return checkPageSize(body)
}

// ErrPageTooLarge is the cause of the NetworkError returned for results pages over
// ytMaxPageBytes. Parsing a cut-off page would misreport it as markup drift.
var ErrPageTooLarge = errors.New("search page too large")

func checkPageSize(body []byte) ([]byte, error) {
	if len(body) > ytMaxPageBytes {
		return nil, newError(KindNetwork, fmt.Sprintf("search page exceeds %d bytes", ytMaxPageBytes), ErrPageTooLarge)
	}
	return body, nil
}

// fetchBrowser runs the context-less stealth client and abandons it when ctx ends.
func (r *ScrapeResolver) fetchBrowser(ctx context.Context, pageURL string) ([]byte, error) {
	type result struct {
		data   []byte
		status int
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		headers := engine.ChromeHeaders()
		headers["referer"] = "https://www.youtube.com/"
		data, _, status, err := r.Browser.Do(http.MethodGet, pageURL, headers, nil)
		ch <- result{data: data, status: status, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, networkError(ctx, "search page", ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return nil, networkError(ctx, "search page", res.err)
		}
		if res.status < 200 || res.status > 299 {
			return nil, newError(KindNetwork, fmt.Sprintf("search page returned %d", res.status), nil)
		}
		return checkPageSize(res.data)
	}
}

// networkError wraps a transport failure, flagging deadline expiry as a timeout.
func networkError(ctx context.Context, what string, err error) *ResolveError {
	re := newError(KindNetwork, what+" request failed", err)
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		re.Timeout = true
	case errors.As(err, &netErr) && netErr.Timeout():
		re.Timeout = true
	}
	if re.Timeout {
		slog.Debug("youtube resolve: timed out", slog.String("step", what))
	}
	return re
}

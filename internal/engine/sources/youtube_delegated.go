package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go_moviematch/internal/engine"
)

const (
	scrapeEndpoint       = "/search/scrape-youtube"
	maxBackendBody       = 64 * 1024
	defaultNoMatchMsg    = "No suitable full movie found on YouTube for the given query."
	defaultRejectedMsg   = "YouTube scraping failed on backend."
	maxBackendMessageLen = 300
)

// DelegatedResolver asks a scraping backend to run the same algorithm server-side.
type DelegatedResolver struct {
	BackendURL string // API base, e.g. http://10.0.0.5:5000/api
	Token      string // bearer credential from the identity store
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewDelegatedResolver builds a DelegatedResolver from the engine configuration.
func NewDelegatedResolver() *DelegatedResolver {
	return &DelegatedResolver{
		BackendURL: engine.Cfg.ScrapeBackendURL,
		Token:      engine.Cfg.ScrapeBackendToken,
		HTTPClient: engine.Cfg.HTTPClient,
		Timeout:    engine.Cfg.ResolveTimeout,
	}
}

// Resolve implements Resolver.
func (r *DelegatedResolver) Resolve(ctx context.Context, q Query) (Match, error) {
	if err := q.Validate(); err != nil {
		return Match{}, err
	}
	phrase := q.Phrase()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	headers := map[string]string{"Authorization": "Bearer " + r.Token}
	endpoint := strings.TrimRight(r.BackendURL, "/") + scrapeEndpoint

	engine.IncrBackendCall()
	resp, err := engine.PostJSON(ctx, r.HTTPClient, endpoint, headers, engine.ScrapeRequest{Query: phrase})
	if err != nil {
		return Match{}, networkError(ctx, "scrape backend", err)
	}
	defer resp.Body.Close()

	body, err := engine.ReadLimited(resp, maxBackendBody)
	if err != nil {
		return Match{}, networkError(ctx, "read scrape backend", err)
	}

	var out engine.ScrapeResponse
	decodeErr := json.Unmarshal(body, &out)
	msg := engine.TruncateRunes(strings.TrimSpace(out.Message), maxBackendMessageLen, "...")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if msg == "" {
			msg = fmt.Sprintf("%s (status %d)", defaultRejectedMsg, resp.StatusCode)
		}
		return Match{}, backendError(KindUpstreamRejected, msg)
	}
	if decodeErr != nil {
		return Match{}, newError(KindMalformedPayload, "scrape backend returned invalid JSON", decodeErr)
	}
	if out.VideoID == "" {
		if msg == "" {
			msg = defaultNoMatchMsg
		}
		return Match{}, backendError(KindNoMatch, msg)
	}

	return Match{
		VideoID: out.VideoID,
		Phrase:  phrase,
		Source:  sourceDelegated,
	}, nil
}

func backendError(kind ErrorKind, msg string) *ResolveError {
	return &ResolveError{Kind: kind, Message: msg, Remote: true}
}

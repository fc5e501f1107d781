// Package sources resolves a movie title and year to a full-movie YouTube upload.
//
// Files by responsibility:
//   youtube_query.go       Query, phrase composition, watch/embed URLs
//   youtube_errors.go      ResolveError and the error kinds callers branch on
//   youtube_initialdata.go ytInitialData location, extraction and path walk
//   youtube_scrape.go      client-side variant: fetch the results page and parse it
//   youtube_delegated.go   server-delegated variant: POST the phrase to a scraping backend
//   youtube_player.go      Innertube /player playability check for a resolved id
//   resolver.go            Resolver interface, mode selection, caching, outcome accounting
package sources

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anatolykoptev/go_moviematch/internal/engine"
)

// Resolution modes selected by RESOLVER_MODE.
const (
	ModeScrape    = "scrape"
	ModeDelegated = "delegated"
)

// Match is a successful resolution. VideoID is never empty.
type Match struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title,omitempty"`
	Phrase  string `json:"phrase"`
	Source  string `json:"source"`
}

// Resolver maps a Query to the best-matching full-movie upload.
// Failures are always *ResolveError.
type Resolver interface {
	Resolve(ctx context.Context, q Query) (Match, error)
}

// NewResolver builds the configured variant, wrapped with caching and outcome accounting.
func NewResolver(mode string) (Resolver, error) {
	var base Resolver
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeScrape:
		base = NewScrapeResolver()
	case ModeDelegated:
		if engine.Cfg.ScrapeBackendURL == "" {
			return nil, fmt.Errorf("resolver mode %q requires SCRAPE_BACKEND_URL", ModeDelegated)
		}
		base = NewDelegatedResolver()
	default:
		return nil, fmt.Errorf("unknown resolver mode %q (valid: %s, %s)", mode, ModeScrape, ModeDelegated)
	}
	return &CachedResolver{Next: &ObservedResolver{Next: base}}, nil
}

// CachedResolver serves repeated queries from the engine cache.
// Only successes are stored, so NoMatch and failures are retried on the next call.
type CachedResolver struct {
	Next Resolver
}

func (c *CachedResolver) Resolve(ctx context.Context, q Query) (Match, error) {
	if err := q.Validate(); err != nil {
		return Match{}, err
	}
	key := engine.CacheKey("best_match", strings.ToLower(q.Phrase()))
	if m, ok := engine.CacheLoadJSON[Match](ctx, key); ok && m.VideoID != "" {
		m.Source = sourceCache
		return m, nil
	}

	m, err := c.Next.Resolve(ctx, q)
	if err != nil {
		return Match{}, err
	}
	engine.CacheStoreJSON(ctx, key, m)
	return m, nil
}

// PhraseResolver resolves an already-composed search phrase. ScrapeResolver implements it
// for the REST backend, which receives phrases rather than queries.
type PhraseResolver interface {
	ResolvePhrase(ctx context.Context, phrase string) (Match, error)
}

// ObservedResolver records outcome metrics and logs upstream markup drift distinctly.
type ObservedResolver struct {
	Next Resolver
}

func (o *ObservedResolver) Resolve(ctx context.Context, q Query) (Match, error) {
	return observe(ctx, q.Phrase(), func(ctx context.Context) (Match, error) {
		return o.Next.Resolve(ctx, q)
	})
}

// ObservedPhraseResolver is ObservedResolver for phrase lookups served to delegated clients.
type ObservedPhraseResolver struct {
	Next PhraseResolver
}

func (o *ObservedPhraseResolver) ResolvePhrase(ctx context.Context, phrase string) (Match, error) {
	return observe(ctx, phrase, func(ctx context.Context) (Match, error) {
		return o.Next.ResolvePhrase(ctx, phrase)
	})
}

func observe(ctx context.Context, phrase string, fn func(context.Context) (Match, error)) (Match, error) {
	start := time.Now()
	var m Match
	err := engine.TrackOperation(ctx, "youtube_resolve", func(ctx context.Context) error {
		var err error
		m, err = fn(ctx)
		return err
	})
	outcome := OutcomeOf(err)
	engine.RecordResolve(outcome)

	attrs := []any{
		slog.String("phrase", phrase),
		slog.String("outcome", outcome),
		slog.Duration("elapsed", time.Since(start)),
	}
	re, _ := AsResolveError(err)
	switch {
	case err == nil:
		slog.Debug("youtube resolve", append(attrs, slog.String("video_id", m.VideoID))...)
	case re != nil && re.Kind.Drift():
		slog.Warn("youtube resolve: upstream markup drift", append(attrs, slog.Bool("drift", true), slog.Any("error", err))...)
	case re != nil && re.Kind == KindNoMatch:
		slog.Info("youtube resolve: no match", attrs...)
	default:
		slog.Warn("youtube resolve failed", append(attrs, slog.Any("error", err))...)
	}
	return m, err
}

const noMatchMsg = "No full movie found on YouTube for this title."

// ToOutput renders a Resolve result for tool and API callers.
func ToOutput(q Query, m Match, err error) engine.BestMatchOutput {
	out := engine.BestMatchOutput{Phrase: q.Phrase()}
	if err == nil {
		out.Found = true
		out.VideoID = m.VideoID
		out.Title = m.Title
		out.WatchURL = WatchURL(m.VideoID)
		out.EmbedURL = EmbedURL(m.VideoID)
		out.Source = m.Source
		return out
	}

	re, ok := AsResolveError(err)
	if !ok {
		re = newError(KindNetwork, "", err)
	}
	out.ErrorCode = re.Kind.Code()
	out.Retryable = re.Kind.Retryable()
	switch re.Kind {
	case KindNoMatch:
		out.Message = noMatchMsg
		if re.Remote && re.Message != "" {
			out.Message = re.Message
		}
	case KindNetwork:
		if re.Timeout {
			out.Message = "YouTube did not respond in time. Try again."
		} else {
			out.Message = "Could not reach YouTube. Try again."
		}
	case KindUpstreamRejected:
		out.Message = re.Message
		if out.Message == "" {
			out.Message = defaultRejectedMsg
		}
	default:
		out.Message = "YouTube search results could not be read."
	}
	return out
}

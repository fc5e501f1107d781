package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	ResolveRequests        atomic.Int64
	ResolveMatches         atomic.Int64
	ResolveNoMatch         atomic.Int64
	ResolveNetworkErrors   atomic.Int64
	ResolveUpstreamRejects atomic.Int64
	ResolvePayloadNotFound atomic.Int64
	ResolveMalformed       atomic.Int64
	YouTubeFetches         atomic.Int64
	BackendCalls           atomic.Int64
	TMDBRequests           atomic.Int64
	TMDBErrors             atomic.Int64
	HistoryWrites          atomic.Int64
	SavedWrites            atomic.Int64
	SearchesRecorded       atomic.Int64
	ScrapeAPIRequests      atomic.Int64
}

// Resolution outcome codes, shared by the resolver, the MCP tools and the REST backend.
const (
	OutcomeMatch            = "Match"
	OutcomeNoMatch          = "NoMatch"
	OutcomeNetworkError     = "NetworkError"
	OutcomeUpstreamRejected = "UpstreamRejected"
	OutcomePayloadNotFound  = "PayloadNotFound"
	OutcomeMalformedPayload = "MalformedPayload"
)

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"resolve_requests":          metrics.ResolveRequests.Load(),
		"resolve_matches":           metrics.ResolveMatches.Load(),
		"resolve_no_match":          metrics.ResolveNoMatch.Load(),
		"resolve_network_errors":    metrics.ResolveNetworkErrors.Load(),
		"resolve_upstream_rejected": metrics.ResolveUpstreamRejects.Load(),
		"resolve_payload_not_found": metrics.ResolvePayloadNotFound.Load(),
		"resolve_malformed_payload": metrics.ResolveMalformed.Load(),
		"youtube_fetches":           metrics.YouTubeFetches.Load(),
		"backend_calls":             metrics.BackendCalls.Load(),
		"tmdb_requests":             metrics.TMDBRequests.Load(),
		"tmdb_errors":               metrics.TMDBErrors.Load(),
		"history_writes":            metrics.HistoryWrites.Load(),
		"saved_writes":              metrics.SavedWrites.Load(),
		"searches_recorded":         metrics.SearchesRecorded.Load(),
		"scrape_api_requests":       metrics.ScrapeAPIRequests.Load(),
		"cache_hits":                hits,
		"cache_misses":              misses,
		"cache_entries":             int64(CacheLen()),
	}
}

// FormatMetrics renders every GetMetrics counter as "name value" lines, sorted by name.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range slices.Sorted(maps.Keys(m)) {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// RecordResolve counts one finished resolution by outcome code.
func RecordResolve(outcome string) {
	metrics.ResolveRequests.Add(1)
	switch outcome {
	case OutcomeMatch:
		metrics.ResolveMatches.Add(1)
	case OutcomeNoMatch:
		metrics.ResolveNoMatch.Add(1)
	case OutcomeNetworkError:
		metrics.ResolveNetworkErrors.Add(1)
	case OutcomeUpstreamRejected:
		metrics.ResolveUpstreamRejects.Add(1)
	case OutcomePayloadNotFound:
		metrics.ResolvePayloadNotFound.Add(1)
	case OutcomeMalformedPayload:
		metrics.ResolveMalformed.Add(1)
	}
}

// Incrementors for sub-packages.
func IncrYouTubeFetch()     { metrics.YouTubeFetches.Add(1) }
func IncrBackendCall()      { metrics.BackendCalls.Add(1) }
func IncrTMDBRequest()      { metrics.TMDBRequests.Add(1) }
func IncrTMDBError()        { metrics.TMDBErrors.Add(1) }
func IncrHistoryWrite()     { metrics.HistoryWrites.Add(1) }
func IncrSavedWrite()       { metrics.SavedWrites.Add(1) }
func IncrSearchRecorded()   { metrics.SearchesRecorded.Add(1) }
func IncrScrapeAPIRequest() { metrics.ScrapeAPIRequests.Add(1) }

// TrackOperation runs fn and logs a warning when it takes longer than 5s.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}

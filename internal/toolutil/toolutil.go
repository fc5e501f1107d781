// Package toolutil provides shared helper functions for go_moviematch MCP tools.
package toolutil

import (
	"context"
	"strings"
	"time"

	"github.com/anatolykoptev/go_moviematch/internal/engine"
)

// NormLimit clamps a requested result count: <=0 → def, >maxN → maxN.
func NormLimit(n, def, maxN int) int {
	if n <= 0 {
		return def
	}
	if n > maxN {
		return maxN
	}
	return n
}

// NormUser trims a user id; tools reject the call when the result is empty.
func NormUser(userID string) string {
	return strings.TrimSpace(userID)
}

// Cached returns the cached value for key, or runs fn and caches a successful result.
func Cached[T any](ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	return CachedFor(ctx, key, 0, fn)
}

// CachedFor is Cached with an explicit TTL; ttl <= 0 uses the cache default.
func CachedFor[T any](ctx context.Context, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if out, ok := engine.CacheLoadJSON[T](ctx, key); ok {
		return out, nil
	}
	out, err := fn(ctx)
	if err != nil {
		return out, err
	}
	engine.CacheStoreJSONTTL(ctx, key, out, ttl)
	return out, nil
}

// ShortOverview trims long plot overviews for list output.
func ShortOverview(s string) string {
	return engine.TruncateRunes(engine.CollapseSpace(s), 240, "...")
}

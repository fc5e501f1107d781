package engine

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Resolved matches and TMDB lookups are cached in two tiers: an in-process LRU (L1)
// and, when REDIS_URL is set, Redis (L2), which survives restarts and is shared
// between replicas. A nil cache turns every lookup into a miss.
var resultCache *tieredCache

var (
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
)

type tieredCache struct {
	mu         sync.Mutex
	order      *list.List // front = most recently used
	items      map[string]*list.Element
	maxEntries int

	rdb  *redis.Client // nil = L1 only
	ttl  time.Duration // default entry lifetime
	stop chan struct{}
}

type cacheEntry struct {
	key       string
	data      []byte
	expiresAt time.Time
}

// InitCache replaces the process cache. redisURL may be empty to run L1 only;
// an unreachable Redis is logged and skipped.
func InitCache(redisURL string, ttl time.Duration, maxEntries int, cleanupInterval time.Duration) {
	c := &tieredCache{
		order:      list.New(),
		items:      make(map[string]*list.Element),
		maxEntries: maxEntries,
		ttl:        ttl,
		stop:       make(chan struct{}),
	}
	if redisURL != "" {
		c.rdb = dialRedis(redisURL)
	}

	if resultCache != nil {
		close(resultCache.stop)
	}
	resultCache = c
	slog.Info("cache: initialized", slog.Duration("ttl", ttl), slog.Bool("redis", c.rdb != nil), slog.Int("max_entries", maxEntries))

	go c.sweepLoop(cleanupInterval)
}

func dialRedis(redisURL string) *redis.Client {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		return nil
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
		_ = rdb.Close()
		return nil
	}
	slog.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
	return rdb
}

// CacheKey hashes parts into a fixed-length "mm:" key, safe for Redis.
func CacheKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("mm:%x", sum[:12])
}

// CacheGet looks in L1, then L2. An L2 hit is promoted into L1.
func CacheGet(ctx context.Context, key string) ([]byte, bool) {
	c := resultCache
	if c == nil {
		cacheMisses.Add(1)
		return nil, false
	}

	if data, ok := c.load(key); ok {
		cacheHits.Add(1)
		return data, true
	}
	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			slog.Debug("cache: L2 hit", slog.String("key", key))
			cacheHits.Add(1)
			c.store(key, data, c.ttl)
			return data, true
		}
		if err != redis.Nil {
			slog.Debug("cache: L2 get failed", slog.Any("error", err))
		}
	}

	cacheMisses.Add(1)
	return nil, false
}

// CacheSet stores data under key for the default TTL.
func CacheSet(ctx context.Context, key string, data []byte) {
	CacheSetTTL(ctx, key, data, 0)
}

// CacheSetTTL stores data under key in both tiers; ttl <= 0 uses the default.
func CacheSetTTL(ctx context.Context, key string, data []byte, ttl time.Duration) {
	c := resultCache
	if c == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.store(key, data, ttl)
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.Any("error", err))
		}
	}
}

// CacheStats returns the hit/miss counters.
func CacheStats() (hits, misses int64) {
	return cacheHits.Load(), cacheMisses.Load()
}

// CacheLen reports the number of L1 entries, expired ones included until swept.
func CacheLen() int {
	c := resultCache
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// CacheLoadJSON decodes a cached T. Undecodable entries read as a miss.
func CacheLoadJSON[T any](ctx context.Context, key string) (T, bool) {
	var out T
	data, ok := CacheGet(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

// CacheStoreJSON caches v for the default TTL.
func CacheStoreJSON[T any](ctx context.Context, key string, v T) {
	CacheStoreJSONTTL(ctx, key, v, 0)
}

// CacheStoreJSONTTL caches v for ttl.
func CacheStoreJSONTTL[T any](ctx context.Context, key string, v T, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Debug("cache: marshal failed", slog.String("key", key), slog.Any("error", err))
		return
	}
	CacheSetTTL(ctx, key, data, ttl)
}

func (c *tieredCache) load(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*cacheEntry)
	if time.Now().After(e.expiresAt) {
		c.removeLocked(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return e.data, true
}

func (c *tieredCache) store(key string, data []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := time.Now().Add(ttl)
	if el, ok := c.items[key]; ok {
		e := el.Value.(*cacheEntry)
		e.data, e.expiresAt = data, exp
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&cacheEntry{key: key, data: data, expiresAt: exp})
	for c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		c.removeLocked(c.order.Back())
	}
}

func (c *tieredCache) removeLocked(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*cacheEntry).key)
}

// sweep drops expired L1 entries and returns how many went.
func (c *tieredCache) sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*cacheEntry).expiresAt) {
			c.removeLocked(el)
			n++
		}
		el = prev
	}
	return n
}

func (c *tieredCache) sweepLoop(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			if n := c.sweep(now); n > 0 {
				slog.Debug("cache: swept expired entries", slog.Int("count", n))
			}
		}
	}
}

package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	YouTubeBaseURL       string        // search engine base, e.g. https://www.youtube.com
	ResolverMode         string        // "scrape" (default) or "delegated"
	ResolveTimeout       time.Duration // hard bound on one resolution call
	ScrapeBackendURL     string        // delegated variant: backend API base, e.g. http://host:5000/api
	ScrapeBackendToken   string        // delegated variant: bearer credential
	YouTubeRPS           float64       // outbound youtube.com requests per second; <=0 = unlimited
	YouTubeBurst         int
	UseBrowserFetch      bool // fetch search pages through BrowserClient instead of HTTPClient
	TMDBAPIKey           string
	TMDBBaseURL          string
	DatabaseURL          string // non-empty = watch history in Postgres
	HistoryDir           string // SQLite watch history directory
	FetchTimeout         time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	HTTPClient           *http.Client
	BrowserClient        *BrowserClient // nil = browser fetch disabled
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources, movies).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	if c.YouTubeBaseURL == "" {
		c.YouTubeBaseURL = "https://www.youtube.com"
	}
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = 10 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	cfg = c
	Cfg = &cfg
	initYouTubeLimiter(c.YouTubeRPS, c.YouTubeBurst)
}

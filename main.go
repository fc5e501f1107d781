// go_moviematch: movie playback MCP server.
//
// Resolves movies to full-length YouTube uploads (youtube_best_match, movie_play),
// browses TMDB metadata and keeps per-user watch history.
// Optionally serves the scrape backend (POST /api/search/scrape-youtube) for
// clients running in delegated mode.
package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_moviematch/internal/engine"
	"github.com/anatolykoptev/go_moviematch/internal/engine/movies"
	"github.com/anatolykoptev/go_moviematch/internal/engine/sources"
	"github.com/anatolykoptev/go_moviematch/internal/movieserver"
	"github.com/anatolykoptev/go_moviematch/internal/scrapeapi"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initEngine()
	mcpPort := env.Str("MCP_PORT", "8893")

	resolver, err := sources.NewResolver(engine.Cfg.ResolverMode)
	if err != nil {
		slog.Error("resolver init failed", slog.Any("error", err))
		return
	}

	deps := movieserver.Deps{Resolver: resolver}
	if engine.Cfg.TMDBAPIKey != "" {
		deps.TMDB = movies.NewTMDBClient(engine.Cfg.TMDBBaseURL, engine.Cfg.TMDBAPIKey)
	} else {
		slog.Warn("TMDB_API_KEY not set, movie_* tools disabled")
	}

	if envFlag("VERIFY_PLAYABLE") {
		deps.Verifier = sources.NewPlayerClient()
	}

	store, err := movies.OpenStore(ctx, engine.Cfg.DatabaseURL, engine.Cfg.HistoryDir)
	if err != nil {
		slog.Warn("store init failed, history and saved movie tools disabled", slog.Any("error", err))
	} else {
		deps.History = store
		deps.Saved = store
		deps.Searches = store
		defer store.Close()
	}

	startScrapeAPI(ctx)

	slog.Info("starting go_moviematch",
		slog.String("port", mcpPort),
		slog.String("resolver_mode", engine.Cfg.ResolverMode),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_moviematch",
		Version: version,
	}, nil)

	movieserver.RegisterTools(server, deps)

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_moviematch",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 60 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() {
	c := engine.Config{
		YouTubeBaseURL:       env.Str("YOUTUBE_BASE_URL", "https://www.youtube.com"),
		ResolverMode:         env.Str("RESOLVER_MODE", sources.ModeScrape),
		ResolveTimeout:       env.Duration("RESOLVE_TIMEOUT", 10*time.Second),
		ScrapeBackendURL:     env.Str("SCRAPE_BACKEND_URL", ""),
		ScrapeBackendToken:   env.Str("SCRAPE_BACKEND_TOKEN", ""),
		YouTubeRPS:           env.Float("YOUTUBE_RPS", 2),
		YouTubeBurst:         env.Int("YOUTUBE_BURST", 4),
		UseBrowserFetch:      envFlag("USE_BROWSER_FETCH"),
		TMDBAPIKey:           env.Str("TMDB_API_KEY", ""),
		TMDBBaseURL:          env.Str("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		DatabaseURL:          env.Str("DATABASE_URL", ""),
		HistoryDir:           env.Str("HISTORY_DIR", ""),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", 10*time.Second),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	if c.UseBrowserFetch {
		bc, err := engine.NewBrowserClient(15, env.Str("WEBSHARE_API_KEY", ""))
		if err != nil {
			slog.Error("stealth client init failed, using plain http", slog.Any("error", err))
		} else {
			c.BrowserClient = bc
		}
	}

	engine.Init(c)

	cacheTTL := env.Duration("CACHE_TTL", 6*time.Hour)
	engine.InitCache(env.Str("REDIS_URL", ""), cacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
}

// startScrapeAPI serves the delegated-mode backend when SCRAPE_API_PORT is set.
// It always scrapes locally, whatever RESOLVER_MODE says.
func startScrapeAPI(ctx context.Context) {
	port := env.Str("SCRAPE_API_PORT", "")
	if port == "" {
		return
	}
	token := env.Str("SCRAPE_API_TOKEN", "")
	if token == "" {
		slog.Warn("SCRAPE_API_PORT set without SCRAPE_API_TOKEN, scrape API not started")
		return
	}

	api := &scrapeapi.Server{
		Resolver: &sources.ObservedPhraseResolver{Next: sources.NewScrapeResolver()},
		Token:    token,
	}
	addr := net.JoinHostPort("", port)
	go func() {
		slog.Info("scrape api listening", slog.String("addr", addr))
		if err := scrapeapi.ListenAndServe(ctx, addr, api.Routes()); err != nil && err != http.ErrServerClosed {
			slog.Error("scrape api failed", slog.Any("error", err))
		}
	}()
}

func envFlag(key string) bool {
	switch strings.ToLower(env.Str(key, "")) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

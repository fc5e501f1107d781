// Package scrapeapi exposes the scrape resolver over HTTP so that thin clients
// can delegate YouTube lookups to this service.
package scrapeapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/anatolykoptev/go_moviematch/internal/engine"
	"github.com/anatolykoptev/go_moviematch/internal/engine/sources"
	"github.com/anatolykoptev/go_moviematch/internal/toolutil"
)

const (
	maxRequestBody = 16 * 1024
	noMatchMessage = "No suitable full movie found on YouTube for the given query."
)

// Server serves POST /api/search/scrape-youtube.
type Server struct {
	Resolver sources.PhraseResolver // wrap in sources.ObservedPhraseResolver for metrics
	Token    string
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.With(BearerAuth(s.Token)).Post("/search/scrape-youtube", s.handleScrape)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	engine.IncrScrapeAPIRequest()

	var req engine.ScrapeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	phrase := engine.CollapseSpace(req.Query)
	if phrase == "" {
		RespondError(w, http.StatusBadRequest, "Query is required.")
		return
	}

	key := engine.CacheKey("scrape_api", strings.ToLower(phrase))
	m, err := toolutil.Cached(r.Context(), key, func(ctx context.Context) (sources.Match, error) {
		return s.Resolver.ResolvePhrase(ctx, phrase)
	})
	if err == nil {
		RespondJSON(w, http.StatusOK, engine.ScrapeResponse{VideoID: m.VideoID})
		return
	}

	slog.Debug("scrape api: resolve failed", slog.String("query", phrase), slog.String("outcome", sources.OutcomeOf(err)))
	switch {
	case errors.Is(err, sources.ErrNoMatch):
		// Delegated clients read any non-2xx as UpstreamRejected, so NoMatch is a 200 without videoId.
		RespondError(w, http.StatusOK, noMatchMessage)
	case errors.Is(err, sources.ErrInvalidQuery):
		RespondError(w, http.StatusBadRequest, "Query is required.")
	default:
		RespondError(w, http.StatusBadGateway, "YouTube scraping failed on backend.")
	}
}

// RespondJSON sends a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("scrape api: encode response", slog.Any("error", err))
		}
	}
}

// RespondError sends {"message": ...}, the error shape delegated clients read.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, engine.ScrapeResponse{Message: message})
}

// ListenAndServe runs handler on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

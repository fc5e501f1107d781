package movieserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_moviematch/internal/engine"
	"github.com/anatolykoptev/go_moviematch/internal/engine/movies"
	"github.com/anatolykoptev/go_moviematch/internal/engine/sources"
	"github.com/anatolykoptev/go_moviematch/internal/toolutil"
)

const (
	defaultListLimit = 20
	maxListLimit     = 50
	trendingTTL      = time.Hour // TMDB popularity moves daily
)

func registerMovieTrending(server *mcp.Server, h *handlers) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "movie_trending",
		Description: "List trending movies: the titles users search for most (source=searches, with search_count), or TMDB's currently popular movies until searches are recorded (source=tmdb). Use the id with movie_details or movie_play.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, h.trending)
}

func (h *handlers) trending(ctx context.Context, _ *mcp.CallToolRequest, input movies.TrendingInput) (*mcp.CallToolResult, movies.MovieList, error) {
	if h.deps.Searches != nil {
		top, err := h.deps.Searches.TopSearched(ctx, toolutil.NormLimit(input.Limit, movies.DefaultTopSearched, maxListLimit))
		switch {
		case err != nil:
			slog.Warn("movie_trending: search counts unavailable", slog.Any("error", err))
		case len(top) > 0:
			return nil, movies.FromSearchCounts(top), nil
		}
	}

	list, err := toolutil.CachedFor(ctx, engine.CacheKey("movie_trending"), trendingTTL, h.deps.TMDB.Discover)
	if err != nil {
		return nil, movies.MovieList{}, err
	}
	out := toMovieList("", list, input.Limit)
	out.Source = movies.SourceTMDB
	return nil, out, nil
}

func registerMovieSearch(server *mcp.Server, h *handlers) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "movie_search",
		Description: "Search TMDB movies by title. Returns id, title, year, poster_url and rating per result; an empty query returns trending movies.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, h.search)
}

func (h *handlers) search(ctx context.Context, _ *mcp.CallToolRequest, input movies.SearchInput) (*mcp.CallToolResult, movies.MovieList, error) {
	query := engine.CollapseSpace(input.Query)
	key := engine.CacheKey("movie_search", strings.ToLower(query))
	list, err := toolutil.Cached(ctx, key, func(ctx context.Context) ([]movies.Movie, error) {
		return h.deps.TMDB.Search(ctx, query)
	})
	if err != nil {
		return nil, movies.MovieList{}, err
	}
	h.recordSearch(ctx, query, list)
	return nil, toMovieList(query, list, input.Limit), nil
}

// recordSearch counts a titled search against its top result.
func (h *handlers) recordSearch(ctx context.Context, query string, list []movies.Movie) {
	if h.deps.Searches == nil || query == "" || len(list) == 0 {
		return
	}
	if err := h.deps.Searches.RecordSearch(ctx, query, list[0]); err != nil {
		slog.Debug("movie_search: record search failed", slog.String("query", query), slog.Any("error", err))
		return
	}
	engine.IncrSearchRecorded()
}

func toMovieList(query string, list []movies.Movie, limit int) movies.MovieList {
	items := movies.ToListItems(list, toolutil.NormLimit(limit, defaultListLimit, maxListLimit))
	for i := range items {
		items[i].Overview = toolutil.ShortOverview(items[i].Overview)
	}
	return movies.MovieList{Query: query, Movies: items, Total: len(items)}
}

func registerMovieDetails(server *mcp.Server, h *handlers) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "movie_details",
		Description: "Get TMDB details for a movie by id: overview, release date, runtime, genres, poster and the official YouTube trailer when one is listed.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, h.details)
}

func (h *handlers) details(ctx context.Context, _ *mcp.CallToolRequest, input movies.DetailsInput) (*mcp.CallToolResult, *movies.DetailsResult, error) {
	if input.MovieID <= 0 {
		return nil, nil, errors.New("movie_id is required")
	}
	d, err := h.deps.TMDB.Details(ctx, input.MovieID)
	if err != nil {
		return nil, nil, err
	}
	result := movies.ToDetailsResult(d)

	// Trailer is optional; a videos lookup failure still returns the details.
	v, ok, err := h.deps.TMDB.Trailer(ctx, input.MovieID)
	switch {
	case err != nil:
		slog.Debug("movie_details: trailer lookup failed", slog.Int64("movie_id", input.MovieID), slog.Any("error", err))
	case ok:
		result.TrailerURL = sources.WatchURL(v.Key)
	}
	return nil, result, nil
}

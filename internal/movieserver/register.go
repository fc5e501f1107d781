package movieserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_moviematch/internal/engine/movies"
	"github.com/anatolykoptev/go_moviematch/internal/engine/sources"
)

// Deps are the long-lived services the tools share, built once in main.
type Deps struct {
	Resolver sources.Resolver
	TMDB     *movies.TMDBClient
	History  movies.HistoryStore // nil disables the watch_history_* tools
	Saved    movies.SavedStore   // nil disables the saved_movie_* tools
	Searches movies.SearchStats  // nil keeps movie_trending on TMDB popularity
	Verifier movies.PlayabilityChecker
}

// handlers binds tool callbacks to Deps.
type handlers struct {
	deps   Deps
	player *movies.Player
}

func newHandlers(deps Deps) *handlers {
	h := &handlers{deps: deps}
	if deps.TMDB != nil {
		h.player = &movies.Player{Movies: deps.TMDB, Resolver: deps.Resolver, History: deps.History, Verifier: deps.Verifier}
	}
	return h
}

// RegisterTools registers all movie tools on the given MCP server:
// youtube_best_match, movie_play, movie_trending, movie_search, movie_details
// and, when stores are configured, watch_history_{log,list,delete,clear} and
// saved_movie_{save,list,delete}.
func RegisterTools(server *mcp.Server, deps Deps) {
	h := newHandlers(deps)

	registerBestMatch(server, h)
	if deps.TMDB != nil {
		registerMoviePlay(server, h)
		registerMovieTrending(server, h)
		registerMovieSearch(server, h)
		registerMovieDetails(server, h)
	}
	if deps.History != nil {
		registerHistoryLog(server, h)
		registerHistoryList(server, h)
		registerHistoryDelete(server, h)
		registerHistoryClear(server, h)
	}
	if deps.Saved != nil {
		registerSavedSave(server, h)
		registerSavedList(server, h)
		registerSavedDelete(server, h)
	}
}

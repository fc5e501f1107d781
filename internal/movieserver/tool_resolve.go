package movieserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_moviematch/internal/engine"
	"github.com/anatolykoptev/go_moviematch/internal/engine/movies"
	"github.com/anatolykoptev/go_moviematch/internal/engine/sources"
)

func registerBestMatch(server *mcp.Server, h *handlers) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_best_match",
		Description: "Find a full-length upload of a movie on YouTube. Searches \"<title> <year> full movie\" and returns the first video result (video_id, watch_url, embed_url). found=false with error_code NoMatch means YouTube has no candidate; retryable=true marks transient failures (NetworkError, UpstreamRejected).",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, h.bestMatch)
}

func (h *handlers) bestMatch(ctx context.Context, _ *mcp.CallToolRequest, input engine.BestMatchInput) (*mcp.CallToolResult, engine.BestMatchOutput, error) {
	q := sources.NewQuery(input.Title, input.Year)
	if err := q.Validate(); err != nil {
		return nil, engine.BestMatchOutput{}, err
	}
	m, err := h.deps.Resolver.Resolve(ctx, q)
	return nil, sources.ToOutput(q, m, err), nil
}

func registerMoviePlay(server *mcp.Server, h *handlers) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "movie_play",
		Description: "Start playback of a TMDB movie: looks up title and release year, finds the full movie on YouTube and, when user_id is set, records it in watch history. Returns embed_url for the player or a user-facing message when no upload exists.",
	}, h.play)
}

func (h *handlers) play(ctx context.Context, _ *mcp.CallToolRequest, input movies.PlayInput) (*mcp.CallToolResult, *movies.PlayResult, error) {
	if input.MovieID <= 0 {
		return nil, nil, errors.New("movie_id is required")
	}
	result, err := h.player.Play(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return nil, result, nil
}

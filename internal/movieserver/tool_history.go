package movieserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_moviematch/internal/engine"
	"github.com/anatolykoptev/go_moviematch/internal/engine/movies"
	"github.com/anatolykoptev/go_moviematch/internal/toolutil"
)

var errUserRequired = errors.New("user_id is required")

func registerHistoryLog(server *mcp.Server, h *handlers) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "watch_history_log",
		Description: "Record that a user watched a movie. movie_play does this automatically; use this tool for playback started elsewhere. Returns the entry id.",
	}, h.historyLog)
}

func (h *handlers) historyLog(ctx context.Context, _ *mcp.CallToolRequest, input movies.HistoryLogInput) (*mcp.CallToolResult, *movies.HistoryResult, error) {
	userID := toolutil.NormUser(input.UserID)
	if userID == "" {
		return nil, nil, errUserRequired
	}
	id, err := h.deps.History.Log(ctx, movies.HistoryEntry{
		UserID:    userID,
		MovieID:   input.MovieID,
		Title:     engine.CollapseSpace(input.Title),
		PosterURL: input.PosterURL,
		VideoID:   input.VideoID,
		WatchedAt: time.Now(),
	})
	if err != nil {
		return nil, nil, err
	}
	engine.IncrHistoryWrite()
	return nil, &movies.HistoryResult{
		ID:      id,
		Message: fmt.Sprintf("Logged '%s' to watch history (id=%d)", input.Title, id),
	}, nil
}

func registerHistoryList(server *mcp.Server, h *handlers) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "watch_history_list",
		Description: "List a user's watch history, newest first. Set grouped=true to get Today / Yesterday / Earlier sections like the history screen.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, h.historyList)
}

func (h *handlers) historyList(ctx context.Context, _ *mcp.CallToolRequest, input movies.HistoryListInput) (*mcp.CallToolResult, *movies.HistoryListResult, error) {
	userID := toolutil.NormUser(input.UserID)
	if userID == "" {
		return nil, nil, errUserRequired
	}
	entries, err := h.deps.History.List(ctx, userID, input.Limit)
	if err != nil {
		return nil, nil, err
	}

	result := &movies.HistoryListResult{Total: len(entries)}
	if !input.Grouped {
		result.Entries = movies.ToHistoryItems(entries)
		return nil, result, nil
	}
	for _, s := range movies.GroupByDay(entries, time.Now()) {
		result.Sections = append(result.Sections, movies.HistoryGroup{
			Title:   s.Title,
			Entries: movies.ToHistoryItems(s.Entries),
		})
	}
	return nil, result, nil
}

func registerHistoryDelete(server *mcp.Server, h *handlers) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "watch_history_delete",
		Description: "Delete one watch history entry by id. Get ids from watch_history_list.",
		Annotations: &mcp.ToolAnnotations{DestructiveHint: ptr(true)},
	}, h.historyDelete)
}

func (h *handlers) historyDelete(ctx context.Context, _ *mcp.CallToolRequest, input movies.HistoryDeleteInput) (*mcp.CallToolResult, *movies.HistoryResult, error) {
	userID := toolutil.NormUser(input.UserID)
	if userID == "" {
		return nil, nil, errUserRequired
	}
	if input.ID <= 0 {
		return nil, nil, errors.New("id is required")
	}
	if err := h.deps.History.Delete(ctx, userID, input.ID); err != nil {
		return nil, nil, err
	}
	return nil, &movies.HistoryResult{
		ID:      input.ID,
		Message: fmt.Sprintf("History entry #%d deleted", input.ID),
	}, nil
}

func registerHistoryClear(server *mcp.Server, h *handlers) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "watch_history_clear",
		Description: "Delete a user's entire watch history. Returns how many entries were removed.",
		Annotations: &mcp.ToolAnnotations{DestructiveHint: ptr(true)},
	}, h.historyClear)
}

func (h *handlers) historyClear(ctx context.Context, _ *mcp.CallToolRequest, input movies.HistoryClearInput) (*mcp.CallToolResult, *movies.HistoryResult, error) {
	userID := toolutil.NormUser(input.UserID)
	if userID == "" {
		return nil, nil, errUserRequired
	}
	n, err := h.deps.History.Clear(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return nil, &movies.HistoryResult{
		Removed: n,
		Message: fmt.Sprintf("Removed %d history entries", n),
	}, nil
}

func ptr[T any](v T) *T { return &v }

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

func registerSavedSave(server *mcp.Server, h *handlers) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "saved_movie_save",
		Description: "Save a movie to a user's list. Only movie_id is needed when TMDB is configured; title, poster and overview are filled in from TMDB. Saving the same movie again refreshes it. Returns the saved id.",
	}, h.savedSave)
}

func (h *handlers) savedSave(ctx context.Context, _ *mcp.CallToolRequest, input movies.SavedSaveInput) (*mcp.CallToolResult, *movies.SavedResult, error) {
	userID := toolutil.NormUser(input.UserID)
	if userID == "" {
		return nil, nil, errUserRequired
	}
	if input.MovieID <= 0 {
		return nil, nil, errors.New("movie_id is required")
	}
	m := movies.SavedMovie{
		UserID:      userID,
		MovieID:     input.MovieID,
		Title:       engine.CollapseSpace(input.Title),
		PosterURL:   input.PosterURL,
		Overview:    input.Overview,
		ReleaseDate: input.ReleaseDate,
		SavedAt:     time.Now(),
	}
	if m.Title == "" && h.deps.TMDB != nil {
		d, err := h.deps.TMDB.Details(ctx, input.MovieID)
		if err != nil {
			return nil, nil, err
		}
		m.Title = d.Title
		m.PosterURL = d.PosterURL()
		m.Overview = d.Overview
		m.ReleaseDate = d.ReleaseDate
	}

	id, err := h.deps.Saved.SaveMovie(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	engine.IncrSavedWrite()
	return nil, &movies.SavedResult{
		ID:      id,
		Message: fmt.Sprintf("Saved '%s' (id=%d)", m.Title, id),
	}, nil
}

func registerSavedList(server *mcp.Server, h *handlers) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "saved_movie_list",
		Description: "List a user's saved movies, most recently saved first.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, h.savedList)
}

func (h *handlers) savedList(ctx context.Context, _ *mcp.CallToolRequest, input movies.SavedListInput) (*mcp.CallToolResult, *movies.SavedListResult, error) {
	userID := toolutil.NormUser(input.UserID)
	if userID == "" {
		return nil, nil, errUserRequired
	}
	saved, err := h.deps.Saved.ListSaved(ctx, userID, input.Limit)
	if err != nil {
		return nil, nil, err
	}
	items := movies.ToSavedItems(saved)
	for i := range items {
		items[i].Overview = toolutil.ShortOverview(items[i].Overview)
	}
	return nil, &movies.SavedListResult{Movies: items, Total: len(items)}, nil
}

func registerSavedDelete(server *mcp.Server, h *handlers) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "saved_movie_delete",
		Description: "Remove a movie from a user's saved list by saved id. Get ids from saved_movie_list.",
		Annotations: &mcp.ToolAnnotations{DestructiveHint: ptr(true)},
	}, h.savedDelete)
}

func (h *handlers) savedDelete(ctx context.Context, _ *mcp.CallToolRequest, input movies.SavedDeleteInput) (*mcp.CallToolResult, *movies.SavedResult, error) {
	userID := toolutil.NormUser(input.UserID)
	if userID == "" {
		return nil, nil, errUserRequired
	}
	if input.ID <= 0 {
		return nil, nil, errors.New("id is required")
	}
	if err := h.deps.Saved.DeleteSaved(ctx, userID, input.ID); err != nil {
		return nil, nil, err
	}
	return nil, &movies.SavedResult{
		ID:      input.ID,
		Message: fmt.Sprintf("Saved movie #%d removed", input.ID),
	}, nil
}

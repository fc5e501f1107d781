package movies

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_moviematch/internal/engine"
	"github.com/anatolykoptev/go_moviematch/internal/engine/sources"
)

// MetadataProvider looks up a movie by its TMDB id.
type MetadataProvider interface {
	Details(ctx context.Context, id int64) (*MovieDetails, error)
}

// PlayabilityChecker confirms a resolved video can be played.
type PlayabilityChecker interface {
	Check(ctx context.Context, videoID string) (sources.Playability, error)
}

// PlayInput is the input for movie_play.
type PlayInput struct {
	UserID  string `json:"user_id,omitempty" jsonschema:"Viewer id; when set, a successful playback is logged to watch history"`
	MovieID int64  `json:"movie_id" jsonschema:"TMDB movie id"`
}

// PlayResult is what the player needs to start, or why it cannot.
type PlayResult struct {
	Found     bool   `json:"found"`
	MovieID   int64  `json:"movie_id"`
	Title     string `json:"title"`
	Year      string `json:"year,omitempty"`
	PosterURL string `json:"poster_url,omitempty"`
	VideoID   string `json:"video_id,omitempty"`
	WatchURL  string `json:"watch_url,omitempty"`
	EmbedURL  string `json:"embed_url,omitempty"`
	Source    string `json:"source,omitempty"`
	HistoryID int64  `json:"history_id,omitempty"`

	// Set only when a PlayabilityChecker is configured and answered.
	Playable          *bool  `json:"playable,omitempty"`
	Embeddable        *bool  `json:"embeddable,omitempty"`
	PlayabilityReason string `json:"playability_reason,omitempty"`
	DurationMinutes   int    `json:"duration_minutes,omitempty"`

	ErrorCode string `json:"error_code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Player ties metadata, resolution and history together.
// History and Verifier may be nil.
type Player struct {
	Movies   MetadataProvider
	Resolver sources.Resolver
	History  HistoryStore
	Verifier PlayabilityChecker
	Now      func() time.Time
}

// Play resolves a TMDB movie to a YouTube upload. Resolution failures are reported
// in the result; only metadata and input errors are returned as errors.
func (p *Player) Play(ctx context.Context, in PlayInput) (*PlayResult, error) {
	if in.MovieID <= 0 {
		return nil, errors.New("movie_play: movie_id is required")
	}
	details, err := p.Movies.Details(ctx, in.MovieID)
	if err != nil {
		return nil, fmt.Errorf("movie_play: %w", err)
	}

	q := sources.QueryFromRelease(details.Title, details.ReleaseDate)
	res := &PlayResult{
		MovieID:   in.MovieID,
		Title:     details.Title,
		Year:      q.Year,
		PosterURL: details.PosterURL(),
	}

	m, err := p.Resolver.Resolve(ctx, q)
	out := sources.ToOutput(q, m, err)
	res.Found = out.Found
	res.VideoID = out.VideoID
	res.WatchURL = out.WatchURL
	res.EmbedURL = out.EmbedURL
	res.Source = out.Source
	res.ErrorCode = out.ErrorCode
	res.Retryable = out.Retryable
	res.Message = out.Message
	if err != nil {
		return res, nil
	}
	p.verify(ctx, res)

	if p.History != nil && in.UserID != "" {
		id, herr := p.History.Log(ctx, HistoryEntry{
			UserID:    in.UserID,
			MovieID:   in.MovieID,
			Title:     details.Title,
			PosterURL: res.PosterURL,
			VideoID:   m.VideoID,
			WatchedAt: p.now(),
		})
		if herr != nil {
			slog.Warn("movie_play: history log failed", slog.Int64("movie_id", in.MovieID), slog.Any("error", herr))
		} else {
			res.HistoryID = id
			engine.IncrHistoryWrite()
		}
	}
	return res, nil
}

// verify annotates res with YouTube's playability verdict. Failures are logged only.
func (p *Player) verify(ctx context.Context, res *PlayResult) {
	if p.Verifier == nil {
		return
	}
	v, err := p.Verifier.Check(ctx, res.VideoID)
	if err != nil {
		slog.Debug("movie_play: playability check failed", slog.String("video_id", res.VideoID), slog.Any("error", err))
		return
	}
	playable, embeddable := v.OK(), v.Embeddable
	res.Playable = &playable
	res.Embeddable = &embeddable
	res.PlayabilityReason = v.Reason
	res.DurationMinutes = int(v.Length.Minutes())
	if !playable {
		res.Message = "Found a match, but YouTube reports it unavailable: " + v.Reason
	}
}

func (p *Player) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

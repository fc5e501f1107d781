package movies

import "time"

// --- movie_search / movie_trending ---

type TrendingInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Max results (default 20)"`
}

type SearchInput struct {
	Query string `json:"query,omitempty" jsonschema:"Movie title to search for; empty returns trending movies"`
	Limit int    `json:"limit,omitempty" jsonschema:"Max results (default 20)"`
}

type MovieListItem struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Year        string  `json:"year,omitempty"`
	PosterURL   string  `json:"poster_url,omitempty"`
	VoteAverage float64 `json:"vote_average,omitempty"`
	Overview    string  `json:"overview,omitempty"`
	SearchCount int64   `json:"search_count,omitempty"`
}

// Trending sources reported in MovieList.Source.
const (
	SourceTMDB     = "tmdb"
	SourceSearches = "searches"
)

type MovieList struct {
	Query  string          `json:"query,omitempty"`
	Source string          `json:"source,omitempty" jsonschema:"tmdb or searches (most searched titles)"`
	Movies []MovieListItem `json:"movies"`
	Total  int             `json:"total"`
}

// --- movie_details ---

type DetailsInput struct {
	MovieID int64 `json:"movie_id" jsonschema:"TMDB movie id"`
}

type DetailsResult struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Tagline     string   `json:"tagline,omitempty"`
	Overview    string   `json:"overview,omitempty"`
	ReleaseDate string   `json:"release_date,omitempty"`
	Year        string   `json:"year,omitempty"`
	Runtime     int      `json:"runtime_minutes,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	VoteAverage float64  `json:"vote_average,omitempty"`
	IMDbID      string   `json:"imdb_id,omitempty"`
	PosterURL   string   `json:"poster_url,omitempty"`
	TrailerURL  string   `json:"trailer_url,omitempty"`
}

// ToDetailsResult flattens MovieDetails for tool output.
func ToDetailsResult(d *MovieDetails) *DetailsResult {
	genres := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		genres = append(genres, g.Name)
	}
	return &DetailsResult{
		ID:          d.ID,
		Title:       d.Title,
		Tagline:     d.Tagline,
		Overview:    d.Overview,
		ReleaseDate: d.ReleaseDate,
		Year:        d.Year(),
		Runtime:     d.Runtime,
		Genres:      genres,
		VoteAverage: d.VoteAverage,
		IMDbID:      d.IMDbID,
		PosterURL:   d.PosterURL(),
	}
}

// --- watch_history_* ---

type HistoryLogInput struct {
	UserID    string `json:"user_id"`
	MovieID   int64  `json:"movie_id"`
	Title     string `json:"title"`
	PosterURL string `json:"poster_url,omitempty"`
	VideoID   string `json:"video_id,omitempty"`
}

type HistoryListInput struct {
	UserID  string `json:"user_id"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Max entries (default 50, max 200)"`
	Grouped bool   `json:"grouped,omitempty" jsonschema:"Group entries into Today / Yesterday / Earlier sections"`
}

// HistoryItem is a HistoryEntry as rendered to tool callers.
type HistoryItem struct {
	ID        int64  `json:"id"`
	MovieID   int64  `json:"movie_id"`
	Title     string `json:"title"`
	PosterURL string `json:"poster_url,omitempty"`
	VideoID   string `json:"video_id,omitempty"`
	WatchedAt string `json:"watched_at"` // RFC 3339
}

type HistoryGroup struct {
	Title   string        `json:"title"`
	Entries []HistoryItem `json:"entries"`
}

type HistoryListResult struct {
	Entries  []HistoryItem  `json:"entries,omitempty"`
	Sections []HistoryGroup `json:"sections,omitempty"`
	Total    int            `json:"total"`
}

type HistoryDeleteInput struct {
	UserID string `json:"user_id"`
	ID     int64  `json:"id" jsonschema:"Entry id from watch_history_list"`
}

type HistoryClearInput struct {
	UserID string `json:"user_id"`
}

type HistoryResult struct {
	ID      int64  `json:"id,omitempty"`
	Removed int64  `json:"removed,omitempty"`
	Message string `json:"message"`
}

// --- saved_movie_* ---

type SavedSaveInput struct {
	UserID      string `json:"user_id"`
	MovieID     int64  `json:"movie_id" jsonschema:"TMDB movie id"`
	Title       string `json:"title,omitempty" jsonschema:"Looked up on TMDB when empty"`
	PosterURL   string `json:"poster_url,omitempty"`
	Overview    string `json:"overview,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
}

type SavedListInput struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Max movies (default 50, max 200)"`
}

type SavedDeleteInput struct {
	UserID string `json:"user_id"`
	ID     int64  `json:"id" jsonschema:"Saved id from saved_movie_list"`
}

// SavedItem is a SavedMovie as rendered to tool callers.
type SavedItem struct {
	ID          int64  `json:"id"`
	MovieID     int64  `json:"movie_id"`
	Title       string `json:"title"`
	Year        string `json:"year,omitempty"`
	PosterURL   string `json:"poster_url,omitempty"`
	Overview    string `json:"overview,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	SavedAt     string `json:"saved_at"` // RFC 3339
}

type SavedListResult struct {
	Movies []SavedItem `json:"movies"`
	Total  int         `json:"total"`
}

type SavedResult struct {
	ID      int64  `json:"id,omitempty"`
	Message string `json:"message"`
}

// ToListItems flattens TMDB results for tool output, keeping at most limit entries.
func ToListItems(list []Movie, limit int) []MovieListItem {
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	out := make([]MovieListItem, 0, len(list))
	for _, m := range list {
		out = append(out, MovieListItem{
			ID:          m.ID,
			Title:       m.Title,
			Year:        m.Year(),
			PosterURL:   m.PosterURL(),
			VoteAverage: m.VoteAverage,
			Overview:    m.Overview,
		})
	}
	return out
}

// ToHistoryItems renders entries with RFC 3339 timestamps.
func ToHistoryItems(entries []HistoryEntry) []HistoryItem {
	out := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryItem{
			ID:        e.ID,
			MovieID:   e.MovieID,
			Title:     e.Title,
			PosterURL: e.PosterURL,
			VideoID:   e.VideoID,
			WatchedAt: e.WatchedAt.Format(time.RFC3339),
		})
	}
	return out
}

// ToSavedItems renders saved movies with RFC 3339 timestamps.
func ToSavedItems(saved []SavedMovie) []SavedItem {
	out := make([]SavedItem, 0, len(saved))
	for _, m := range saved {
		out = append(out, SavedItem{
			ID:          m.ID,
			MovieID:     m.MovieID,
			Title:       m.Title,
			Year:        releaseYear(m.ReleaseDate),
			PosterURL:   m.PosterURL,
			Overview:    m.Overview,
			ReleaseDate: m.ReleaseDate,
			SavedAt:     m.SavedAt.Format(time.RFC3339),
		})
	}
	return out
}

// FromSearchCounts renders the most searched titles as a trending list.
func FromSearchCounts(counts []SearchCount) MovieList {
	items := make([]MovieListItem, 0, len(counts))
	for _, c := range counts {
		items = append(items, MovieListItem{
			ID:          c.MovieID,
			Title:       c.Title,
			PosterURL:   c.PosterURL,
			SearchCount: c.Count,
		})
	}
	return MovieList{Source: SourceSearches, Movies: items, Total: len(items)}
}

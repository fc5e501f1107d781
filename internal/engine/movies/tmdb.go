package movies

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_moviematch/internal/engine"
)

const (
	defaultTMDBBaseURL = "https://api.themoviedb.org/3"
	posterBaseURL      = "https://image.tmdb.org/t/p/w500"
)

// ErrNoAPIKey is returned when TMDB_API_KEY is not configured.
var ErrNoAPIKey = errors.New("tmdb: TMDB_API_KEY is not set")

// Movie is a list entry from discover or search.
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview,omitempty"`
	ReleaseDate string  `json:"release_date,omitempty"`
	PosterPath  string  `json:"poster_path,omitempty"`
	VoteAverage float64 `json:"vote_average,omitempty"`
}

// PosterURL returns the w500 poster image, or "" when TMDB has none.
func (m Movie) PosterURL() string { return posterURL(m.PosterPath) }

// Year returns the release year, or "" when the date is missing.
func (m Movie) Year() string { return releaseYear(m.ReleaseDate) }

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MovieDetails is the /movie/{id} payload, trimmed to what playback and the tools use.
type MovieDetails struct {
	Movie
	Runtime  int     `json:"runtime,omitempty"`
	Genres   []Genre `json:"genres,omitempty"`
	Tagline  string  `json:"tagline,omitempty"`
	Status   string  `json:"status,omitempty"`
	IMDbID   string  `json:"imdb_id,omitempty"`
	Homepage string  `json:"homepage,omitempty"`
}

// Video is one entry from /movie/{id}/videos.
type Video struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

type pagedMovies struct {
	Page    int     `json:"page"`
	Results []Movie `json:"results"`
}

type videoList struct {
	Results []Video `json:"results"`
}

// TMDBClient reads movie metadata from The Movie Database v3 API.
type TMDBClient struct {
	baseURL string
	apiKey  string
}

// NewTMDBClient returns a client for baseURL (default api.themoviedb.org/3).
func NewTMDBClient(baseURL, apiKey string) *TMDBClient {
	if baseURL == "" {
		baseURL = defaultTMDBBaseURL
	}
	return &TMDBClient{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

// Discover returns the current popularity-sorted movie list.
func (c *TMDBClient) Discover(ctx context.Context) ([]Movie, error) {
	var out pagedMovies
	if err := c.get(ctx, "/discover/movie", url.Values{"sort_by": {"popularity.desc"}}, &out); err != nil {
		return nil, fmt.Errorf("tmdb discover: %w", err)
	}
	return out.Results, nil
}

// Search finds movies by title. An empty query falls back to Discover.
func (c *TMDBClient) Search(ctx context.Context, query string) ([]Movie, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.Discover(ctx)
	}
	var out pagedMovies
	if err := c.get(ctx, "/search/movie", url.Values{"query": {query}}, &out); err != nil {
		return nil, fmt.Errorf("tmdb search: %w", err)
	}
	return out.Results, nil
}

// Details returns one movie, served from the engine cache when possible.
func (c *TMDBClient) Details(ctx context.Context, id int64) (*MovieDetails, error) {
	if id <= 0 {
		return nil, fmt.Errorf("tmdb details: invalid movie id %d", id)
	}
	key := engine.CacheKey("tmdb_details", strconv.FormatInt(id, 10))
	if d, ok := engine.CacheLoadJSON[MovieDetails](ctx, key); ok && d.ID == id {
		return &d, nil
	}

	var d MovieDetails
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10), nil, &d); err != nil {
		return nil, fmt.Errorf("tmdb details %d: %w", id, err)
	}
	if d.ID == 0 {
		d.ID = id
	}
	engine.CacheStoreJSON(ctx, key, d)
	return &d, nil
}

// Trailer returns the official YouTube trailer for a movie, if TMDB lists one.
// Non-official trailers and teasers are used as fallbacks in that order.
func (c *TMDBClient) Trailer(ctx context.Context, id int64) (Video, bool, error) {
	var out videoList
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10)+"/videos", nil, &out); err != nil {
		return Video{}, false, fmt.Errorf("tmdb videos %d: %w", id, err)
	}
	v, ok := pickTrailer(out.Results)
	return v, ok, nil
}

func pickTrailer(videos []Video) (Video, bool) {
	best, bestRank := Video{}, 0
	for _, v := range videos {
		if v.Site != "YouTube" || v.Key == "" {
			continue
		}
		rank := 0
		switch {
		case v.Type == "Trailer" && v.Official:
			rank = 3
		case v.Type == "Trailer":
			rank = 2
		case v.Type == "Teaser":
			rank = 1
		}
		if rank > bestRank {
			best, bestRank = v, rank
		}
	}
	return best, bestRank > 0
}

func (c *TMDBClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	engine.IncrTMDBRequest()
	err := engine.FetchJSON(ctx, c.baseURL+path+"?"+params.Encode(), nil, out)
	if err != nil {
		engine.IncrTMDBError()
	}
	return err
}

func posterURL(path string) string {
	if path == "" {
		return ""
	}
	return posterBaseURL + path
}

func releaseYear(date string) string {
	if len(date) >= 4 {
		if _, err := strconv.Atoi(date[:4]); err == nil {
			return date[:4]
		}
	}
	return ""
}

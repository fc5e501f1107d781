package sources

import (
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_moviematch/internal/engine"
)

// fullMovieQualifier biases search results toward complete-film uploads.
const fullMovieQualifier = "full movie"

var yearRE = regexp.MustCompile(`^\d{4}$`)

// Query is one resolution request. Title is required; Year is empty or 4 digits.
type Query struct {
	Title string `json:"title"`
	Year  string `json:"year,omitempty"`
}

// NewQuery normalises whitespace in title and year.
func NewQuery(title, year string) Query {
	return Query{Title: engine.CollapseSpace(title), Year: strings.TrimSpace(year)}
}

// QueryFromRelease builds a Query from a title and a YYYY-MM-DD release date.
// Malformed or missing dates produce a Query without a year.
func QueryFromRelease(title, releaseDate string) Query {
	year := ""
	if d := strings.TrimSpace(releaseDate); len(d) >= 4 && yearRE.MatchString(d[:4]) {
		year = d[:4]
	}
	return NewQuery(title, year)
}

// Validate checks the Query invariants.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Title) == "" {
		return newError(KindInvalidQuery, "title is required", nil)
	}
	if y := strings.TrimSpace(q.Year); y != "" && !yearRE.MatchString(y) {
		return newError(KindInvalidQuery, "year must be 4 digits, got "+y, nil)
	}
	return nil
}

// Phrase composes "<title> <year> full movie", or "<title> full movie" without a year.
func (q Query) Phrase() string {
	parts := []string{engine.CollapseSpace(q.Title)}
	if y := strings.TrimSpace(q.Year); y != "" {
		parts = append(parts, y)
	}
	parts = append(parts, fullMovieQualifier)
	return strings.Join(parts, " ")
}

// WatchURL returns the canonical watch page for a video.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// EmbedURL returns the embeddable player URL for a video.
func EmbedURL(videoID string) string {
	return "https://www.youtube.com/embed/" + videoID
}

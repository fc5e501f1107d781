package movies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTopSearched is how many terms the home screen's trending row shows.
const DefaultTopSearched = 5

// SearchCount is how often a search term was entered, with the top movie it first found.
type SearchCount struct {
	Term      string `json:"term"`
	Count     int64  `json:"count"`
	MovieID   int64  `json:"movie_id"`
	Title     string `json:"title"`
	PosterURL string `json:"poster_url,omitempty"`
}

// SearchStats counts searches so the most searched titles can be surfaced as trending.
type SearchStats interface {
	// RecordSearch bumps term's count, creating it with top as its movie on first use.
	RecordSearch(ctx context.Context, term string, top Movie) error
	// TopSearched returns up to n terms by count, most searched first.
	TopSearched(ctx context.Context, n int) ([]SearchCount, error)
}

// normTerm folds case and whitespace so "Heat" and " heat " count together.
func normTerm(term string) string {
	return strings.ToLower(strings.Join(strings.Fields(term), " "))
}

func validateSearch(term string, top Movie) error {
	switch {
	case term == "":
		return errors.New("record search: term is required")
	case top.ID <= 0:
		return errors.New("record search: movie id is required")
	}
	return nil
}

func topLimit(n int) int {
	if n <= 0 {
		return DefaultTopSearched
	}
	return min(n, maxHistoryLimit)
}

func initSearchSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS search_counts (
		term       TEXT PRIMARY KEY,
		count      INTEGER NOT NULL DEFAULT 1,
		movie_id   INTEGER NOT NULL,
		title      TEXT NOT NULL,
		poster_url TEXT,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_search_counts_count ON search_counts (count DESC)`)
	return err
}

func (s *SQLiteStore) RecordSearch(ctx context.Context, term string, top Movie) error {
	term = normTerm(term)
	if err := validateSearch(term, top); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_counts (term, count, movie_id, title, poster_url, updated_at)
		 VALUES (?, 1, ?, ?, ?, ?)
		 ON CONFLICT (term) DO UPDATE SET
		   count = search_counts.count + 1,
		   updated_at = excluded.updated_at`,
		term, top.ID, top.Title, top.PosterURL(),
		time.Now().UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	return nil
}

func (s *SQLiteStore) TopSearched(ctx context.Context, n int) ([]SearchCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT term, count, movie_id, title, poster_url
		 FROM search_counts ORDER BY count DESC, updated_at DESC LIMIT ?`,
		topLimit(n),
	)
	if err != nil {
		return nil, fmt.Errorf("top searched: query: %w", err)
	}
	defer rows.Close()

	out := []SearchCount{}
	for rows.Next() {
		var c SearchCount
		var poster sql.NullString
		if err := rows.Scan(&c.Term, &c.Count, &c.MovieID, &c.Title, &poster); err != nil {
			return nil, fmt.Errorf("top searched: scan: %w", err)
		}
		c.PosterURL = poster.String
		out = append(out, c)
	}
	return out, rows.Err()
}

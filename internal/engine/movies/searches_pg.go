package movies

import (
	"context"
	"fmt"
)

func (h *PGStore) RecordSearch(ctx context.Context, term string, top Movie) error {
	term = normTerm(term)
	if err := validateSearch(term, top); err != nil {
		return err
	}
	_, err := h.pool.Exec(ctx,
		`INSERT INTO search_counts (term, count, movie_id, title, poster_url)
		 VALUES ($1, 1, $2, $3, $4)
		 ON CONFLICT (term) DO UPDATE SET
		   count = search_counts.count + 1,
		   updated_at = now()`,
		term, top.ID, top.Title, top.PosterURL(),
	)
	if err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	return nil
}

func (h *PGStore) TopSearched(ctx context.Context, n int) ([]SearchCount, error) {
	rows, err := h.pool.Query(ctx,
		`SELECT term, count, movie_id, title, poster_url
		 FROM search_counts ORDER BY count DESC, updated_at DESC LIMIT $1`,
		topLimit(n),
	)
	if err != nil {
		return nil, fmt.Errorf("top searched: query: %w", err)
	}
	defer rows.Close()

	out := []SearchCount{}
	for rows.Next() {
		var c SearchCount
		if err := rows.Scan(&c.Term, &c.Count, &c.MovieID, &c.Title, &c.PosterURL); err != nil {
			return nil, fmt.Errorf("top searched: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

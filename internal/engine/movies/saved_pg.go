package movies

import (
	"context"
	"fmt"
	"time"
)

func (h *PGStore) SaveMovie(ctx context.Context, m SavedMovie) (int64, error) {
	if err := validateSaved(m); err != nil {
		return 0, err
	}
	if m.SavedAt.IsZero() {
		m.SavedAt = time.Now()
	}
	var id int64
	err := h.pool.QueryRow(ctx,
		`INSERT INTO saved_movies (user_id, movie_id, title, poster_url, overview, release_date, saved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, movie_id) DO UPDATE SET
		   title = EXCLUDED.title,
		   poster_url = EXCLUDED.poster_url,
		   overview = EXCLUDED.overview,
		   release_date = EXCLUDED.release_date
		 RETURNING id`,
		m.UserID, m.MovieID, m.Title, m.PosterURL, m.Overview, m.ReleaseDate, m.SavedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("saved_movie_save: upsert: %w", err)
	}
	return id, nil
}

func (h *PGStore) ListSaved(ctx context.Context, userID string, limit int) ([]SavedMovie, error) {
	if err := requireUser("saved_movie_list", userID); err != nil {
		return nil, err
	}
	rows, err := h.pool.Query(ctx,
		`SELECT id, user_id, movie_id, title, poster_url, overview, release_date, saved_at
		 FROM saved_movies WHERE user_id = $1 ORDER BY saved_at DESC, id DESC LIMIT $2`,
		userID, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("saved_movie_list: query: %w", err)
	}
	defer rows.Close()

	saved := []SavedMovie{}
	for rows.Next() {
		var m SavedMovie
		if err := rows.Scan(&m.ID, &m.UserID, &m.MovieID, &m.Title, &m.PosterURL, &m.Overview, &m.ReleaseDate, &m.SavedAt); err != nil {
			return nil, fmt.Errorf("saved_movie_list: scan: %w", err)
		}
		saved = append(saved, m)
	}
	return saved, rows.Err()
}

func (h *PGStore) DeleteSaved(ctx context.Context, userID string, id int64) error {
	if err := requireUser("saved_movie_delete", userID); err != nil {
		return err
	}
	tag, err := h.pool.Exec(ctx, `DELETE FROM saved_movies WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("saved_movie_delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("saved_movie_delete: id %d: %w", id, ErrSavedNotFound)
	}
	return nil
}

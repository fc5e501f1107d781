package movies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrSavedNotFound is returned by DeleteSaved when the saved movie does not exist for that user.
var ErrSavedNotFound = errors.New("saved movie not found")

// SavedMovie is a movie a user bookmarked. A user saves each movie at most once.
type SavedMovie struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	MovieID     int64     `json:"movie_id"`
	Title       string    `json:"title"`
	PosterURL   string    `json:"poster_url,omitempty"`
	Overview    string    `json:"overview,omitempty"`
	ReleaseDate string    `json:"release_date,omitempty"`
	SavedAt     time.Time `json:"saved_at"`
}

// SavedStore persists per-user saved movies.
type SavedStore interface {
	// SaveMovie stores m, refreshing title, poster and overview if the user
	// already saved that movie. It returns the saved id.
	SaveMovie(ctx context.Context, m SavedMovie) (int64, error)
	ListSaved(ctx context.Context, userID string, limit int) ([]SavedMovie, error)
	DeleteSaved(ctx context.Context, userID string, id int64) error
}

func validateSaved(m SavedMovie) error {
	switch {
	case strings.TrimSpace(m.UserID) == "":
		return errors.New("saved_movie_save: user_id is required")
	case m.MovieID <= 0:
		return errors.New("saved_movie_save: movie_id is required")
	case strings.TrimSpace(m.Title) == "":
		return errors.New("saved_movie_save: title is required")
	}
	return nil
}

func initSavedSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS saved_movies (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id      TEXT NOT NULL,
		movie_id     INTEGER NOT NULL,
		title        TEXT NOT NULL,
		poster_url   TEXT,
		overview     TEXT,
		release_date TEXT,
		saved_at     TEXT NOT NULL,
		UNIQUE (user_id, movie_id)
	);
	CREATE INDEX IF NOT EXISTS idx_saved_movies_user ON saved_movies (user_id, saved_at DESC)`)
	return err
}

func (s *SQLiteStore) SaveMovie(ctx context.Context, m SavedMovie) (int64, error) {
	if err := validateSaved(m); err != nil {
		return 0, err
	}
	if m.SavedAt.IsZero() {
		m.SavedAt = time.Now()
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO saved_movies (user_id, movie_id, title, poster_url, overview, release_date, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, movie_id) DO UPDATE SET
		   title = excluded.title,
		   poster_url = excluded.poster_url,
		   overview = excluded.overview,
		   release_date = excluded.release_date
		 RETURNING id`,
		m.UserID, m.MovieID, m.Title, m.PosterURL, m.Overview, m.ReleaseDate,
		m.SavedAt.UTC().Format(sqliteTimeLayout),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("saved_movie_save: upsert: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) ListSaved(ctx context.Context, userID string, limit int) ([]SavedMovie, error) {
	if err := requireUser("saved_movie_list", userID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, movie_id, title, poster_url, overview, release_date, saved_at
		 FROM saved_movies WHERE user_id = ? ORDER BY saved_at DESC, id DESC LIMIT ?`,
		userID, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("saved_movie_list: query: %w", err)
	}
	defer rows.Close()

	saved := []SavedMovie{}
	for rows.Next() {
		var m SavedMovie
		var poster, overview, release sql.NullString
		var savedAt string
		if err := rows.Scan(&m.ID, &m.UserID, &m.MovieID, &m.Title, &poster, &overview, &release, &savedAt); err != nil {
			return nil, fmt.Errorf("saved_movie_list: scan: %w", err)
		}
		m.PosterURL = poster.String
		m.Overview = overview.String
		m.ReleaseDate = release.String
		if m.SavedAt, err = time.Parse(sqliteTimeLayout, savedAt); err != nil {
			slog.Debug("saved: bad timestamp", slog.Int64("id", m.ID), slog.String("saved_at", savedAt))
		}
		saved = append(saved, m)
	}
	return saved, rows.Err()
}

func (s *SQLiteStore) DeleteSaved(ctx context.Context, userID string, id int64) error {
	if err := requireUser("saved_movie_delete", userID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_movies WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("saved_movie_delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("saved_movie_delete: id %d: %w", id, ErrSavedNotFound)
	}
	return nil
}

package movies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// sqliteTimeLayout is fixed-width so text ordering matches time ordering.
	sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrHistoryNotFound is returned by Delete when the entry does not exist for that user.
var ErrHistoryNotFound = errors.New("watch history entry not found")

// HistoryEntry is one playback event.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	MovieID   int64     `json:"movie_id"`
	Title     string    `json:"title"`
	PosterURL string    `json:"poster_url,omitempty"`
	VideoID   string    `json:"video_id,omitempty"`
	WatchedAt time.Time `json:"watched_at"`
}

// HistoryStore persists per-user watch history.
type HistoryStore interface {
	Log(ctx context.Context, e HistoryEntry) (int64, error)
	List(ctx context.Context, userID string, limit int) ([]HistoryEntry, error)
	Delete(ctx context.Context, userID string, id int64) error
	Clear(ctx context.Context, userID string) (int64, error)
	Close() error
}

// Store is the single database behind the history, saved movie and trending tools.
type Store interface {
	HistoryStore
	SavedStore
	SearchStats
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PGStore)(nil)
)

// OpenStore picks Postgres when databaseURL is set, SQLite under dir otherwise.
func OpenStore(ctx context.Context, databaseURL, dir string) (Store, error) {
	if databaseURL != "" {
		return ConnectPGStore(ctx, databaseURL)
	}
	return OpenSQLiteStore(DefaultHistoryPath(dir))
}

// DefaultHistoryPath returns dir/history.db, with dir defaulting to $HOME/.go_moviematch.
func DefaultHistoryPath(dir string) string {
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".go_moviematch")
	}
	return filepath.Join(dir, "history.db")
}

func validateEntry(e HistoryEntry) error {
	switch {
	case strings.TrimSpace(e.UserID) == "":
		return errors.New("watch_history_log: user_id is required")
	case e.MovieID <= 0:
		return errors.New("watch_history_log: movie_id is required")
	case strings.TrimSpace(e.Title) == "":
		return errors.New("watch_history_log: title is required")
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

func requireUser(op, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%s: user_id is required", op)
	}
	return nil
}

// SQLiteStore is the default single-node Store.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("history: mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	for _, initSchema := range []func(*sql.DB) error{initHistorySchema, initSavedSchema, initSearchSchema} {
		if err := initSchema(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: init schema: %w", err)
		}
	}
	slog.Info("history: sqlite store opened", slog.String("path", path))
	return &SQLiteStore{db: db}, nil
}

func initHistorySchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS watch_history (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    TEXT NOT NULL,
		movie_id   INTEGER NOT NULL,
		title      TEXT NOT NULL,
		poster_url TEXT,
		video_id   TEXT,
		watched_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_watch_history_user ON watch_history (user_id, watched_at DESC)`)
	return err
}

func (s *SQLiteStore) Log(ctx context.Context, e HistoryEntry) (int64, error) {
	if err := validateEntry(e); err != nil {
		return 0, err
	}
	if e.WatchedAt.IsZero() {
		e.WatchedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO watch_history (user_id, movie_id, title, poster_url, video_id, watched_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.MovieID, e.Title, e.PosterURL, e.VideoID,
		e.WatchedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("watch_history_log: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("watch_history_log: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) List(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	if err := requireUser("watch_history_list", userID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, movie_id, title, poster_url, video_id, watched_at
		 FROM watch_history WHERE user_id = ? ORDER BY watched_at DESC, id DESC LIMIT ?`,
		userID, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("watch_history_list: query: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		var poster, video sql.NullString
		var watched string
		if err := rows.Scan(&e.ID, &e.UserID, &e.MovieID, &e.Title, &poster, &video, &watched); err != nil {
			return nil, fmt.Errorf("watch_history_list: scan: %w", err)
		}
		e.PosterURL = poster.String
		e.VideoID = video.String
		if e.WatchedAt, err = time.Parse(sqliteTimeLayout, watched); err != nil {
			slog.Debug("history: bad timestamp", slog.Int64("id", e.ID), slog.String("watched_at", watched))
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, userID string, id int64) error {
	if err := requireUser("watch_history_delete", userID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM watch_history WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("watch_history_delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("watch_history_delete: id %d: %w", id, ErrHistoryNotFound)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, userID string) (int64, error) {
	if err := requireUser("watch_history_clear", userID); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM watch_history WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("watch_history_clear: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// HistorySection is a day bucket of the history screen.
type HistorySection struct {
	Title   string         `json:"title"`
	Entries []HistoryEntry `json:"entries"`
}

// GroupByDay buckets entries into "Today", "Yesterday" and "Earlier" relative to now,
// in now's location. Empty buckets are omitted; entry order is preserved.
func GroupByDay(entries []HistoryEntry, now time.Time) []HistorySection {
	loc := now.Location()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	yesterday := today.AddDate(0, 0, -1)

	buckets := []HistorySection{{Title: "Today"}, {Title: "Yesterday"}, {Title: "Earlier"}}
	for _, e := range entries {
		t := e.WatchedAt.In(loc)
		switch {
		case !t.Before(today):
			buckets[0].Entries = append(buckets[0].Entries, e)
		case !t.Before(yesterday):
			buckets[1].Entries = append(buckets[1].Entries, e)
		default:
			buckets[2].Entries = append(buckets[2].Entries, e)
		}
	}

	out := make([]HistorySection, 0, len(buckets))
	for _, b := range buckets {
		if len(b.Entries) > 0 {
			out = append(out, b)
		}
	}
	return out
}

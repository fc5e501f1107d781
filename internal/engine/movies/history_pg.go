package movies

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// PGStore is the Postgres Store for multi-replica deployments.
type PGStore struct {
	pool *pgxpool.Pool
}

// ConnectPGStore creates a pgx pool and runs schema migrations.
func ConnectPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	h := &PGStore{pool: pool}
	if err := h.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("history: postgres connected", slog.String("addr", config.ConnConfig.Host))
	return h, nil
}

func (h *PGStore) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := h.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (h *PGStore) Log(ctx context.Context, e HistoryEntry) (int64, error) {
	if err := validateEntry(e); err != nil {
		return 0, err
	}
	if e.WatchedAt.IsZero() {
		e.WatchedAt = time.Now()
	}
	var id int64
	err := h.pool.QueryRow(ctx,
		`INSERT INTO watch_history (user_id, movie_id, title, poster_url, video_id, watched_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		e.UserID, e.MovieID, e.Title, e.PosterURL, e.VideoID, e.WatchedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("watch_history_log: insert: %w", err)
	}
	return id, nil
}

func (h *PGStore) List(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	if err := requireUser("watch_history_list", userID); err != nil {
		return nil, err
	}
	rows, err := h.pool.Query(ctx,
		`SELECT id, user_id, movie_id, title, poster_url, video_id, watched_at
		 FROM watch_history WHERE user_id = $1 ORDER BY watched_at DESC, id DESC LIMIT $2`,
		userID, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("watch_history_list: query: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.MovieID, &e.Title, &e.PosterURL, &e.VideoID, &e.WatchedAt); err != nil {
			return nil, fmt.Errorf("watch_history_list: scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (h *PGStore) Delete(ctx context.Context, userID string, id int64) error {
	if err := requireUser("watch_history_delete", userID); err != nil {
		return err
	}
	tag, err := h.pool.Exec(ctx, `DELETE FROM watch_history WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("watch_history_delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("watch_history_delete: id %d: %w", id, ErrHistoryNotFound)
	}
	return nil
}

func (h *PGStore) Clear(ctx context.Context, userID string) (int64, error) {
	if err := requireUser("watch_history_clear", userID); err != nil {
		return 0, err
	}
	tag, err := h.pool.Exec(ctx, `DELETE FROM watch_history WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("watch_history_clear: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (h *PGStore) Close() error {
	h.pool.Close()
	return nil
}

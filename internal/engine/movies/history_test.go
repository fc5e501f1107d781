package movies

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	h, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHistoryLogAndList(t *testing.T) {
	h := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

	for i, title := range []string{"Heat", "Ronin", "The Matrix"} {
		id, err := h.Log(ctx, HistoryEntry{
			UserID:    "u1",
			MovieID:   int64(100 + i),
			Title:     title,
			VideoID:   "vid" + title,
			WatchedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("Log(%s): %v", title, err)
		}
		if id <= 0 {
			t.Errorf("expected positive id, got %d", id)
		}
	}
	if _, err := h.Log(ctx, HistoryEntry{UserID: "u2", MovieID: 9, Title: "Other"}); err != nil {
		t.Fatalf("Log(u2): %v", err)
	}

	got, err := h.List(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries for u1, got %d", len(got))
	}
	if got[0].Title != "The Matrix" || got[2].Title != "Heat" {
		t.Errorf("expected newest first, got %q ... %q", got[0].Title, got[2].Title)
	}
	if !got[0].WatchedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("WatchedAt round trip: got %v", got[0].WatchedAt)
	}
	if got[0].VideoID != "vidThe Matrix" {
		t.Errorf("VideoID = %q", got[0].VideoID)
	}

	limited, err := h.List(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 entries with limit, got %d", len(limited))
	}

	none, err := h.List(ctx, "nobody", 10)
	if err != nil {
		t.Fatalf("List nobody: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", none)
	}
}

func TestHistoryLogValidation(t *testing.T) {
	h := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		e    HistoryEntry
	}{
		{"missing user", HistoryEntry{MovieID: 1, Title: "Heat"}},
		{"missing movie", HistoryEntry{UserID: "u", Title: "Heat"}},
		{"blank title", HistoryEntry{UserID: "u", MovieID: 1, Title: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.Log(ctx, tt.e); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if _, err := h.List(ctx, "", 10); err == nil {
		t.Error("expected error for List without user")
	}
}

func TestHistoryDeleteAndClear(t *testing.T) {
	h := newTestStore(t)
	ctx := context.Background()

	id1, _ := h.Log(ctx, HistoryEntry{UserID: "u1", MovieID: 1, Title: "A"})
	_, _ = h.Log(ctx, HistoryEntry{UserID: "u1", MovieID: 2, Title: "B"})
	_, _ = h.Log(ctx, HistoryEntry{UserID: "u1", MovieID: 3, Title: "C"})
	other, _ := h.Log(ctx, HistoryEntry{UserID: "u2", MovieID: 1, Title: "A"})

	if err := h.Delete(ctx, "u1", other); !errors.Is(err, ErrHistoryNotFound) {
		t.Errorf("deleting another user's entry: got %v, want ErrHistoryNotFound", err)
	}
	if err := h.Delete(ctx, "u1", id1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := h.Delete(ctx, "u1", id1); !errors.Is(err, ErrHistoryNotFound) {
		t.Errorf("second delete: got %v, want ErrHistoryNotFound", err)
	}

	n, err := h.Clear(ctx, "u1")
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear removed %d, want 2", n)
	}

	rest, _ := h.List(ctx, "u2", 0)
	if len(rest) != 1 {
		t.Errorf("u2 history should be untouched, got %d entries", len(rest))
	}
}

func TestHistoryPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	h, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.Log(ctx, HistoryEntry{UserID: "u", MovieID: 1, Title: "Heat"}); err != nil {
		t.Fatal(err)
	}
	h.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file missing: %v", err)
	}
	h, err = OpenSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	got, _ := h.List(ctx, "u", 0)
	if len(got) != 1 {
		t.Errorf("expected 1 entry after reopen, got %d", len(got))
	}
}

func TestDefaultHistoryPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	if got := DefaultHistoryPath(""); got != "/home/tester/.go_moviematch/history.db" {
		t.Errorf("DefaultHistoryPath(\"\") = %q", got)
	}
	if got := DefaultHistoryPath("/data"); got != "/data/history.db" {
		t.Errorf("DefaultHistoryPath(/data) = %q", got)
	}
}

func TestClampLimit(t *testing.T) {
	tests := map[int]int{-1: 50, 0: 50, 1: 1, 50: 50, 200: 200, 201: 200, 10000: 200}
	for in, want := range tests {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestGroupByDay(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, loc)
	at := func(d, h int) HistoryEntry {
		return HistoryEntry{Title: "x", WatchedAt: time.Date(2026, 10, d, h, 0, 0, 0, loc)}
	}

	entries := []HistoryEntry{
		at(18, 8),
		at(18, 0),
		at(17, 23),
		at(17, 0),
		at(16, 23),
		at(1, 12),
	}
	got := GroupByDay(entries, now)
	if len(got) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(got))
	}
	want := []struct {
		title string
		n     int
	}{{"Today", 2}, {"Yesterday", 2}, {"Earlier", 2}}
	for i, w := range want {
		if got[i].Title != w.title || len(got[i].Entries) != w.n {
			t.Errorf("section %d = %q (%d), want %q (%d)", i, got[i].Title, len(got[i].Entries), w.title, w.n)
		}
	}

	// UTC timestamps are bucketed in now's location: 22:00 UTC on the 17th is 01:00 on the 18th.
	utc := HistoryEntry{WatchedAt: time.Date(2026, 10, 17, 22, 0, 0, 0, time.UTC)}
	got = GroupByDay([]HistoryEntry{utc}, now)
	if len(got) != 1 || got[0].Title != "Today" {
		t.Errorf("expected Today bucket for timezone-shifted entry, got %+v", got)
	}

	if got := GroupByDay(nil, now); len(got) != 0 {
		t.Errorf("expected no sections for empty history, got %d", len(got))
	}
}

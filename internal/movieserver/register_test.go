package movieserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_moviematch/internal/engine"
	"github.com/anatolykoptev/go_moviematch/internal/engine/movies"
	"github.com/anatolykoptev/go_moviematch/internal/engine/sources"
)

type stubResolver struct {
	match sources.Match
	err   error
	calls int
}

func (s *stubResolver) Resolve(_ context.Context, q sources.Query) (sources.Match, error) {
	s.calls++
	if s.err != nil {
		return sources.Match{}, s.err
	}
	m := s.match
	m.Phrase = q.Phrase()
	return m, nil
}

func newTMDB(t *testing.T) *movies.TMDBClient {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/discover/movie", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":603,"title":"The Matrix","release_date":"1999-03-30"},{"id":949,"title":"Heat","release_date":"1995-12-15"},{"id":78,"title":"Blade Runner","release_date":"1982-06-25"}]}`))
	})
	mux.HandleFunc("/search/movie", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":949,"title":"Heat","release_date":"1995-12-15","overview":"A group   of  professional bank robbers."}]}`))
	})
	mux.HandleFunc("/movie/949", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":949,"title":"Heat","release_date":"1995-12-15","runtime":170,"genres":[{"id":80,"name":"Crime"},{"id":18,"name":"Drama"}],"poster_path":"/heat.jpg"}`))
	})
	mux.HandleFunc("/movie/949/videos", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"key":"heatTrlr","site":"YouTube","type":"Trailer","official":true}]}`))
	})
	mux.HandleFunc("/movie/1/videos", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/movie/1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"title":"No Trailer"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return movies.NewTMDBClient(srv.URL, "k")
}

func newTestHandlers(t *testing.T, res sources.Resolver) *handlers {
	t.Helper()
	engine.Init(engine.Config{})
	engine.InitCache("", time.Minute, 1000, time.Minute)

	store, err := movies.OpenSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return newHandlers(Deps{Resolver: res, TMDB: newTMDB(t), History: store, Saved: store, Searches: store})
}

func TestRegisterTools(t *testing.T) {
	engine.Init(engine.Config{})
	hist, err := movies.OpenSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer hist.Close()

	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "0"}, nil)
	assert.NotPanics(t, func() {
		RegisterTools(server, Deps{Resolver: &stubResolver{}, TMDB: movies.NewTMDBClient("", "k"), History: hist, Saved: hist, Searches: hist})
	})

	bare := mcp.NewServer(&mcp.Implementation{Name: "bare", Version: "0"}, nil)
	assert.NotPanics(t, func() {
		RegisterTools(bare, Deps{Resolver: &stubResolver{}})
	})
}

func TestBestMatchTool(t *testing.T) {
	res := &stubResolver{match: sources.Match{VideoID: "abc", Source: "scrape"}}
	h := newTestHandlers(t, res)

	_, out, err := h.bestMatch(context.Background(), nil, engine.BestMatchInput{Title: " The  Matrix ", Year: "1999"})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, "abc", out.VideoID)
	assert.Equal(t, "The Matrix 1999 full movie", out.Phrase)

	res.err = &sources.ResolveError{Kind: sources.KindNoMatch}
	_, out, err = h.bestMatch(context.Background(), nil, engine.BestMatchInput{Title: "Obscure"})
	require.NoError(t, err, "NoMatch is a result, not a tool error")
	assert.False(t, out.Found)
	assert.Equal(t, "NoMatch", out.ErrorCode)

	calls := res.calls
	_, _, err = h.bestMatch(context.Background(), nil, engine.BestMatchInput{Title: "Heat", Year: "95"})
	assert.ErrorIs(t, err, sources.ErrInvalidQuery)
	assert.Equal(t, calls, res.calls)
}

func TestMovieListTools(t *testing.T) {
	h := newTestHandlers(t, &stubResolver{})
	ctx := context.Background()

	_, list, err := h.trending(ctx, nil, movies.TrendingInput{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, movies.SourceTMDB, list.Source, "no searches recorded yet")
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, "The Matrix", list.Movies[0].Title)
	assert.Equal(t, "1999", list.Movies[0].Year)

	_, list, err = h.search(ctx, nil, movies.SearchInput{Query: "heat"})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "heat", list.Query)
	assert.Equal(t, "A group of professional bank robbers.", list.Movies[0].Overview)
}

func TestMovieDetailsTool(t *testing.T) {
	h := newTestHandlers(t, &stubResolver{})
	ctx := context.Background()

	_, d, err := h.details(ctx, nil, movies.DetailsInput{MovieID: 949})
	require.NoError(t, err)
	assert.Equal(t, "Heat", d.Title)
	assert.Equal(t, []string{"Crime", "Drama"}, d.Genres)
	assert.Equal(t, "https://www.youtube.com/watch?v=heatTrlr", d.TrailerURL)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/heat.jpg", d.PosterURL)

	_, d, err = h.details(ctx, nil, movies.DetailsInput{MovieID: 1})
	require.NoError(t, err, "trailer failure must not fail details")
	assert.Empty(t, d.TrailerURL)

	_, _, err = h.details(ctx, nil, movies.DetailsInput{})
	assert.Error(t, err)
}

func TestPlayAndHistoryTools(t *testing.T) {
	h := newTestHandlers(t, &stubResolver{match: sources.Match{VideoID: "heatFull1", Source: "scrape"}})
	ctx := context.Background()

	_, played, err := h.play(ctx, nil, movies.PlayInput{UserID: "u1", MovieID: 949})
	require.NoError(t, err)
	assert.True(t, played.Found)
	assert.Equal(t, "https://www.youtube.com/embed/heatFull1", played.EmbedURL)
	assert.Positive(t, played.HistoryID)

	_, logged, err := h.historyLog(ctx, nil, movies.HistoryLogInput{UserID: "u1", MovieID: 603, Title: "The Matrix"})
	require.NoError(t, err)
	assert.Positive(t, logged.ID)

	_, list, err := h.historyList(ctx, nil, movies.HistoryListInput{UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, 2, list.Total)
	assert.Equal(t, "The Matrix", list.Entries[0].Title)
	_, err = time.Parse(time.RFC3339, list.Entries[0].WatchedAt)
	assert.NoError(t, err)

	_, grouped, err := h.historyList(ctx, nil, movies.HistoryListInput{UserID: "u1", Grouped: true})
	require.NoError(t, err)
	require.Len(t, grouped.Sections, 1)
	assert.Equal(t, "Today", grouped.Sections[0].Title)
	assert.Empty(t, grouped.Entries)

	_, del, err := h.historyDelete(ctx, nil, movies.HistoryDeleteInput{UserID: "u1", ID: logged.ID})
	require.NoError(t, err)
	assert.Equal(t, logged.ID, del.ID)

	_, _, err = h.historyDelete(ctx, nil, movies.HistoryDeleteInput{UserID: "u1", ID: logged.ID})
	assert.ErrorIs(t, err, movies.ErrHistoryNotFound)

	_, cleared, err := h.historyClear(ctx, nil, movies.HistoryClearInput{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared.Removed)
}

func TestHistoryToolsRequireUser(t *testing.T) {
	h := newTestHandlers(t, &stubResolver{})
	ctx := context.Background()

	_, _, err := h.historyLog(ctx, nil, movies.HistoryLogInput{UserID: "  ", MovieID: 1, Title: "x"})
	assert.ErrorIs(t, err, errUserRequired)
	_, _, err = h.historyList(ctx, nil, movies.HistoryListInput{})
	assert.ErrorIs(t, err, errUserRequired)
	_, _, err = h.historyDelete(ctx, nil, movies.HistoryDeleteInput{ID: 1})
	assert.ErrorIs(t, err, errUserRequired)
	_, _, err = h.historyClear(ctx, nil, movies.HistoryClearInput{})
	assert.ErrorIs(t, err, errUserRequired)
}

func TestTrendingFollowsSearches(t *testing.T) {
	h := newTestHandlers(t, &stubResolver{})
	ctx := context.Background()

	for _, q := range []string{"heat", "Heat", "  heat"} {
		_, _, err := h.search(ctx, nil, movies.SearchInput{Query: q})
		require.NoError(t, err)
	}
	_, _, err := h.search(ctx, nil, movies.SearchInput{})
	require.NoError(t, err, "an empty query lists trending and records nothing")

	_, list, err := h.trending(ctx, nil, movies.TrendingInput{})
	require.NoError(t, err)
	assert.Equal(t, movies.SourceSearches, list.Source)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, int64(949), list.Movies[0].ID)
	assert.Equal(t, "Heat", list.Movies[0].Title)
	assert.Equal(t, int64(3), list.Movies[0].SearchCount)
}

func TestSavedMovieTools(t *testing.T) {
	h := newTestHandlers(t, &stubResolver{})
	ctx := context.Background()

	_, saved, err := h.savedSave(ctx, nil, movies.SavedSaveInput{UserID: "u1", MovieID: 949})
	require.NoError(t, err)
	assert.Positive(t, saved.ID)
	assert.Contains(t, saved.Message, "Heat", "title comes from TMDB when omitted")

	_, again, err := h.savedSave(ctx, nil, movies.SavedSaveInput{UserID: "u1", MovieID: 949, Title: "Heat"})
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID)

	_, other, err := h.savedSave(ctx, nil, movies.SavedSaveInput{UserID: "u1", MovieID: 603, Title: " The  Matrix "})
	require.NoError(t, err)

	_, list, err := h.savedList(ctx, nil, movies.SavedListInput{UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, 2, list.Total)
	assert.Equal(t, "The Matrix", list.Movies[0].Title)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/heat.jpg", list.Movies[1].PosterURL)
	assert.Equal(t, "1995", list.Movies[1].Year)
	_, err = time.Parse(time.RFC3339, list.Movies[0].SavedAt)
	assert.NoError(t, err)

	_, del, err := h.savedDelete(ctx, nil, movies.SavedDeleteInput{UserID: "u1", ID: other.ID})
	require.NoError(t, err)
	assert.Equal(t, other.ID, del.ID)

	_, _, err = h.savedDelete(ctx, nil, movies.SavedDeleteInput{UserID: "u1", ID: other.ID})
	assert.ErrorIs(t, err, movies.ErrSavedNotFound)
}

func TestSavedToolsValidateInput(t *testing.T) {
	h := newTestHandlers(t, &stubResolver{})
	ctx := context.Background()

	_, _, err := h.savedSave(ctx, nil, movies.SavedSaveInput{MovieID: 949})
	assert.ErrorIs(t, err, errUserRequired)
	_, _, err = h.savedSave(ctx, nil, movies.SavedSaveInput{UserID: "u1"})
	assert.Error(t, err)
	_, _, err = h.savedList(ctx, nil, movies.SavedListInput{UserID: " "})
	assert.ErrorIs(t, err, errUserRequired)
	_, _, err = h.savedDelete(ctx, nil, movies.SavedDeleteInput{UserID: "u1"})
	assert.Error(t, err)

	noTMDB := newHandlers(Deps{Resolver: &stubResolver{}, Saved: h.deps.Saved})
	_, _, err = noTMDB.savedSave(ctx, nil, movies.SavedSaveInput{UserID: "u1", MovieID: 949})
	assert.Error(t, err, "without TMDB a title is required")
}

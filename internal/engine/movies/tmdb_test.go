package movies

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_moviematch/internal/engine"
)

func newTMDBServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/discover/movie", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("sort_by") != "popularity.desc" {
			http.Error(w, "bad sort", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":603,"title":"The Matrix","release_date":"1999-03-30","poster_path":"/m.jpg"},{"id":949,"title":"Heat","release_date":"1995-12-15"}]}`))
	})
	mux.HandleFunc("/search/movie", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("query") != "blade runner" {
			_, _ = w.Write([]byte(`{"page":1,"results":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":78,"title":"Blade Runner","release_date":"1982-06-25"}]}`))
	})
	mux.HandleFunc("/movie/603", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"id":603,"title":"The Matrix","release_date":"1999-03-30","runtime":136,"genres":[{"id":28,"name":"Action"}],"poster_path":"/m.jpg"}`))
	})
	mux.HandleFunc("/movie/603/videos", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"results":[
			{"key":"teaser1","site":"YouTube","type":"Teaser","official":true},
			{"key":"vimeo1","site":"Vimeo","type":"Trailer","official":true},
			{"key":"trail1","site":"YouTube","type":"Trailer","official":false},
			{"key":"trail2","site":"YouTube","type":"Trailer","official":true}
		]}`))
	})
	mux.HandleFunc("/movie/404", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_message":"The resource you requested could not be found."}`))
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "k3y" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTMDBDiscoverAndSearch(t *testing.T) {
	engine.Init(engine.Config{})
	var hits atomic.Int32
	c := NewTMDBClient(newTMDBServer(t, &hits).URL, "k3y")
	ctx := context.Background()

	list, err := c.Discover(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "The Matrix", list[0].Title)
	assert.Equal(t, "1999", list[0].Year())
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/m.jpg", list[0].PosterURL())
	assert.Empty(t, list[1].PosterURL())

	found, err := c.Search(ctx, "  blade runner ")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(78), found[0].ID)

	empty, err := c.Search(ctx, "zzzz")
	require.NoError(t, err)
	assert.Empty(t, empty)

	fallback, err := c.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, fallback, 2, "blank search falls back to discover")
}

func TestTMDBDetailsCached(t *testing.T) {
	engine.Init(engine.Config{})
	engine.InitCache("", time.Minute, 100, time.Minute)
	var hits atomic.Int32
	c := NewTMDBClient(newTMDBServer(t, &hits).URL, "k3y")
	ctx := context.Background()

	d, err := c.Details(ctx, 603)
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", d.Title)
	assert.Equal(t, 136, d.Runtime)
	require.Len(t, d.Genres, 1)
	assert.Equal(t, "Action", d.Genres[0].Name)

	before := hits.Load()
	d, err = c.Details(ctx, 603)
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", d.Title)
	assert.Equal(t, before, hits.Load(), "second Details call should hit the cache")
}

func TestTMDBErrors(t *testing.T) {
	engine.Init(engine.Config{})
	var hits atomic.Int32
	srv := newTMDBServer(t, &hits)
	ctx := context.Background()

	_, err := NewTMDBClient(srv.URL, "").Discover(ctx)
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = NewTMDBClient(srv.URL, "wrong").Discover(ctx)
	var se *engine.StatusError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)

	_, err = NewTMDBClient(srv.URL, "k3y").Details(ctx, 404)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)

	_, err = NewTMDBClient(srv.URL, "k3y").Details(ctx, 0)
	assert.Error(t, err)
}

func TestTMDBTrailer(t *testing.T) {
	engine.Init(engine.Config{})
	var hits atomic.Int32
	c := NewTMDBClient(newTMDBServer(t, &hits).URL, "k3y")

	v, ok, err := c.Trailer(context.Background(), 603)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "trail2", v.Key)
}

func TestPickTrailer(t *testing.T) {
	tests := []struct {
		name   string
		videos []Video
		want   string
	}{
		{"none", nil, ""},
		{"only other sites", []Video{{Key: "a", Site: "Vimeo", Type: "Trailer"}}, ""},
		{"teaser fallback", []Video{{Key: "t", Site: "YouTube", Type: "Teaser"}, {Key: "c", Site: "YouTube", Type: "Clip"}}, "t"},
		{"unofficial trailer beats teaser", []Video{{Key: "t", Site: "YouTube", Type: "Teaser", Official: true}, {Key: "u", Site: "YouTube", Type: "Trailer"}}, "u"},
		{"first official trailer wins", []Video{{Key: "o1", Site: "YouTube", Type: "Trailer", Official: true}, {Key: "o2", Site: "YouTube", Type: "Trailer", Official: true}}, "o1"},
		{"empty key skipped", []Video{{Site: "YouTube", Type: "Trailer", Official: true}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := pickTrailer(tt.videos)
			if ok != (tt.want != "") || v.Key != tt.want {
				t.Errorf("pickTrailer() = %q, %v; want %q", v.Key, ok, tt.want)
			}
		})
	}
}

func TestReleaseYear(t *testing.T) {
	tests := map[string]string{
		"1999-03-30": "1999",
		"2021":       "2021",
		"":           "",
		"TBA":        "",
		"abcd-01-01": "",
	}
	for in, want := range tests {
		if got := releaseYear(in); got != want {
			t.Errorf("releaseYear(%q) = %q, want %q", in, got, want)
		}
	}
}

package sources

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDelegated(baseURL string) *DelegatedResolver {
	return &DelegatedResolver{
		BackendURL: baseURL + "/api/",
		Token:      "secret-token",
		HTTPClient: &http.Client{},
		Timeout:    2 * time.Second,
	}
}

func TestDelegatedResolverRequest(t *testing.T) {
	var gotAuth, gotPath, gotMethod, gotCT string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotCT = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"videoId":"dQw4w9WgXcQ"}`))
	}))
	defer srv.Close()

	m, err := newTestDelegated(srv.URL).Resolve(context.Background(), Query{Title: "The Matrix", Year: "1999"})
	require.NoError(t, err)

	assert.Equal(t, "dQw4w9WgXcQ", m.VideoID)
	assert.Equal(t, "delegated", m.Source)
	assert.Equal(t, "The Matrix 1999 full movie", m.Phrase)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "/api/search/scrape-youtube", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.True(t, strings.HasPrefix(gotCT, "application/json"), "content type %q", gotCT)
	assert.Equal(t, map[string]any{"query": "The Matrix 1999 full movie"}, gotBody)
}

func TestDelegatedResolverOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   error
		wantMsg   string
		retryable bool
	}{
		{
			name:    "success without videoId is no match",
			status:  http.StatusOK,
			body:    `{"message":"No suitable movie found"}`,
			wantErr: ErrNoMatch,
			wantMsg: "No suitable movie found",
		},
		{
			name:    "empty object is no match with default message",
			status:  http.StatusOK,
			body:    `{}`,
			wantErr: ErrNoMatch,
			wantMsg: defaultNoMatchMsg,
		},
		{
			name:      "unauthorized",
			status:    http.StatusUnauthorized,
			body:      `{"message":"Not authorized, token missing"}`,
			wantErr:   ErrUpstreamRejected,
			wantMsg:   "Not authorized, token missing",
			retryable: true,
		},
		{
			name:      "missing route is rejected",
			status:    http.StatusNotFound,
			body:      `{"message":"Route not found"}`,
			wantErr:   ErrUpstreamRejected,
			wantMsg:   "Route not found",
			retryable: true,
		},
		{
			name:      "500 with html body",
			status:    http.StatusInternalServerError,
			body:      `<html>oops</html>`,
			wantErr:   ErrUpstreamRejected,
			wantMsg:   defaultRejectedMsg + " (status 500)",
			retryable: true,
		},
		{
			name:    "2xx with invalid json",
			status:  http.StatusOK,
			body:    `{"videoId":`,
			wantErr: ErrMalformedPayload,
			wantMsg: "scrape backend returned invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			m, err := newTestDelegated(srv.URL).Resolve(context.Background(), Query{Title: "Heat"})
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, m.VideoID)

			re, ok := AsResolveError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, re.Message)
			assert.Equal(t, tt.retryable, re.Kind.Retryable())
			assert.Equal(t, tt.wantErr != ErrMalformedPayload, re.Remote, "backend messages are user-facing")
		})
	}
}

func TestDelegatedResolverLongMessageTruncated(t *testing.T) {
	long := strings.Repeat("é", 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": long})
	}))
	defer srv.Close()

	_, err := newTestDelegated(srv.URL).Resolve(context.Background(), Query{Title: "Heat"})
	re, ok := AsResolveError(err)
	require.True(t, ok)
	assert.LessOrEqual(t, len([]rune(re.Message)), maxBackendMessageLen+3)
}

func TestDelegatedResolverUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	r := newTestDelegated("http://" + addr)
	r.Timeout = time.Second

	_, err = r.Resolve(context.Background(), Query{Title: "Heat"})
	require.ErrorIs(t, err, ErrNetwork)
	assert.NotErrorIs(t, err, ErrUpstreamRejected)
}

func TestDelegatedResolverTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	r := newTestDelegated(srv.URL)
	r.Timeout = 100 * time.Millisecond

	start := time.Now()
	_, err := r.Resolve(context.Background(), Query{Title: "Heat"})
	require.ErrorIs(t, err, ErrNetwork)
	re, _ := AsResolveError(err)
	assert.True(t, re.Timeout)
	assert.Less(t, time.Since(start), time.Second)
}

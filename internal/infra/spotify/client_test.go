package spotify

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
	"github.com/zmb3/spotify/v2"
)

func TestExtractTrackID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Spotify URI format",
			input:    "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Spotify URL format",
			input:    "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Localized URL with query params",
			input:    "https://open.spotify.com/intl-ja/track/4uLU6hMCjMI75M1A2tKUQC?si=abc123",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Plain track ID",
			input:    " 4uLU6hMCjMI75M1A2tKUQC ",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractTrackID(tt.input))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "api rate limit", err: spotify.Error{Status: 429, Message: "slow down"}, expected: true},
		{name: "api server error", err: spotify.Error{Status: 503, Message: "unavailable"}, expected: true},
		{name: "api not found", err: spotify.Error{Status: 404, Message: "non existing id"}, expected: false},
		{name: "rate limit text", err: errors.New("rate limit exceeded"), expected: true},
		{name: "server error 502", err: errors.New("502 Bad Gateway"), expected: true},
		{name: "client error 400", err: errors.New("400 Bad Request"), expected: false},
		{name: "generic error", err: errors.New("something went wrong"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryable(tt.err))
		})
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := newClient(srv.Client(), "JP", spotify.WithBaseURL(srv.URL+"/"))
	c.retryDelay = time.Millisecond
	return c
}

func TestClient_GetTrack(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tracks/4uLU6hMCjMI75M1A2tKUQC", r.URL.Path)
		assert.Equal(t, "JP", r.URL.Query().Get("market"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "4uLU6hMCjMI75M1A2tKUQC",
			"name": "Never Gonna Give You Up",
			"duration_ms": 213573,
			"artists": [{"name": "Rick Astley"}, {"name": "Guest"}]
		}`))
	})

	got, err := c.GetTrack(context.Background(), "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=x")
	require.NoError(t, err)

	assert.Equal(t, "Never Gonna Give You Up", got.Title)
	assert.Equal(t, "Rick Astley, Guest", got.Author)
	assert.Equal(t, "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", got.URI)
	assert.Equal(t, 213573*time.Millisecond, got.Duration)
	assert.Equal(t, "spotify", got.SourceName)
	assert.Empty(t, got.ID)
}

func TestClient_GetTrack_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error": {"status": 503, "message": "unavailable"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id": "abc", "name": "Song", "artists": [{"name": "Band"}]}`))
	})

	got, err := c.GetTrack(context.Background(), "spotify:track:abc")
	require.NoError(t, err)
	assert.Equal(t, "Song", got.Title)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GetTrack_NotFound(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"status": 404, "message": "non existing id"}}`))
	})

	_, err := c.GetTrack(context.Background(), "spotify:track:missing")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{ClientID: "id"})
	assert.Error(t, err)

	c, err := New(context.Background(), Config{ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "US", c.market)
}

package lastfm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestClient(server *httptest.Server) *Client {
	return &Client{
		apiKey:     "test-api-key",
		httpClient: server.Client(),
		baseURL:    server.URL + "/",
		cache:      make(map[string][]Tag),
	}
}

func TestTopGenres(t *testing.T) {
	tests := []struct {
		name       string
		trackJSON  string
		artistJSON string
		limit      int
		want       []string
	}{
		{
			name:      "track tags with non-genre filtering",
			trackJSON: `{"toptags":{"tag":[{"name":"seen live"},{"name":"shoegaze"},{"name":"dream pop"},{"name":"favorites"},{"name":"indie"}]}}`,
			limit:     3,
			want:      []string{"shoegaze", "dream pop", "indie"},
		},
		{
			name:       "falls back to artist tags",
			trackJSON:  `{"toptags":{"tag":[]}}`,
			artistJSON: `{"toptags":{"tag":[{"name":"slowcore"},{"name":"lo-fi"}]}}`,
			limit:      5,
			want:       []string{"slowcore", "lo-fi"},
		},
		{
			name:      "limit truncates",
			trackJSON: `{"toptags":{"tag":[{"name":"techno"},{"name":"house"},{"name":"electronic"}]}}`,
			limit:     1,
			want:      []string{"techno"},
		},
		{
			name:       "nothing found",
			trackJSON:  `{"toptags":{"tag":[]}}`,
			artistJSON: `{"toptags":{"tag":[]}}`,
			limit:      3,
			want:       []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				switch method := r.URL.Query().Get("method"); method {
				case "track.getTopTags":
					fmt.Fprint(w, tt.trackJSON)
				case "artist.getTopTags":
					fmt.Fprint(w, tt.artistJSON)
				default:
					t.Errorf("unexpected method: %s", method)
				}
			}))
			defer server.Close()

			got, err := newTestClient(server).TopGenres(context.Background(), "Artist", "Track", tt.limit)
			if err != nil {
				t.Fatalf("TopGenres() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("TopGenres() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("TopGenres()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestGetTagsInvalidAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"error":10,"message":"Invalid API key"}`)
	}))
	defer server.Close()

	_, err := newTestClient(server).GetTags(context.Background(), "Test", "Test")
	if !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("GetTags() error = %v, want ErrInvalidAPIKey", err)
	}
}

func TestGetTagsCaching(t *testing.T) {
	var requestCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"toptags":{"tag":[{"name":"rock","count":100}]}}`)
	}))
	defer server.Close()

	client := newTestClient(server)
	ctx := context.Background()

	tags, err := client.GetTags(ctx, "Radiohead", "Creep")
	if err != nil {
		t.Fatalf("first GetTags() error = %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "rock" {
		t.Fatalf("unexpected tags: %v", tags)
	}

	// Second call must be served from cache.
	if _, err := client.GetTags(ctx, "Radiohead", "Creep"); err != nil {
		t.Fatalf("second GetTags() error = %v", err)
	}
	if got := requestCount.Load(); got != 1 {
		t.Errorf("server requests = %d, want 1", got)
	}
}

func TestDoRequestRetriesRateLimit(t *testing.T) {
	var requestCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if requestCount.Add(1) == 1 {
			fmt.Fprint(w, `{"error":29,"message":"Rate limit exceeded"}`)
			return
		}
		fmt.Fprint(w, `{"toptags":{"tag":[{"name":"jazz"}]}}`)
	}))
	defer server.Close()

	tags, err := newTestClient(server).GetTags(context.Background(), "Artist", "Track")
	if err != nil {
		t.Fatalf("GetTags() error = %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "jazz" {
		t.Errorf("tags after retry = %v, want [jazz]", tags)
	}
	if got := requestCount.Load(); got != 2 {
		t.Errorf("server requests = %d, want 2", got)
	}
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/veritasx01/audion-backend/internal/models"
	"github.com/veritasx01/audion-backend/internal/shared"
)

func TestParseISODuration(t *testing.T) {
	cases := []struct {
		input   string
		seconds int
		ok      bool
	}{
		{"PT2M57S", 177, true},
		{"PT1H23M45S", 5025, true},
		{"PT45S", 45, true},
		{"PT3M", 180, true},
		{"PT2H", 7200, true},
		{"PT", 0, false},
		{"", 0, false},
		{"2M57S", 0, false},
		{"PT-1M", 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			seconds, ok := parseISODuration(tc.input)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v for %q, got %v", tc.ok, tc.input, ok)
			}
			if seconds != tc.seconds {
				t.Errorf("expected %d seconds for %q, got %d", tc.seconds, tc.input, seconds)
			}
		})
	}
}

func TestNewYouTubeClient(t *testing.T) {
	t.Run("requires at least one key", func(t *testing.T) {
		if _, err := NewYouTubeClient(nil, nil); err == nil {
			t.Error("expected error for empty key pool")
		}
	})

	t.Run("creates client with key pool", func(t *testing.T) {
		client, err := NewYouTubeClient([]string{"key_1", "key_2"}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client.pool.size() != 2 {
			t.Errorf("expected pool of 2, got %d", client.pool.size())
		}
	})
}

// stubYouTube records the API key of every request and answers /search and
// /videos according to the configured behavior.
type stubYouTube struct {
	mu         sync.Mutex
	searchKeys []string
	failingKey map[string]bool
	videoID    string
	duration   string
	noResults  bool
}

func (s *stubYouTube) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")

		s.mu.Lock()
		failing := s.failingKey[key]
		if r.URL.Path == "/search" {
			s.searchKeys = append(s.searchKeys, key)
		}
		s.mu.Unlock()

		if failing {
			http.Error(w, "quotaExceeded", http.StatusForbidden)
			return
		}

		switch r.URL.Path {
		case "/search":
			if s.noResults {
				json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
				return
			}
			if got := r.URL.Query().Get("maxResults"); got != "1" {
				t.Errorf("expected maxResults=1, got %s", got)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"items": []any{map[string]any{
					"id":      map[string]any{"videoId": s.videoID},
					"snippet": map[string]any{"title": "stub", "channelTitle": "stub"},
				}},
			})
		case "/videos":
			json.NewEncoder(w).Encode(map[string]any{
				"items": []any{map[string]any{
					"id":             s.videoID,
					"contentDetails": map[string]any{"duration": s.duration},
				}},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}
}

func (s *stubYouTube) attempts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.searchKeys...)
}

func newYouTubeTestClient(t *testing.T, keys []string, stub *stubYouTube) *YouTubeClient {
	t.Helper()

	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)

	client, err := NewYouTubeClient(keys, nil)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	client.baseURL = server.URL
	return client
}

func TestYouTubeKeyRotation(t *testing.T) {
	t.Run("rotates on quota exhaustion and persists cursor", func(t *testing.T) {
		stub := &stubYouTube{
			failingKey: map[string]bool{"key_1": true},
			videoID:    "vid_1",
			duration:   "PT2M57S",
		}
		client := newYouTubeTestClient(t, []string{"key_1", "key_2"}, stub)

		song := models.Song{ID: "s1", Title: "Yesterday", Artist: "The Beatles"}
		enriched, err := client.EnrichSong(context.Background(), song)
		if err != nil {
			t.Fatalf("expected rotation to succeed, got %v", err)
		}
		if !enriched.Enriched() {
			t.Fatal("expected song to be enriched")
		}

		attempts := stub.attempts()
		if len(attempts) != 2 || attempts[0] != "key_1" || attempts[1] != "key_2" {
			t.Errorf("expected attempts [key_1 key_2], got %v", attempts)
		}

		// The cursor stays on the working key for unrelated calls.
		if _, err := client.EnrichSong(context.Background(), song); err != nil {
			t.Fatalf("expected second call to succeed, got %v", err)
		}
		attempts = stub.attempts()
		if attempts[len(attempts)-1] != "key_2" {
			t.Errorf("expected next call to start on key_2, got %v", attempts)
		}
	})

	t.Run("exhausting every key fails with QuotaExhausted", func(t *testing.T) {
		stub := &stubYouTube{
			failingKey: map[string]bool{"key_1": true, "key_2": true, "key_3": true},
		}
		client := newYouTubeTestClient(t, []string{"key_1", "key_2", "key_3"}, stub)

		song := models.Song{ID: "s1", Title: "Yesterday", Artist: "The Beatles"}
		_, err := client.EnrichSong(context.Background(), song)
		if !errors.Is(err, shared.ErrQuotaExhausted) {
			t.Fatalf("expected ErrQuotaExhausted, got %v", err)
		}

		if attempts := stub.attempts(); len(attempts) != 3 {
			t.Errorf("expected exactly 3 attempts for a 3-key pool, got %d", len(attempts))
		}
	})

	t.Run("stored song stays unenriched on quota exhaustion", func(t *testing.T) {
		stub := &stubYouTube{failingKey: map[string]bool{"key_1": true, "key_2": true}}
		client := newYouTubeTestClient(t, []string{"key_1", "key_2"}, stub)

		song := models.Song{ID: "s1", Title: "Yesterday", Artist: "The Beatles"}
		got, err := client.EnrichSong(context.Background(), song)
		if !errors.Is(err, shared.ErrQuotaExhausted) {
			t.Fatalf("expected ErrQuotaExhausted, got %v", err)
		}
		if got.URL != nil || got.Duration != nil || got.YouTubeVideoID != nil {
			t.Error("expected song returned unenriched, not partially set")
		}
	})
}

func TestYouTubeEnrichSongs(t *testing.T) {
	t.Run("empty batch", func(t *testing.T) {
		client, err := NewYouTubeClient([]string{"key_1"}, nil)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		songs, err := client.EnrichSongs(context.Background(), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(songs) != 0 {
			t.Errorf("expected empty result, got %d", len(songs))
		}
	})

	t.Run("preserves input order and enriches each song", func(t *testing.T) {
		durations := map[string]string{
			"vid_a": "PT2M57S",
			"vid_b": "PT1H0M5S",
			"vid_c": "PT45S",
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/search":
				// Map each query deterministically to a video.
				q := r.URL.Query().Get("q")
				videoID := map[string]string{
					"Alpha Artist lyrics": "vid_a",
					"Beta Artist lyrics":  "vid_b",
					"Gamma Artist lyrics": "vid_c",
				}[q]
				json.NewEncoder(w).Encode(map[string]any{
					"items": []any{map[string]any{"id": map[string]any{"videoId": videoID}}},
				})
			case "/videos":
				var items []any
				for _, id := range []string{"vid_a", "vid_b", "vid_c"} {
					items = append(items, map[string]any{
						"id":             id,
						"contentDetails": map[string]any{"duration": durations[id]},
					})
				}
				json.NewEncoder(w).Encode(map[string]any{"items": items})
			}
		}))
		defer server.Close()

		client, err := NewYouTubeClient([]string{"key_1"}, nil)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		client.baseURL = server.URL

		songs := []models.Song{
			{ID: "s1", Title: "Alpha", Artist: "Artist"},
			{ID: "s2", Title: "Beta", Artist: "Artist"},
			{ID: "s3", Title: "Gamma", Artist: "Artist"},
		}

		enriched, err := client.EnrichSongs(context.Background(), songs)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(enriched) != 3 {
			t.Fatalf("expected 3 songs, got %d", len(enriched))
		}

		expected := []struct {
			id       string
			videoID  string
			duration int
		}{
			{"s1", "vid_a", 177},
			{"s2", "vid_b", 3605},
			{"s3", "vid_c", 45},
		}
		for i, want := range expected {
			got := enriched[i]
			if got.ID != want.id {
				t.Errorf("position %d: expected %s, got %s (order not preserved)", i, want.id, got.ID)
			}
			if got.YouTubeVideoID == nil || *got.YouTubeVideoID != want.videoID {
				t.Errorf("position %d: expected video %s, got %v", i, want.videoID, got.YouTubeVideoID)
			}
			if got.Duration == nil || *got.Duration != want.duration {
				t.Errorf("position %d: expected duration %d, got %v", i, want.duration, got.Duration)
			}
			if got.URL == nil || *got.URL != watchURLPrefix+want.videoID {
				t.Errorf("position %d: expected watch URL, got %v", i, got.URL)
			}
		}
	})

	t.Run("isolates per-song failures", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/search":
				if r.URL.Query().Get("q") == "Missing Artist lyrics" {
					json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
					return
				}
				json.NewEncoder(w).Encode(map[string]any{
					"items": []any{map[string]any{"id": map[string]any{"videoId": "vid_ok"}}},
				})
			case "/videos":
				json.NewEncoder(w).Encode(map[string]any{
					"items": []any{map[string]any{
						"id":             "vid_ok",
						"contentDetails": map[string]any{"duration": "PT3M"},
					}},
				})
			}
		}))
		defer server.Close()

		client, err := NewYouTubeClient([]string{"key_1"}, nil)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		client.baseURL = server.URL

		songs := []models.Song{
			{ID: "s1", Title: "Missing", Artist: "Artist"},
			{ID: "s2", Title: "Found", Artist: "Artist"},
		}

		enriched, err := client.EnrichSongs(context.Background(), songs)
		if err != nil {
			t.Fatalf("expected isolated failure, got batch error %v", err)
		}

		if enriched[0].Enriched() {
			t.Error("expected first song to stay unenriched")
		}
		if enriched[0].URL != nil || enriched[0].Duration != nil {
			t.Error("expected nil fields, not partial data")
		}
		if !enriched[1].Enriched() {
			t.Error("expected second song to be enriched despite sibling failure")
		}
	})

	t.Run("missing duration leaves all fields nil", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/search":
				json.NewEncoder(w).Encode(map[string]any{
					"items": []any{map[string]any{"id": map[string]any{"videoId": "vid_x"}}},
				})
			case "/videos":
				// Video vanished between search and lookup.
				json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
			}
		}))
		defer server.Close()

		client, err := NewYouTubeClient([]string{"key_1"}, nil)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		client.baseURL = server.URL

		enriched, err := client.EnrichSongs(context.Background(), []models.Song{{ID: "s1", Title: "Gone", Artist: "Artist"}})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if enriched[0].URL != nil || enriched[0].YouTubeVideoID != nil || enriched[0].Duration != nil {
			t.Error("expected all three fields nil when duration is unresolvable")
		}
	})

	t.Run("EnrichSong surfaces partial enrichment", func(t *testing.T) {
		stub := &stubYouTube{noResults: true}
		client := newYouTubeTestClient(t, []string{"key_1"}, stub)

		_, err := client.EnrichSong(context.Background(), models.Song{ID: "s1", Title: "Nothing", Artist: "Artist"})
		if !errors.Is(err, shared.ErrPartialEnrichment) {
			t.Errorf("expected ErrPartialEnrichment, got %v", err)
		}
	})
}

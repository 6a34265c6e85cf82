package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/veritasx01/audion-backend/internal/models"
	"github.com/veritasx01/audion-backend/internal/shared"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeStore keeps playlists in memory and counts writes.
type fakeStore struct {
	mu            sync.Mutex
	playlists     map[string]*models.Playlist
	setVideoCalls int
	addManyCalls  int
}

func newFakeStore(playlists ...*models.Playlist) *fakeStore {
	store := &fakeStore{playlists: map[string]*models.Playlist{}}
	for _, p := range playlists {
		store.playlists[p.ID.Hex()] = p
	}
	return store
}

func (s *fakeStore) Get(_ context.Context, id string) (*models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	playlist, ok := s.playlists[id]
	if !ok {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	copied := *playlist
	copied.Songs = append([]models.Song(nil), playlist.Songs...)
	return &copied, nil
}

func (s *fakeStore) AddMany(_ context.Context, playlists []models.Playlist) ([]models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addManyCalls++

	result := make([]models.Playlist, 0, len(playlists))
	for _, p := range playlists {
		found := false
		for _, stored := range s.playlists {
			if stored.ExternalPlaylistID == p.ExternalPlaylistID {
				result = append(result, *stored)
				found = true
				break
			}
		}
		if !found {
			p.ID = primitive.NewObjectID()
			stored := p
			s.playlists[p.ID.Hex()] = &stored
			result = append(result, p)
		}
	}
	return result, nil
}

func (s *fakeStore) SetSongVideoData(_ context.Context, playlistID, songID, url, videoID string, durationSec int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setVideoCalls++

	playlist, ok := s.playlists[playlistID]
	if !ok {
		return fmt.Errorf("%w: playlist %s", shared.ErrNotFound, playlistID)
	}
	idx := playlist.FindSong(songID)
	if idx < 0 {
		return fmt.Errorf("%w: song %s", shared.ErrNotFound, songID)
	}
	playlist.Songs[idx].SetVideoData(url, videoID, durationSec)
	return nil
}

// fakeEnricher counts enrichment calls and either succeeds or fails.
type fakeEnricher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *fakeEnricher) EnrichSong(_ context.Context, song models.Song) (models.Song, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.err != nil {
		return song, e.err
	}
	song.SetVideoData("https://www.youtube.com/watch?v=vid_1", "vid_1", 177)
	return song, nil
}

func (e *fakeEnricher) EnrichSongs(ctx context.Context, songs []models.Song) ([]models.Song, error) {
	enriched := make([]models.Song, len(songs))
	for i, song := range songs {
		got, err := e.EnrichSong(ctx, song)
		if err != nil {
			return nil, err
		}
		enriched[i] = got
	}
	return enriched, nil
}

func (e *fakeEnricher) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// fakeCatalog serves canned playlists and tracks.
type fakeCatalog struct {
	playlists []models.Playlist
	tracks    map[string][]models.Song
	trackErr  map[string]error
}

func (c *fakeCatalog) SearchTracks(context.Context, string, int) ([]models.Song, error) {
	return nil, nil
}

func (c *fakeCatalog) SearchPlaylists(context.Context, string, int) ([]models.Playlist, error) {
	return c.playlists, nil
}

func (c *fakeCatalog) PlaylistTracks(_ context.Context, externalID string, _ int) ([]models.Song, error) {
	if err := c.trackErr[externalID]; err != nil {
		return nil, err
	}
	return c.tracks[externalID], nil
}

func playlistWithSong(song models.Song) *models.Playlist {
	return &models.Playlist{
		ID:    primitive.NewObjectID(),
		Title: "Test Playlist",
		Songs: []models.Song{song},
	}
}

func TestGetFullSongDetails(t *testing.T) {
	t.Run("enriches and persists on first access", func(t *testing.T) {
		playlist := playlistWithSong(models.Song{ID: "s1", Title: "Yesterday", Artist: "The Beatles"})
		store := newFakeStore(playlist)
		enricher := &fakeEnricher{}
		engine := NewEngine(nil, enricher, store, nil)

		song, err := engine.GetFullSongDetails(context.Background(), playlist.ID.Hex(), "s1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !song.Enriched() {
			t.Fatal("expected enriched song")
		}
		if *song.Duration != 177 {
			t.Errorf("expected duration 177, got %d", *song.Duration)
		}
		if store.setVideoCalls != 1 {
			t.Errorf("expected 1 persist call, got %d", store.setVideoCalls)
		}
	})

	t.Run("memoizes enriched songs", func(t *testing.T) {
		playlist := playlistWithSong(models.Song{ID: "s1", Title: "Yesterday", Artist: "The Beatles"})
		store := newFakeStore(playlist)
		enricher := &fakeEnricher{}
		engine := NewEngine(nil, enricher, store, nil)

		first, err := engine.GetFullSongDetails(context.Background(), playlist.ID.Hex(), "s1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		second, err := engine.GetFullSongDetails(context.Background(), playlist.ID.Hex(), "s1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if enricher.callCount() != 1 {
			t.Errorf("expected exactly 1 external call, got %d", enricher.callCount())
		}
		if *first.URL != *second.URL || *first.Duration != *second.Duration {
			t.Error("expected identical data on repeated access")
		}
	})

	t.Run("quota exhaustion leaves the stored song unenriched", func(t *testing.T) {
		playlist := playlistWithSong(models.Song{ID: "s1", Title: "Yesterday", Artist: "The Beatles"})
		store := newFakeStore(playlist)
		enricher := &fakeEnricher{err: fmt.Errorf("%w: 2 keys tried", shared.ErrQuotaExhausted)}
		engine := NewEngine(nil, enricher, store, nil)

		_, err := engine.GetFullSongDetails(context.Background(), playlist.ID.Hex(), "s1")
		if !errors.Is(err, shared.ErrQuotaExhausted) {
			t.Fatalf("expected ErrQuotaExhausted, got %v", err)
		}

		if store.setVideoCalls != 0 {
			t.Error("expected no persist call on failure")
		}
		stored, _ := store.Get(context.Background(), playlist.ID.Hex())
		song := stored.Songs[0]
		if song.URL != nil || song.Duration != nil {
			t.Error("expected stored song to remain unenriched, not partially set")
		}
	})

	t.Run("unknown song", func(t *testing.T) {
		playlist := playlistWithSong(models.Song{ID: "s1"})
		engine := NewEngine(nil, &fakeEnricher{}, newFakeStore(playlist), nil)

		_, err := engine.GetFullSongDetails(context.Background(), playlist.ID.Hex(), "missing")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unknown playlist", func(t *testing.T) {
		engine := NewEngine(nil, &fakeEnricher{}, newFakeStore(), nil)

		_, err := engine.GetFullSongDetails(context.Background(), primitive.NewObjectID().Hex(), "s1")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSearchAndImport(t *testing.T) {
	t.Run("imports playlists with their tracks", func(t *testing.T) {
		catalog := &fakeCatalog{
			playlists: []models.Playlist{
				{ExternalPlaylistID: "ext_1", Title: "Rock Classics"},
				{ExternalPlaylistID: "ext_2", Title: "Empty One"},
			},
			tracks: map[string][]models.Song{
				"ext_1": {{ID: "s1", Title: "Yesterday", Artist: "The Beatles"}},
			},
		}
		store := newFakeStore()
		engine := NewEngine(catalog, &fakeEnricher{}, store, nil)

		imported, err := engine.SearchAndImport(context.Background(), "rock", 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		// The trackless playlist is dropped.
		if len(imported) != 1 || imported[0].ExternalPlaylistID != "ext_1" {
			t.Fatalf("expected only ext_1 imported, got %v", imported)
		}
		if len(imported[0].Songs) != 1 {
			t.Errorf("expected tracks attached, got %d", len(imported[0].Songs))
		}
	})

	t.Run("a failing playlist fetch does not sink the batch", func(t *testing.T) {
		catalog := &fakeCatalog{
			playlists: []models.Playlist{
				{ExternalPlaylistID: "ext_bad", Title: "Broken"},
				{ExternalPlaylistID: "ext_ok", Title: "Fine"},
			},
			tracks: map[string][]models.Song{
				"ext_ok": {{ID: "s1", Title: "Song"}},
			},
			trackErr: map[string]error{
				"ext_bad": errors.New("upstream hiccup"),
			},
		}
		engine := NewEngine(catalog, &fakeEnricher{}, newFakeStore(), nil)

		imported, err := engine.SearchAndImport(context.Background(), "anything", 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(imported) != 1 || imported[0].ExternalPlaylistID != "ext_ok" {
			t.Errorf("expected only the healthy playlist, got %v", imported)
		}
	})

	t.Run("repeat import inserts nothing new", func(t *testing.T) {
		catalog := &fakeCatalog{
			playlists: []models.Playlist{{ExternalPlaylistID: "ext_1", Title: "Rock Classics"}},
			tracks: map[string][]models.Song{
				"ext_1": {{ID: "s1", Title: "Yesterday"}},
			},
		}
		store := newFakeStore()
		engine := NewEngine(catalog, &fakeEnricher{}, store, nil)

		first, err := engine.SearchAndImport(context.Background(), "rock", 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		second, err := engine.SearchAndImport(context.Background(), "rock", 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(first) != 1 || len(second) != 1 {
			t.Fatalf("expected 1 playlist per call, got %d and %d", len(first), len(second))
		}
		if first[0].ID != second[0].ID {
			t.Error("expected the second import to return the stored record")
		}
		if len(store.playlists) != 1 {
			t.Errorf("expected a single stored playlist, got %d", len(store.playlists))
		}
	})

	t.Run("no results", func(t *testing.T) {
		engine := NewEngine(&fakeCatalog{}, &fakeEnricher{}, newFakeStore(), nil)

		imported, err := engine.SearchAndImport(context.Background(), "nothing", 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(imported) != 0 {
			t.Errorf("expected no imports, got %v", imported)
		}
	})
}

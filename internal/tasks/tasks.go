// package tasks orchestrates catalog import and video enrichment flows.
//
// The core abstraction is EnrichmentEngine, which combines the catalog
// client, the video enricher, and the playlist store into the operations the
// HTTP layer exposes: importing playlists from the catalog and lazily
// enriching songs with playable video data.
package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/veritasx01/audion-backend/internal/models"
	"github.com/veritasx01/audion-backend/internal/services"
	"github.com/veritasx01/audion-backend/internal/shared"
	"golang.org/x/sync/errgroup"
)

// PlaylistStore is the slice of the playlist repository the engine needs.
type PlaylistStore interface {
	Get(ctx context.Context, id string) (*models.Playlist, error)
	AddMany(ctx context.Context, playlists []models.Playlist) ([]models.Playlist, error)
	SetSongVideoData(ctx context.Context, playlistID, songID, url, videoID string, durationSec int) error
}

// EnrichmentEngine defines the orchestrated operations over the catalog, the
// enricher, and the store.
type EnrichmentEngine interface {
	// GetFullSongDetails returns a playlist song with its video URL and
	// duration, enriching and persisting on first access.
	GetFullSongDetails(ctx context.Context, playlistID, songID string) (*models.Song, error)

	// SearchAndImport searches the catalog for playlists, fetches their
	// tracks, and upserts the non-empty results into the store.
	SearchAndImport(ctx context.Context, query string, limit int) ([]models.Playlist, error)
}

// Engine implements [EnrichmentEngine].
type Engine struct {
	catalog  services.Catalog
	enricher services.VideoEnricher
	store    PlaylistStore
	logger   *log.Logger
}

// NewEngine creates an [Engine] with the provided collaborators.
func NewEngine(catalog services.Catalog, enricher services.VideoEnricher, store PlaylistStore, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		catalog:  catalog,
		enricher: enricher,
		store:    store,
		logger:   logger.With("service", "engine"),
	}
}

// GetFullSongDetails returns the song with url and duration populated.
//
// Enrichment is lazy and memoized: a song that already has video data is
// returned as stored with no external call. A fresh enrichment persists url,
// video ID, and duration together; on failure nothing is written and the
// error surfaces to the caller.
func (e *Engine) GetFullSongDetails(ctx context.Context, playlistID, songID string) (*models.Song, error) {
	playlist, err := e.store.Get(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	idx := playlist.FindSong(songID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: song %s in playlist %s", shared.ErrNotFound, songID, playlistID)
	}

	song := playlist.Songs[idx]
	if song.Enriched() {
		return &song, nil
	}

	enriched, err := e.enricher.EnrichSong(ctx, song)
	if err != nil {
		return nil, err
	}

	err = e.store.SetSongVideoData(ctx, playlistID, songID,
		*enriched.URL, *enriched.YouTubeVideoID, *enriched.Duration)
	if err != nil {
		return nil, fmt.Errorf("failed to persist video data: %w", err)
	}

	e.logger.Info("enriched song", "playlist", playlistID, "song", songID, "duration", *enriched.Duration)
	return &enriched, nil
}

// SearchAndImport searches the catalog for playlists matching the query,
// fetches each playlist's tracks concurrently, and upserts the results.
//
// Playlists whose track fetch fails or comes back empty are dropped rather
// than stored as hollow records.
func (e *Engine) SearchAndImport(ctx context.Context, query string, limit int) ([]models.Playlist, error) {
	shells, err := e.catalog.SearchPlaylists(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(shells) == 0 {
		return []models.Playlist{}, nil
	}

	filled := make([]models.Playlist, len(shells))
	g, gctx := errgroup.WithContext(ctx)
	for i, shell := range shells {
		g.Go(func() error {
			songs, err := e.catalog.PlaylistTracks(gctx, shell.ExternalPlaylistID, 0)
			if err != nil {
				// One bad playlist does not sink the import.
				e.logger.Error("failed to fetch playlist tracks",
					"playlist", shell.ExternalPlaylistID, "error", err)
				return nil
			}
			shell.Songs = songs
			filled[i] = shell
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	keep := make([]models.Playlist, 0, len(filled))
	for _, p := range filled {
		if len(p.Songs) > 0 {
			keep = append(keep, p)
		}
	}
	if len(keep) == 0 {
		return []models.Playlist{}, nil
	}

	return e.store.AddMany(ctx, keep)
}

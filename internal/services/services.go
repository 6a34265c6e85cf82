// package services defines interfaces for the external music APIs
//
// Spotify (catalog search), YouTube (video enrichment)
package services

import (
	"context"

	"github.com/veritasx01/audion-backend/internal/models"
)

// Catalog searches an external music catalog and normalizes results into
// Audion songs and playlists.
type Catalog interface {
	// SearchTracks searches the catalog by free text and returns at most
	// limit songs, relevance-filtered and with malformed records dropped.
	SearchTracks(ctx context.Context, query string, limit int) ([]models.Song, error)

	// SearchPlaylists searches the catalog for playlists and returns shells
	// carrying ExternalPlaylistID; songs are not fetched here.
	SearchPlaylists(ctx context.Context, query string, limit int) ([]models.Playlist, error)

	// PlaylistTracks returns the songs of one external playlist. Items whose
	// source is not a playable track are skipped silently.
	PlaylistTracks(ctx context.Context, externalPlaylistID string, limit int) ([]models.Song, error)
}

// VideoEnricher resolves a playable video URL and duration for songs that
// lack one.
type VideoEnricher interface {
	// EnrichSongs augments each song with url, youtubeVideoId, and duration.
	// The output preserves input order and length. A single song's failure
	// leaves its fields nil without failing siblings; only batch-level
	// failures (quota exhaustion, duration lookup) return an error.
	EnrichSongs(ctx context.Context, songs []models.Song) ([]models.Song, error)

	// EnrichSong enriches a single song, returning an error if the song could
	// not be fully enriched.
	EnrichSong(ctx context.Context, song models.Song) (models.Song, error)
}

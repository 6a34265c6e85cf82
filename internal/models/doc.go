// Package models defines the data model for the Audion playlist service.
//
// # Entities
//
// [Song] is the unit of playback. Songs arrive in two ways: created locally
// through the HTTP API, or normalized from Spotify catalog search results. A
// catalog song keeps its Spotify track ID as its identity so repeated imports
// stay stable.
//
// [Playlist] embeds its songs in insertion order (insertion order is play
// order). Playlists imported from Spotify carry an ExternalPlaylistID used by
// the upsert layer to keep re-imports idempotent.
//
// [MiniUser] is the denormalized creator stamp embedded in playlists. It is a
// read-only projection of [User] and is never mutated once embedded.
//
// # Enrichment state
//
// A song is fully enriched when both URL and Duration are set; [Song.Enriched]
// is the single source of truth for that predicate. Enrichment writes are
// all-or-nothing: URL, YouTubeVideoID, and Duration are set together or not at
// all.
package models

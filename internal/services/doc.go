// Package services implements the external-data clients: [SpotifyClient] for
// catalog search and [YouTubeClient] for video enrichment.
//
// # Catalog Interface
//
// [Catalog] abstracts the music catalog so orchestration and handlers never
// depend on Spotify specifics. [SpotifyClient] authenticates with the OAuth2
// client-credentials flow and keeps its token fresh with a background timer
// that re-exchanges credentials five minutes before expiry (with a one-minute
// floor). A 401 on any call forces a synchronous re-exchange and a single
// retry; a 429 is waited out per the Retry-After header and retried once.
//
// # Video Enrichment
//
// [VideoEnricher] resolves playable URLs and durations. [YouTubeClient]
// searches per song ("title artist lyrics", top relevance result), joins all
// searches, then batches contentDetails lookups 50 video IDs at a time. API
// keys rotate on quota exhaustion (403) with a wrapping cursor that persists
// across calls.
//
// # Relevance Filtering
//
// [RelevanceFilter] drops remixes, live versions, karaoke tracks, and
// compilation-album results from catalog searches. Pattern lists are
// configuration, not control flow; see [NewRelevanceFilter].
//
// # Retries
//
// Both clients share [RetryPolicy], a declarative retry shape (attempt
// ceiling, retryable-status predicate, wait source, between-attempt hook).
//
// # Error Handling
//
// Upstream failures are logged with endpoint, params, and status, then
// wrapped into the shared taxonomy:
//   - [shared.ErrUpstreamAuth] : credential exchange or 401 retry failed
//   - [shared.ErrRateLimited] : 429 not recoverable via Retry-After
//   - [shared.ErrQuotaExhausted] : every API key in the pool returned 403
//   - [shared.ErrPartialEnrichment] : a single song could not be enriched
//   - [shared.ErrAPIRequest] : any other upstream failure
package services

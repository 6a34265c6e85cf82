// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/veritasx01/audion-backend/internal/models"
	"github.com/veritasx01/audion-backend/internal/shared"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Proactive refresh fires this long before the token actually expires.
	tokenRefreshLead = 5 * time.Minute
	// Never schedule a refresh sooner than this, even for short-lived tokens.
	tokenRefreshFloor = time.Minute
	// Retry delay after a failed credential exchange.
	tokenRetryDelay = time.Minute

	spotifyRequestsPerSec = 10
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	AlbumType   string         `json:"album_type"`
	ReleaseDate string         `json:"release_date"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
}

// SpotifyOwner represents a playlist owner.
type SpotifyOwner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylist represents a playlist object from search results.
type SpotifyPlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       SpotifyOwner   `json:"owner"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyPlaylistItem represents a track within a playlist context.
type SpotifyPlaylistItem struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

type searchTracksResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

type searchPlaylistsResponse struct {
	Playlists struct {
		// Search can return literal nulls in the items array.
		Items []*SpotifyPlaylist `json:"items"`
	} `json:"playlists"`
}

type playlistTracksResponse struct {
	Items []SpotifyPlaylistItem `json:"items"`
}

// SpotifyClient implements [Catalog] against the Spotify Web API using the
// OAuth2 client-credentials flow.
//
// The access token moves through three states: absent, valid, expired. A
// background timer re-exchanges credentials ahead of expiry so calls normally
// never see an expired token; a 401 forces an immediate synchronous
// re-exchange with a single retry of the failed call.
type SpotifyClient struct {
	conf       *clientcredentials.Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	filter     *RelevanceFilter
	logger     *log.Logger

	mu           sync.Mutex
	accessToken  string
	tokenExpiry  time.Time
	refreshTimer *time.Timer

	now func() time.Time
}

// NewSpotifyClient creates a Spotify catalog client with the given
// client-credentials pair.
func NewSpotifyClient(cfg shared.SpotifyConfig, filter *RelevanceFilter, logger *log.Logger) (*SpotifyClient, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret", shared.ErrMissingCredentials)
	}
	if filter == nil {
		filter = DefaultRelevanceFilter()
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	conf := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyTokenURL,
	}

	return &SpotifyClient{
		conf:       conf,
		baseURL:    spotifyBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(spotifyRequestsPerSec), 1),
		filter:     filter,
		logger:     shared.WithLogger(logger, "service", "spotify"),
		now:        time.Now,
	}, nil
}

// Close stops the proactive token refresh timer.
func (c *SpotifyClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
}

// refreshDelay returns when the proactive refresh should fire for a token
// valid for untilExpiry.
func refreshDelay(untilExpiry time.Duration) time.Duration {
	d := untilExpiry - tokenRefreshLead
	if d < tokenRefreshFloor {
		return tokenRefreshFloor
	}
	return d
}

// token returns a valid access token, exchanging credentials when the token
// is absent or expired.
func (c *SpotifyClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.accessToken != "" && c.now().Before(c.tokenExpiry) {
		token := c.accessToken
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	return c.exchange(ctx)
}

// exchange performs the client-credentials exchange and schedules the next
// proactive refresh. On failure the token stays absent and a retry is
// scheduled in one minute.
func (c *SpotifyClient) exchange(ctx context.Context) (string, error) {
	c.logger.Debug("fetching new access token")

	token, err := c.conf.Token(ctx)
	if err != nil {
		c.logger.Error("credential exchange failed", "error", err)
		c.scheduleRefresh(tokenRetryDelay)
		return "", fmt.Errorf("%w: %v", shared.ErrUpstreamAuth, err)
	}

	c.mu.Lock()
	c.accessToken = token.AccessToken
	c.tokenExpiry = token.Expiry
	c.mu.Unlock()

	untilExpiry := token.Expiry.Sub(c.now())
	c.scheduleRefresh(refreshDelay(untilExpiry))
	c.logger.Debug("received new access token", "expires_in", untilExpiry.Round(time.Second))

	return token.AccessToken, nil
}

// scheduleRefresh (re)arms the proactive refresh timer.
func (c *SpotifyClient) scheduleRefresh(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
	}
	c.refreshTimer = time.AfterFunc(d, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		c.logger.Debug("proactively refreshing access token")
		if _, err := c.exchange(ctx); err != nil {
			c.logger.Warn("proactive token refresh failed", "error", err)
		}
	})
}

// doRequest performs an authenticated GET against the Spotify API and decodes
// the JSON response into result.
//
// A 401 triggers one forced re-exchange and retry; a 429 with a Retry-After
// header is waited out and retried once.
func (c *SpotifyClient) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	apiURL := c.baseURL + endpoint
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	policy := RetryPolicy{
		MaxAttempts: 2,
		Retryable: func(status int) bool {
			return status == http.StatusUnauthorized || status == http.StatusTooManyRequests
		},
		Wait: func(resp *http.Response) (time.Duration, bool) {
			if resp.StatusCode != http.StatusTooManyRequests {
				return 0, true
			}
			wait, ok := retryAfter(resp)
			if !ok {
				// No usable Retry-After: blind retries would only make the
				// rate limiting worse, so surface the response as-is.
				return 0, false
			}
			c.logger.Warn("rate limited, honoring Retry-After", "endpoint", endpoint, "wait", wait)
			return wait, true
		},
		OnRetry: func(ctx context.Context, resp *http.Response) error {
			if resp.StatusCode != http.StatusUnauthorized {
				return nil
			}
			c.logger.Debug("token rejected, re-exchanging credentials", "endpoint", endpoint)
			_, err := c.exchange(ctx)
			return err
		},
	}

	resp, err := policy.Do(ctx, func(ctx context.Context) (*http.Response, error) {
		token, err := c.token(ctx)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)

		return c.httpClient.Do(req)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("spotify API error", "endpoint", endpoint, "params", params.Encode(), "status", resp.StatusCode)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: spotify rejected token after re-exchange", shared.ErrUpstreamAuth)
		case http.StatusTooManyRequests:
			if _, ok := retryAfter(resp); !ok {
				c.logger.Warn("429 without usable Retry-After header", "endpoint", endpoint)
			}
			return fmt.Errorf("%w: spotify %s", shared.ErrRateLimited, endpoint)
		default:
			return fmt.Errorf("%w: spotify %s returned status %d", shared.ErrAPIRequest, endpoint, resp.StatusCode)
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode spotify response: %w", err)
		}
	}

	return nil
}

// SearchTracks searches the catalog by free text.
//
// Malformed records (no track ID) are dropped, the remainder passes through
// the relevance filter, and at most limit songs are returned.
func (c *SpotifyClient) SearchTracks(ctx context.Context, query string, limit int) ([]models.Song, error) {
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("offset", "0")

	var response searchTracksResponse
	if err := c.doRequest(ctx, "/search", params, &response); err != nil {
		return nil, err
	}

	songs := make([]models.Song, 0, len(response.Tracks.Items))
	for _, track := range response.Tracks.Items {
		if track.ID == "" {
			continue
		}
		songs = append(songs, normalizeTrack(track))
	}

	relevant := c.filter.Filter(songs, query)
	c.logger.Debug("normalized catalog tracks", "query", query, "fetched", len(songs), "relevant", len(relevant))

	if len(relevant) > limit {
		relevant = relevant[:limit]
	}
	return relevant, nil
}

// SearchPlaylists searches the catalog for playlists and returns shells
// carrying ExternalPlaylistID. Songs are fetched separately per playlist.
func (c *SpotifyClient) SearchPlaylists(ctx context.Context, query string, limit int) ([]models.Playlist, error) {
	if limit <= 0 {
		limit = 50
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "playlist")
	params.Set("limit", fmt.Sprintf("%d", limit))

	var response searchPlaylistsResponse
	if err := c.doRequest(ctx, "/search", params, &response); err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(response.Playlists.Items))
	for _, sp := range response.Playlists.Items {
		if sp == nil || sp.ID == "" {
			continue
		}

		playlist := models.Playlist{
			ExternalPlaylistID: sp.ID,
			Title:              sp.Name,
			Description:        sp.Description,
			CreatedBy: models.MiniUser{
				ID:       sp.Owner.ID,
				FullName: sp.Owner.DisplayName,
			},
			Songs: []models.Song{},
		}
		if playlist.Title == "" {
			playlist.Title = "Untitled Playlist"
		}
		if playlist.CreatedBy.ID == "" {
			playlist.CreatedBy.ID = "unknown"
		}
		if playlist.CreatedBy.FullName == "" {
			playlist.CreatedBy.FullName = "Unknown User"
		}
		if len(sp.Images) > 0 {
			playlist.Thumbnail = sp.Images[0].URL
		}

		playlists = append(playlists, playlist)
	}

	c.logger.Debug("fetched catalog playlists", "query", query, "count", len(playlists))
	return playlists, nil
}

// PlaylistTracks returns the songs of one external playlist.
//
// Items whose source is not a playable track (podcast episodes, null
// identities) are skipped silently. Durations stay nil until enrichment.
func (c *SpotifyClient) PlaylistTracks(ctx context.Context, externalPlaylistID string, limit int) ([]models.Song, error) {
	if limit <= 0 {
		limit = 50
	}

	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("fields", "items(added_at,track(id,name,type,artists(id,name),album(id,name,release_date,images)))")

	endpoint := fmt.Sprintf("/playlists/%s/tracks", externalPlaylistID)

	var response playlistTracksResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	songs := make([]models.Song, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Track == nil || item.Track.ID == "" {
			continue
		}
		if item.Track.Type != "" && item.Track.Type != "track" {
			continue
		}

		song := normalizeTrack(*item.Track)
		song.Duration = nil // playlist fields omit duration_ms; enrichment fills it in
		if addedAt, err := time.Parse(time.RFC3339, item.AddedAt); err == nil {
			song.AddedAt = addedAt
		}
		songs = append(songs, song)
	}

	c.logger.Debug("fetched playlist tracks", "playlist", externalPlaylistID, "count", len(songs))
	return songs, nil
}

// normalizeTrack converts a Spotify track into an Audion song.
//
// duration_ms is converted to whole seconds here (rounded up); everything
// downstream deals in integer seconds only.
func normalizeTrack(track SpotifyTrack) models.Song {
	song := models.Song{
		ID:        track.ID,
		Title:     track.Name,
		AlbumName: track.Album.Name,
		Genres:    []string{}, // not provided at track level
	}

	if len(track.Artists) > 0 {
		song.Artist = track.Artists[0].Name
	}
	if len(track.Album.Images) > 0 {
		song.Thumbnail = track.Album.Images[0].URL
	}
	if track.DurationMS > 0 {
		seconds := int(math.Ceil(float64(track.DurationMS) / 1000))
		song.Duration = &seconds
	}
	if released, ok := parseReleaseDate(track.Album.ReleaseDate); ok {
		song.ReleasedAt = released
	}

	return song
}

// parseReleaseDate handles Spotify's variable release date precision
// (full date, year-month, or year only).
func parseReleaseDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

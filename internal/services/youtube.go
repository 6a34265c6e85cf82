// YouTube Data API v3 implementation of [VideoEnricher]
//
// Resolves playable video URLs and durations for songs, rotating across a
// pool of API keys as each one exhausts its daily quota.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/veritasx01/audion-backend/internal/models"
	"github.com/veritasx01/audion-backend/internal/shared"
	"golang.org/x/sync/errgroup"
)

const (
	youtubeBaseURL = "https://www.googleapis.com/youtube/v3"
	watchURLPrefix = "https://www.youtube.com/watch?v="

	// The videos endpoint accepts at most 50 IDs per call.
	maxVideoIDsPerLookup = 50
)

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

type youtubeVideosResponse struct {
	Items []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// keyPool is the rotation cursor over the configured API keys.
//
// The cursor only advances on quota exhaustion and persists across calls, so
// a fresh request starts on the last known-good key.
type keyPool struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

func (p *keyPool) current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys[p.cursor]
}

func (p *keyPool) rotate() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = (p.cursor + 1) % len(p.keys)
	return p.cursor
}

func (p *keyPool) size() int { return len(p.keys) }

// YouTubeClient implements [VideoEnricher] against the YouTube Data API v3.
type YouTubeClient struct {
	baseURL    string
	httpClient *http.Client
	pool       *keyPool
	logger     *log.Logger
}

// NewYouTubeClient creates a client over the given API key pool.
func NewYouTubeClient(apiKeys []string, logger *log.Logger) (*YouTubeClient, error) {
	if len(apiKeys) == 0 {
		return nil, fmt.Errorf("%w: at least one YouTube API key", shared.ErrMissingCredentials)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &YouTubeClient{
		baseURL:    youtubeBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pool:       &keyPool{keys: apiKeys},
		logger:     shared.WithLogger(logger, "service", "youtube"),
	}, nil
}

// doRequest performs a GET against the YouTube API, rotating API keys on 403
// until one succeeds or the whole pool is exhausted.
func (c *YouTubeClient) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	policy := RetryPolicy{
		MaxAttempts: c.pool.size(),
		Retryable: func(status int) bool {
			return status == http.StatusForbidden
		},
		OnRetry: func(_ context.Context, _ *http.Response) error {
			next := c.pool.rotate()
			c.logger.Warn("quota exceeded, rotating API key", "endpoint", endpoint, "key_index", next)
			return nil
		},
	}

	resp, err := policy.Do(ctx, func(ctx context.Context) (*http.Response, error) {
		reqParams := url.Values{}
		for k, v := range params {
			reqParams[k] = v
		}
		reqParams.Set("key", c.pool.current())

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+reqParams.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		return c.httpClient.Do(req)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("youtube API error", "endpoint", endpoint, "params", params.Encode(), "status", resp.StatusCode)
		if resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %d keys tried", shared.ErrQuotaExhausted, c.pool.size())
		}
		return fmt.Errorf("%w: youtube %s returned status %d", shared.ErrAPIRequest, endpoint, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode youtube response: %w", err)
		}
	}

	return nil
}

// searchVideo returns the top relevance-ranked video ID for the query, or ""
// when the search has no results.
func (c *YouTubeClient) searchVideo(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("maxResults", "1")
	params.Set("order", "relevance")

	var response youtubeSearchResponse
	if err := c.doRequest(ctx, "/search", params, &response); err != nil {
		return "", err
	}

	if len(response.Items) == 0 || response.Items[0].ID.VideoID == "" {
		c.logger.Warn("no video results", "query", query)
		return "", nil
	}
	return response.Items[0].ID.VideoID, nil
}

// videoDurations resolves durations in seconds for the given video IDs,
// issuing one videos call per 50 IDs.
func (c *YouTubeClient) videoDurations(ctx context.Context, videoIDs []string) (map[string]int, error) {
	durations := make(map[string]int, len(videoIDs))

	for start := 0; start < len(videoIDs); start += maxVideoIDsPerLookup {
		end := start + maxVideoIDsPerLookup
		if end > len(videoIDs) {
			end = len(videoIDs)
		}

		params := url.Values{}
		params.Set("part", "contentDetails")
		params.Set("id", strings.Join(videoIDs[start:end], ","))

		var response youtubeVideosResponse
		if err := c.doRequest(ctx, "/videos", params, &response); err != nil {
			return nil, err
		}

		for _, item := range response.Items {
			if seconds, ok := parseISODuration(item.ContentDetails.Duration); ok {
				durations[item.ID] = seconds
			}
		}
	}

	return durations, nil
}

// EnrichSongs augments each song with a playable URL, video ID, and duration.
//
// All per-song searches run concurrently and are joined before the batched
// duration lookup begins, since that lookup needs every resolved video ID.
// Output preserves input order. A song with no match keeps nil fields; quota
// exhaustion aborts the batch because no sibling can succeed either.
func (c *YouTubeClient) EnrichSongs(ctx context.Context, songs []models.Song) ([]models.Song, error) {
	if len(songs) == 0 {
		return []models.Song{}, nil
	}

	enriched := make([]models.Song, len(songs))
	videoIDs := make([]string, len(songs))

	g, gctx := errgroup.WithContext(ctx)
	for i, song := range songs {
		g.Go(func() error {
			enriched[i] = song

			query := fmt.Sprintf("%s %s lyrics", song.Title, song.Artist)
			videoID, err := c.searchVideo(gctx, query)
			if err != nil {
				if errors.Is(err, shared.ErrQuotaExhausted) {
					return err
				}
				// Isolated failure: this song stays unenriched, siblings proceed.
				c.logger.Error("video search failed", "query", query, "error", err)
				return nil
			}

			videoIDs[i] = videoID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resolved := make([]string, 0, len(videoIDs))
	seen := make(map[string]bool, len(videoIDs))
	for _, id := range videoIDs {
		if id != "" && !seen[id] {
			seen[id] = true
			resolved = append(resolved, id)
		}
	}

	if len(resolved) == 0 {
		return enriched, nil
	}

	durations, err := c.videoDurations(ctx, resolved)
	if err != nil {
		return nil, err
	}

	for i := range enriched {
		id := videoIDs[i]
		if id == "" {
			continue
		}
		// url, videoID, and duration are set together or not at all.
		if seconds, ok := durations[id]; ok {
			enriched[i].SetVideoData(watchURLPrefix+id, id, seconds)
		}
	}

	return enriched, nil
}

// EnrichSong enriches a single song, failing when no full enrichment was
// possible.
func (c *YouTubeClient) EnrichSong(ctx context.Context, song models.Song) (models.Song, error) {
	enriched, err := c.EnrichSongs(ctx, []models.Song{song})
	if err != nil {
		return song, err
	}

	if !enriched[0].Enriched() {
		return song, fmt.Errorf("%w: no video match for %q by %q", shared.ErrPartialEnrichment, song.Title, song.Artist)
	}
	return enriched[0], nil
}

var isoDurationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseISODuration converts a YouTube ISO-8601 duration (PT#H#M#S) to whole
// seconds.
func parseISODuration(duration string) (int, bool) {
	match := isoDurationPattern.FindStringSubmatch(duration)
	if match == nil || (match[1] == "" && match[2] == "" && match[3] == "") {
		return 0, false
	}

	hours, _ := strconv.Atoi(zeroIfEmpty(match[1]))
	minutes, _ := strconv.Atoi(zeroIfEmpty(match[2]))
	seconds, _ := strconv.Atoi(zeroIfEmpty(match[3]))

	return hours*3600 + minutes*60 + seconds, true
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

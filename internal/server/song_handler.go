package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/veritasx01/audion-backend/internal/models"
	"github.com/veritasx01/audion-backend/internal/services"
	"github.com/veritasx01/audion-backend/internal/shared"
)

// SongStore is the slice of the song repository the handler needs.
type SongStore interface {
	Query(ctx context.Context, filter models.SongFilter) ([]models.Song, error)
	Get(ctx context.Context, id string) (*models.Song, error)
	Add(ctx context.Context, song models.Song) (*models.Song, error)
	Update(ctx context.Context, song models.Song) (*models.Song, error)
	Remove(ctx context.Context, id string) error
}

// SongHandler serves the /api/song routes.
type SongHandler struct {
	store   SongStore
	catalog services.Catalog
	secret  string
	logger  *log.Logger
}

// NewSongHandler creates a [SongHandler].
func NewSongHandler(store SongStore, catalog services.Catalog, secret string, logger *log.Logger) *SongHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SongHandler{store: store, catalog: catalog, secret: secret, logger: logger.With("handler", "song")}
}

// Routes returns the path patterns this handler serves.
func (h *SongHandler) Routes() []string {
	return []string{
		"GET /api/song",
		"GET /api/song/search",
		"GET /api/song/{songId}",
		"POST /api/song",
		"PATCH /api/song/{songId}",
		"DELETE /api/song/{songId}",
	}
}

// ServeHTTP dispatches to the operation matching the matched route.
func (h *SongHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	songID := r.PathValue("songId")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/song/search":
		h.search(w, r)
	case r.Method == http.MethodGet && songID == "":
		h.list(w, r)
	case r.Method == http.MethodGet:
		h.get(w, r, songID)
	case r.Method == http.MethodPost:
		h.create(w, r)
	case r.Method == http.MethodPatch:
		h.update(w, r, songID)
	case r.Method == http.MethodDelete:
		h.remove(w, r, songID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SongHandler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.SongFilter{
		SearchString: query.Get("searchString"),
		Artist:       query.Get("artist"),
		SortBy:       query.Get("sortBy"),
	}
	if dir, err := strconv.Atoi(query.Get("sortDir")); err == nil {
		filter.SortDir = dir
	}
	if idx, err := strconv.Atoi(query.Get("pageIdx")); err == nil && idx >= 0 {
		filter.PageIdx = &idx
	}

	songs, err := h.store.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query songs", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

// search proxies a catalog track search, relevance-filtered.
func (h *SongHandler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, fmt.Errorf("%w: query parameter q", shared.ErrMissingArgument))
		return
	}

	limit := 5
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}

	songs, err := h.catalog.SearchTracks(r.Context(), query, limit)
	if err != nil {
		h.logger.Error("catalog search failed", "query", query, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (h *SongHandler) get(w http.ResponseWriter, r *http.Request, songID string) {
	song, err := h.store.Get(r.Context(), songID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (h *SongHandler) create(w http.ResponseWriter, r *http.Request) {
	var song models.Song
	if err := json.NewDecoder(r.Body).Decode(&song); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	if song.Title == "" {
		writeError(w, fmt.Errorf("%w: title", shared.ErrMissingArgument))
		return
	}

	created, err := h.store.Add(r.Context(), song)
	if err != nil {
		h.logger.Error("failed to add song", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *SongHandler) update(w http.ResponseWriter, r *http.Request, songID string) {
	var song models.Song
	if err := json.NewDecoder(r.Body).Decode(&song); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	song.ID = songID

	updated, err := h.store.Update(r.Context(), song)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *SongHandler) remove(w http.ResponseWriter, r *http.Request, songID string) {
	if _, err := requireAdmin(h.secret, r); err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.Remove(r.Context(), songID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

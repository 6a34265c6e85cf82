package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/veritasx01/audion-backend/internal/models"
	"github.com/veritasx01/audion-backend/internal/shared"
	"github.com/veritasx01/audion-backend/internal/tasks"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// objectIDFromPath converts a path segment into an ObjectID.
func objectIDFromPath(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid id %q", shared.ErrInvalidArgument, id)
	}
	return oid, nil
}

// PlaylistStore is the slice of the playlist repository the handler needs.
type PlaylistStore interface {
	Query(ctx context.Context, filter models.PlaylistFilter) ([]models.Playlist, error)
	Get(ctx context.Context, id string) (*models.Playlist, error)
	Add(ctx context.Context, playlist models.Playlist) (*models.Playlist, error)
	Update(ctx context.Context, playlist models.Playlist) (*models.Playlist, error)
	Remove(ctx context.Context, id string) error
	AddSong(ctx context.Context, playlistID string, song models.Song) error
	RemoveSong(ctx context.Context, playlistID, songID string) error
}

// PlaylistHandler serves the /api/playlist routes.
type PlaylistHandler struct {
	store  PlaylistStore
	engine tasks.EnrichmentEngine
	secret string
	logger *log.Logger
}

// NewPlaylistHandler creates a [PlaylistHandler].
func NewPlaylistHandler(store PlaylistStore, engine tasks.EnrichmentEngine, secret string, logger *log.Logger) *PlaylistHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &PlaylistHandler{store: store, engine: engine, secret: secret, logger: logger.With("handler", "playlist")}
}

// Routes returns the path patterns this handler serves.
func (h *PlaylistHandler) Routes() []string {
	return []string{
		"GET /api/playlist",
		"GET /api/playlist/search",
		"GET /api/playlist/{playlistId}",
		"GET /api/playlist/{playlistId}/song/{songId}",
		"POST /api/playlist",
		"POST /api/playlist/{playlistId}/song",
		"PATCH /api/playlist/{playlistId}",
		"DELETE /api/playlist/{playlistId}",
		"DELETE /api/playlist/{playlistId}/song/{songId}",
	}
}

// ServeHTTP dispatches to the operation matching the matched route.
func (h *PlaylistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	playlistID := r.PathValue("playlistId")
	songID := r.PathValue("songId")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/playlist/search":
		h.searchAndImport(w, r)
	case r.Method == http.MethodGet && playlistID == "":
		h.list(w, r)
	case r.Method == http.MethodGet && songID != "":
		h.fullSongDetails(w, r, playlistID, songID)
	case r.Method == http.MethodGet:
		h.get(w, r, playlistID)
	case r.Method == http.MethodPost && playlistID == "":
		h.create(w, r)
	case r.Method == http.MethodPost:
		h.addSong(w, r, playlistID)
	case r.Method == http.MethodPatch:
		h.update(w, r, playlistID)
	case r.Method == http.MethodDelete && songID != "":
		h.removeSong(w, r, playlistID, songID)
	case r.Method == http.MethodDelete:
		h.remove(w, r, playlistID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *PlaylistHandler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.PlaylistFilter{
		UserID:       query.Get("userId"),
		SearchString: query.Get("searchString"),
		Genre:        query.Get("genre"),
	}
	if liked := query.Get("isLikedSongs"); liked != "" {
		value := liked == "true"
		filter.IsLikedSongs = &value
	}
	if ids, ok := query["playlistIds"]; ok {
		filter.PlaylistIDs = ids
	}

	playlists, err := h.store.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query playlists", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

// searchAndImport searches the catalog and upserts the resulting playlists.
func (h *PlaylistHandler) searchAndImport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, fmt.Errorf("%w: query parameter q", shared.ErrMissingArgument))
		return
	}

	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}

	playlists, err := h.engine.SearchAndImport(r.Context(), query, limit)
	if err != nil {
		h.logger.Error("catalog playlist search failed", "query", query, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (h *PlaylistHandler) get(w http.ResponseWriter, r *http.Request, playlistID string) {
	playlist, err := h.store.Get(r.Context(), playlistID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

// fullSongDetails returns a playlist song with its video URL and duration,
// enriching lazily on first access.
func (h *PlaylistHandler) fullSongDetails(w http.ResponseWriter, r *http.Request, playlistID, songID string) {
	song, err := h.engine.GetFullSongDetails(r.Context(), playlistID, songID)
	if err != nil {
		h.logger.Error("failed to get full song details",
			"playlist", playlistID, "song", songID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (h *PlaylistHandler) create(w http.ResponseWriter, r *http.Request) {
	claims, err := authenticate(h.secret, r)
	if err != nil {
		writeError(w, err)
		return
	}

	var playlist models.Playlist
	if err := json.NewDecoder(r.Body).Decode(&playlist); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	if playlist.Title == "" {
		writeError(w, fmt.Errorf("%w: title", shared.ErrMissingArgument))
		return
	}

	playlist.CreatedBy = models.MiniUser{ID: claims.UserID, FullName: claims.FullName}

	created, err := h.store.Add(r.Context(), playlist)
	if err != nil {
		h.logger.Error("failed to add playlist", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *PlaylistHandler) update(w http.ResponseWriter, r *http.Request, playlistID string) {
	if _, err := authenticate(h.secret, r); err != nil {
		writeError(w, err)
		return
	}

	var playlist models.Playlist
	if err := json.NewDecoder(r.Body).Decode(&playlist); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	oid, err := objectIDFromPath(playlistID)
	if err != nil {
		writeError(w, err)
		return
	}
	playlist.ID = oid

	updated, err := h.store.Update(r.Context(), playlist)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *PlaylistHandler) remove(w http.ResponseWriter, r *http.Request, playlistID string) {
	if _, err := authenticate(h.secret, r); err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.Remove(r.Context(), playlistID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PlaylistHandler) addSong(w http.ResponseWriter, r *http.Request, playlistID string) {
	var song models.Song
	if err := json.NewDecoder(r.Body).Decode(&song); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	if song.ID == "" {
		writeError(w, fmt.Errorf("%w: song _id", shared.ErrMissingArgument))
		return
	}

	if err := h.store.AddSong(r.Context(), playlistID, song); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Song added"})
}

func (h *PlaylistHandler) removeSong(w http.ResponseWriter, r *http.Request, playlistID, songID string) {
	if err := h.store.RemoveSong(r.Context(), playlistID, songID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Song removed"})
}

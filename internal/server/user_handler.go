package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/veritasx01/audion-backend/internal/models"
	"github.com/veritasx01/audion-backend/internal/repositories"
	"github.com/veritasx01/audion-backend/internal/shared"
)

// UserStore is the slice of the user repository the handler needs.
type UserStore interface {
	Query(ctx context.Context, filter repositories.UserFilter) ([]models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email, excludeID string) (*models.User, error)
	Update(ctx context.Context, user models.User) (*models.User, error)
	Remove(ctx context.Context, id string) error
	AddPlaylistToLibrary(ctx context.Context, userID, playlistID string) error
	RemovePlaylistFromLibrary(ctx context.Context, userID, playlistID string) error
}

// UserHandler serves the /api/user routes.
type UserHandler struct {
	store  UserStore
	secret string
	logger *log.Logger
}

// NewUserHandler creates a [UserHandler].
func NewUserHandler(store UserStore, secret string, logger *log.Logger) *UserHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &UserHandler{store: store, secret: secret, logger: logger.With("handler", "user")}
}

// Routes returns the path patterns this handler serves.
func (h *UserHandler) Routes() []string {
	return []string{
		"GET /api/user",
		"GET /api/user/{id}",
		"PATCH /api/user/{id}",
		"DELETE /api/user/{id}",
		"POST /api/user/{id}/playlist/{playlistId}",
		"DELETE /api/user/{id}/playlist/{playlistId}",
	}
}

// ServeHTTP dispatches to the operation matching the matched route.
func (h *UserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	playlistID := r.PathValue("playlistId")

	switch {
	case r.Method == http.MethodGet && userID == "":
		h.list(w, r)
	case r.Method == http.MethodGet:
		h.get(w, r, userID)
	case r.Method == http.MethodPatch:
		h.update(w, r, userID)
	case r.Method == http.MethodPost && playlistID != "":
		h.addPlaylistToLibrary(w, r, userID, playlistID)
	case r.Method == http.MethodDelete && playlistID != "":
		h.removePlaylistFromLibrary(w, r, userID, playlistID)
	case r.Method == http.MethodDelete:
		h.remove(w, r, userID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *UserHandler) list(w http.ResponseWriter, r *http.Request) {
	filter := repositories.UserFilter{
		Name:  r.URL.Query().Get("name"),
		Email: r.URL.Query().Get("email"),
	}

	users, err := h.store.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query users", "error", err)
		writeError(w, err)
		return
	}

	minis := make([]models.MiniUser, len(users))
	for i := range users {
		minis[i] = users[i].ToMiniUser()
	}
	writeJSON(w, http.StatusOK, minis)
}

func (h *UserHandler) get(w http.ResponseWriter, r *http.Request, userID string) {
	user, err := h.store.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// update edits a user's profile. Only the account owner or an admin may do
// so, and a changed email must stay unique.
func (h *UserHandler) update(w http.ResponseWriter, r *http.Request, userID string) {
	claims, err := authenticate(h.secret, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if !claims.IsAdmin && claims.UserID != userID {
		writeError(w, fmt.Errorf("%w: cannot edit another user's profile", shared.ErrAccessForbidden))
		return
	}

	var user models.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	oid, err := objectIDFromPath(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	user.ID = oid

	if user.Email != "" {
		if _, err := h.store.GetByEmail(r.Context(), user.Email, userID); err == nil {
			writeError(w, fmt.Errorf("%w: %s", shared.ErrDuplicateEmail, user.Email))
			return
		}
	}

	updated, err := h.store.Update(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *UserHandler) remove(w http.ResponseWriter, r *http.Request, userID string) {
	if _, err := requireAdmin(h.secret, r); err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.Remove(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) addPlaylistToLibrary(w http.ResponseWriter, r *http.Request, userID, playlistID string) {
	if _, err := authenticate(h.secret, r); err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.AddPlaylistToLibrary(r.Context(), userID, playlistID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Playlist saved to library"})
}

func (h *UserHandler) removePlaylistFromLibrary(w http.ResponseWriter, r *http.Request, userID, playlistID string) {
	if _, err := authenticate(h.secret, r); err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.RemovePlaylistFromLibrary(r.Context(), userID, playlistID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Playlist removed from library"})
}

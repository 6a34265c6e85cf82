package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/veritasx01/audion-backend/internal/models"
	"github.com/veritasx01/audion-backend/internal/shared"
	"golang.org/x/crypto/bcrypt"
)

// AccountStore is the slice of the user repository the auth flow needs.
type AccountStore interface {
	Add(ctx context.Context, user models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email, excludeID string) (*models.User, error)
}

// AuthHandler serves the /api/auth routes.
type AuthHandler struct {
	store  AccountStore
	secret string
	logger *log.Logger
}

// NewAuthHandler creates an [AuthHandler].
func NewAuthHandler(store AccountStore, secret string, logger *log.Logger) *AuthHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AuthHandler{store: store, secret: secret, logger: logger.With("handler", "auth")}
}

// Routes returns the path patterns this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{
		"POST /api/auth/login",
		"POST /api/auth/signup",
		"POST /api/auth/logout",
	}
}

// ServeHTTP dispatches to the operation matching the matched route.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/auth/login":
		h.login(w, r)
	case "/api/auth/signup":
		h.signup(w, r)
	case "/api/auth/logout":
		h.logout(w, r)
	default:
		http.NotFound(w, r)
	}
}

type credentials struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	ProfileImg string `json:"profileImg"`
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	user, err := h.authenticateUser(r.Context(), creds.Username, creds.Password)
	if err != nil {
		h.logger.Warn("login failed", "username", creds.Username)
		writeError(w, err)
		return
	}

	token, err := generateToken(h.secret, user)
	if err != nil {
		writeError(w, err)
		return
	}

	setLoginCookie(w, token)
	h.logger.Info("user logged in", "username", user.Username)
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	if creds.Username == "" || creds.Password == "" || creds.FullName == "" {
		writeError(w, fmt.Errorf("%w: username, password, and fullName", shared.ErrMissingCredentials))
		return
	}

	if _, err := h.store.GetByUsername(r.Context(), creds.Username); err == nil {
		writeError(w, fmt.Errorf("%w: username %s taken", shared.ErrInvalidInput, creds.Username))
		return
	}
	if creds.Email != "" {
		if _, err := h.store.GetByEmail(r.Context(), creds.Email, ""); err == nil {
			writeError(w, fmt.Errorf("%w: %s", shared.ErrDuplicateEmail, creds.Email))
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, fmt.Errorf("failed to hash password: %w", err))
		return
	}

	user, err := h.store.Add(r.Context(), models.User{
		Username:   creds.Username,
		Password:   string(hash),
		FullName:   creds.FullName,
		Email:      creds.Email,
		ProfileImg: creds.ProfileImg,
	})
	if err != nil {
		h.logger.Error("signup failed", "username", creds.Username, "error", err)
		writeError(w, err)
		return
	}

	token, err := generateToken(h.secret, user)
	if err != nil {
		writeError(w, err)
		return
	}

	setLoginCookie(w, token)
	h.logger.Info("account created", "username", user.Username)
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) logout(w http.ResponseWriter, _ *http.Request) {
	clearLoginCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// authenticateUser checks a username/password pair against the store.
func (h *AuthHandler) authenticateUser(ctx context.Context, username, password string) (*models.User, error) {
	user, err := h.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown username", shared.ErrInvalidCredentials)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: wrong password", shared.ErrInvalidCredentials)
	}
	return user, nil
}

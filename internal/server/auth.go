package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/veritasx01/audion-backend/internal/models"
	"github.com/veritasx01/audion-backend/internal/shared"
)

// loginCookie is the cookie carrying the session JWT.
const loginCookie = "loginToken"

// Sessions expire after an hour; the cookie lifetime matches.
const tokenTTL = time.Hour

// Claims is the JWT payload for a logged-in user.
type Claims struct {
	UserID   string `json:"_id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	IsAdmin  bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// generateToken signs a session token for the user.
func generateToken(secret string, user *models.User) (string, error) {
	claims := Claims{
		UserID:   user.ID.Hex(),
		Username: user.Username,
		FullName: user.FullName,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// validateToken parses and verifies a session token.
func validateToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", shared.ErrNotAuthenticated)
	}
	return claims, nil
}

// authenticate reads and verifies the session cookie on the request.
func authenticate(secret string, r *http.Request) (*Claims, error) {
	cookie, err := r.Cookie(loginCookie)
	if err != nil {
		return nil, fmt.Errorf("%w: not logged in", shared.ErrNotAuthenticated)
	}
	return validateToken(secret, cookie.Value)
}

// requireAdmin authenticates the request and checks the admin flag.
func requireAdmin(secret string, r *http.Request) (*Claims, error) {
	claims, err := authenticate(secret, r)
	if err != nil {
		return nil, err
	}
	if !claims.IsAdmin {
		return nil, fmt.Errorf("%w: admin only", shared.ErrAccessForbidden)
	}
	return claims, nil
}

// setLoginCookie writes the session cookie on the response.
func setLoginCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     loginCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
		Secure:   true,
		MaxAge:   int(tokenTTL.Seconds()),
	})
}

// clearLoginCookie expires the session cookie.
func clearLoginCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     loginCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

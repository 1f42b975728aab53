package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/miorah/storefront/internal/repository"
	"github.com/miorah/storefront/internal/service"
	"github.com/miorah/storefront/internal/token"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequestDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponseDTO struct {
	Token string           `json:"token"`
	User  *repository.User `json:"user"`
}

type refreshResponseDTO struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Register handles POST /users.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" || len(req.Password) < 6 {
		respondError(w, http.StatusBadRequest, "invalid_request", "name, email and a password of at least 6 characters are required")
		return
	}

	tok, user, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			respondError(w, http.StatusBadRequest, "email_taken", "user already exists")
			return
		}
		respondError(w, http.StatusInternalServerError, "server_error", "could not register user")
		return
	}

	respondJSON(w, http.StatusCreated, sessionResponseDTO{Token: tok, User: user})
}

// Login handles POST /auth.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	tok, user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		respondError(w, http.StatusInternalServerError, "server_error", "could not log in")
		return
	}

	respondJSON(w, http.StatusOK, sessionResponseDTO{Token: tok, User: user})
}

// Profile handles GET /auth (authenticated).
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Profile(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user_not_found", "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "server_error", "could not load profile")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// Refresh handles POST /auth/refresh. It deliberately sits outside the
// auth middleware: clients refresh reactively once they notice expiry,
// so a recently expired token must still be usable here. The manager
// enforces the grace window and revokes the old token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := r.Header.Get(AuthHeader)
	if raw == "" {
		respondError(w, http.StatusUnauthorized, "no_token", "no token, authorization denied")
		return
	}

	fresh, err := h.auth.Refresh(r.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrExpiredToken), errors.Is(err, token.ErrRevokedToken), errors.Is(err, token.ErrInvalidToken):
			respondError(w, http.StatusUnauthorized, "refresh_denied", "token can no longer be refreshed")
		default:
			respondError(w, http.StatusInternalServerError, "server_error", "could not refresh token")
		}
		return
	}

	respondJSON(w, http.StatusOK, refreshResponseDTO{Token: fresh, Message: "token refreshed"})
}

// Logout handles POST /auth/logout (authenticated). The token is
// blacklisted server-side.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), rawTokenFromContext(r.Context())); err != nil {
		respondError(w, http.StatusInternalServerError, "server_error", "could not log out")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

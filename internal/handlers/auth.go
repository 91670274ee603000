package handlers

import (
	"errors"
	"net/http"

	"github.com/dave817/sereniowebapp/internal/api/middleware"
	"github.com/dave817/sereniowebapp/internal/auth"
	"github.com/dave817/sereniowebapp/internal/models"
)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Token string        `json:"token"`
	User  models.Public `json:"user"`
}

// UserResponse is returned by verify.
type UserResponse struct {
	User models.Public `json:"user"`
}

// Register handles account creation.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decode(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	sess, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.authError(w, err, "registration failed")
		return
	}

	h.JSON(w, http.StatusCreated, SessionResponse{Token: sess.Token, User: sess.User.Public()})
}

// Login handles credential checks.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	sess, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.authError(w, err, "login failed")
		return
	}

	h.JSON(w, http.StatusOK, SessionResponse{Token: sess.Token, User: sess.User.Public()})
}

// Verify returns the user behind the request's token.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentityFromContext(r.Context())

	user, err := h.auth.CurrentUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			h.Error(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		h.logger.Error().Err(err).Int64("user_id", id.UserID).Msg("verify failed")
		h.Error(w, http.StatusInternalServerError, "Server error")
		return
	}

	h.JSON(w, http.StatusOK, UserResponse{User: user.Public()})
}

// Logout revokes the request's token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentityFromContext(r.Context())

	if err := h.auth.Logout(r.Context(), id); err != nil {
		h.logger.Error().Err(err).Int64("user_id", id.UserID).Msg("logout failed")
		h.Error(w, http.StatusInternalServerError, "Server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) authError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		h.Error(w, http.StatusBadRequest, "All fields are required")
	case errors.Is(err, auth.ErrInvalidEmail):
		h.Error(w, http.StatusBadRequest, "Invalid email format")
	case errors.Is(err, auth.ErrDuplicateEmail):
		h.Error(w, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.Error(w, http.StatusBadRequest, "Invalid credentials")
	default:
		h.logger.Error().Err(err).Msg(action)
		h.Error(w, http.StatusInternalServerError, "Server error")
	}
}

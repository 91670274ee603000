package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dave817/sereniowebapp/internal/auth"
	"github.com/dave817/sereniowebapp/internal/chat"
	"github.com/dave817/sereniowebapp/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db        store.DataStore
	redis     *store.RedisStore
	auth      *auth.Service
	chat      *chat.Pipeline
	anonymous bool
	logger    zerolog.Logger
}

// Options configures NewHandler.
type Options struct {
	DB        store.DataStore
	Redis     *store.RedisStore // optional
	Auth      *auth.Service
	Chat      *chat.Pipeline
	Anonymous bool
	Logger    zerolog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(opts Options) *Handler {
	return &Handler{
		db:        opts.DB,
		redis:     opts.Redis,
		auth:      opts.Auth,
		chat:      opts.Chat,
		anonymous: opts.Anonymous,
		logger:    opts.Logger,
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, ErrorResponse{Error: true, Message: message})
}

// decode reads a JSON body into v. An empty body leaves v zero.
func decode(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

package handlers

import (
	"errors"
	"net/http"
	"slices"

	"github.com/dave817/sereniowebapp/internal/api/middleware"
	"github.com/dave817/sereniowebapp/internal/chat"
	"github.com/dave817/sereniowebapp/internal/models"
)

// historyLimit bounds GET /api/chat/messages.
const historyLimit = 50

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse carries both rows of a completed turn. Response repeats the
// bot text for anonymous clients.
type ChatResponse struct {
	Response    string          `json:"response,omitempty"`
	UserMessage *models.Message `json:"userMessage"`
	BotMessage  *models.Message `json:"botMessage"`
}

// MessagesResponse is the body of GET /api/chat/messages.
type MessagesResponse struct {
	Messages []models.Message `json:"messages"`
}

// scope picks the conversation for the request.
func (h *Handler) scope(r *http.Request) chat.Scope {
	if h.anonymous {
		return chat.Anonymous()
	}
	id, _ := middleware.GetIdentityFromContext(r.Context())
	return chat.ForUser(id.UserID)
}

// GetMessages returns the latest messages. Authenticated conversations are
// newest first; the anonymous log is chronological and degrades to an empty
// list when the store is unavailable.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	scope := h.scope(r)

	msgs, err := h.chat.History(r.Context(), scope, historyLimit)
	if err != nil {
		h.logger.Error().Err(err).Bool("anonymous", h.anonymous).Msg("fetch messages failed")
		if h.anonymous {
			h.JSON(w, http.StatusOK, MessagesResponse{Messages: []models.Message{}})
			return
		}
		h.Error(w, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}

	if h.anonymous {
		slices.Reverse(msgs)
	}
	h.JSON(w, http.StatusOK, MessagesResponse{Messages: msgs})
}

// PostChat runs one conversation turn.
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decode(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	ex, err := h.chat.PostMessage(r.Context(), h.scope(r), req.Message)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			h.Error(w, http.StatusBadRequest, "Message is required")
		case errors.Is(err, chat.ErrMessageTooLong):
			h.Error(w, http.StatusBadRequest, "Message is too long")
		default:
			h.logger.Error().Err(err).Msg("chat turn failed")
			h.Error(w, http.StatusInternalServerError, "Failed to process message")
		}
		return
	}

	resp := ChatResponse{UserMessage: ex.UserMessage, BotMessage: ex.BotMessage}
	if h.anonymous {
		resp.Response = ex.Response()
	}
	h.JSON(w, http.StatusOK, resp)
}

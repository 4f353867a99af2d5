package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/healthchat/internal/chat"
	"github.com/atinyakov/healthchat/internal/middleware"
	"github.com/atinyakov/healthchat/internal/models"
)

// ChatHandler serves the conversation of the chat screen over JSON.
type ChatHandler struct {
	AuthService AuthService
	Chats       *chat.Registry
	Log         *zap.Logger
}

// ChatRequest is the JSON payload of POST /api/chat.
type ChatRequest struct {
	Query string `json:"query"`
}

// MessagesResponse is the conversation as returned by the chat endpoints.
type MessagesResponse struct {
	Messages []models.Message `json:"messages"`
	Pending  bool             `json:"pending"`
	Reply    *models.Message  `json:"reply,omitempty"`
}

// Messages handles GET /api/chat/messages.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.authorize(w, r)
	if !ok {
		return
	}
	e := h.Chats.Get(scope)
	writeJSON(w, http.StatusOK, MessagesResponse{Messages: e.Messages(), Pending: e.IsPending()})
}

// Send handles POST /api/chat.
// The user message is recorded at once; the handler then waits for the
// reply (or the fallback) and returns the whole conversation. A client that
// disconnects early does not abort the exchange.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	e := h.Chats.Get(scope)
	p, err := e.Submit(context.WithoutCancel(r.Context()), req.Query)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, chat.ErrPending):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	reply, err := p.Wait(r.Context())
	if err != nil {
		// The client went away; the reply still lands in the conversation.
		return
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Messages: e.Messages(), Pending: e.IsPending(), Reply: &reply})
}

func (h *ChatHandler) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	scope := middleware.GetScopeFromContext(r.Context())
	ok, err := h.AuthService.IsAuthenticated(r.Context(), scope)
	if err != nil {
		logOrNop(h.Log).Error("read session flag", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return "", false
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "please login first")
		return "", false
	}
	return scope, true
}

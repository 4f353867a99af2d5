package responder

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/healthchat/internal/middleware"
)

// Answerer is what the HTTP handler needs from Service.
type Answerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

// Handler serves POST /chat.
type Handler struct {
	Answerer Answerer
	Log      *zap.Logger
}

type chatRequest struct {
	Query *string `json:"query"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Chat decodes {"query"} and writes {"response"}. A body without a query
// string is 422; a model failure is 500.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "query is required")
		return
	}

	answer, err := h.Answerer.Answer(r.Context(), *req.Query)
	if err != nil {
		if h.Log != nil {
			h.Log.Error("answer failed", zap.Error(err))
		}
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(chatResponse{Response: answer})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// NewRouter mounts POST /chat behind CORS for allowedOrigins, plus a
// /health heartbeat.
func NewRouter(h *Handler, allowedOrigins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.CORS(allowedOrigins))

	r.Post("/chat", h.Chat)
	return r
}

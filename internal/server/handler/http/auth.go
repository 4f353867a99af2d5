// Package http provides the HTTP surface of HealthChat: the JSON API, the
// server-rendered pages and the router that ties them together.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/healthchat/internal/middleware"
	"github.com/atinyakov/healthchat/internal/models"
	"github.com/atinyakov/healthchat/internal/service"
)

// AuthService defines the session gate operations required by the HTTP
// handlers. All of them act on one client scope.
type AuthService interface {
	// IsAuthenticated reports whether the session flag is set.
	IsAuthenticated(ctx context.Context, scope string) (bool, error)
	// CurrentUser returns the stored user record, or nil.
	CurrentUser(ctx context.Context, scope string) (*models.User, error)
	// Login sets the session flag when mobile and password match the record.
	Login(ctx context.Context, scope, mobile, password string) error
	// Signup stores a new record and sets the session flag.
	Signup(ctx context.Context, scope, name, mobile, password string) error
	// Logout clears the session flag.
	Logout(ctx context.Context, scope string) error
}

// ConversationResetter forgets a scope's conversation.
type ConversationResetter interface {
	Reset(scope string)
}

// AuthHandler handles the JSON signup, login and logout endpoints.
type AuthHandler struct {
	// AuthService performs the underlying session gate operations.
	AuthService AuthService
	// Chats, when set, is reset on logout.
	Chats ConversationResetter
	// Log records unexpected storage failures.
	Log *zap.Logger
}

// SignupRequest is the JSON payload of POST /api/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

// LoginRequest is the JSON payload of POST /api/login.
type LoginRequest struct {
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

// SessionResponse describes the session flag and the stored user name.
type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Name          string `json:"name,omitempty"`
}

// Signup handles POST /api/signup.
// It responds 201 when the record is stored and the session flag set,
// 409 when a record with the same mobile exists, and 400 on bad input.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	scope := middleware.GetScopeFromContext(r.Context())
	if err := h.AuthService.Signup(r.Context(), scope, req.Name, req.Mobile, req.Password); err != nil {
		h.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{Authenticated: true, Name: req.Name})
}

// Login handles POST /api/login.
// It responds 200 on success, 404 when no record exists, 401 on a
// mismatch, and 400 on bad input.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	ctx := r.Context()
	scope := middleware.GetScopeFromContext(ctx)
	if err := h.AuthService.Login(ctx, scope, req.Mobile, req.Password); err != nil {
		h.writeGateError(w, err)
		return
	}

	resp := SessionResponse{Authenticated: true}
	if u, err := h.AuthService.CurrentUser(ctx, scope); err == nil && u != nil {
		resp.Name = u.Name
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/logout. The user record is kept; the session
// flag and the conversation are dropped.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	scope := middleware.GetScopeFromContext(r.Context())
	if err := h.AuthService.Logout(r.Context(), scope); err != nil {
		h.writeGateError(w, err)
		return
	}
	if h.Chats != nil {
		h.Chats.Reset(scope)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope := middleware.GetScopeFromContext(ctx)

	ok, err := h.AuthService.IsAuthenticated(ctx, scope)
	if err != nil {
		h.writeGateError(w, err)
		return
	}
	resp := SessionResponse{Authenticated: ok}
	if ok {
		u, err := h.AuthService.CurrentUser(ctx, scope)
		if err != nil {
			h.writeGateError(w, err)
			return
		}
		if u != nil {
			resp.Name = u.Name
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) writeGateError(w http.ResponseWriter, err error) {
	status := gateStatus(err)
	if status == http.StatusInternalServerError {
		logOrNop(h.Log).Error("session gate failed", zap.Error(err))
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// gateStatus maps session gate errors to HTTP status codes.
func gateStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoAccount):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrDuplicateAccount):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func logOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

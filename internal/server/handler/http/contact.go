package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/healthchat/internal/forms"
	"github.com/atinyakov/healthchat/internal/middleware"
	"github.com/atinyakov/healthchat/internal/models"
	"github.com/atinyakov/healthchat/internal/service"
)

// ContactService relays a contact form for a client scope.
type ContactService interface {
	Submit(ctx context.Context, scope string, form models.ContactForm) error
}

// ContactHandler handles POST /api/contact.
type ContactHandler struct {
	ContactService ContactService
	Log            *zap.Logger
}

// Submit decodes {name, mobile, message} and relays it. It responds 200 on
// success, 401 when not logged in, 400 on bad input, 502 when the forms
// relay fails or rejects the form and 500 when client storage fails.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var form models.ContactForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	scope := middleware.GetScopeFromContext(r.Context())
	err := h.ContactService.Submit(r.Context(), scope, form)
	status, msg := contactResult(err)
	if status >= http.StatusInternalServerError {
		logOrNop(h.Log).Warn("contact form not delivered", zap.Int("status", status), zap.String("reason", msg), zap.Error(err))
	}
	if status != http.StatusOK {
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// contactResult maps a ContactService error to a status and a message fit
// for the user.
func contactResult(err error) (int, string) {
	var rejected *forms.RejectedError
	switch {
	case err == nil:
		return http.StatusOK, "Form Submitted Successfully"
	case errors.Is(err, service.ErrNotAuthenticated):
		return http.StatusUnauthorized, "Please login first"
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &rejected):
		if rejected.Message == "" {
			return http.StatusBadGateway, rejected.Error()
		}
		return http.StatusBadGateway, rejected.Message
	case errors.Is(err, service.ErrRelay):
		return http.StatusBadGateway, "could not reach the forms service"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/atinyakov/healthchat/internal/models"
)

// FormSender delivers a contact form to the forms relay.
type FormSender interface {
	Submit(ctx context.Context, form models.ContactForm) error
}

// ContactService relays contact forms for logged-in clients only.
type ContactService struct {
	gate   *AuthService
	sender FormSender
}

// NewContactService builds a ContactService gated by the given AuthService.
func NewContactService(gate *AuthService, sender FormSender) *ContactService {
	return &ContactService{gate: gate, sender: sender}
}

// Submit validates the form and forwards it when the session flag is set.
// Errors from the relay are returned wrapped in ErrRelay.
func (s *ContactService) Submit(ctx context.Context, scope string, form models.ContactForm) error {
	ok, err := s.gate.IsAuthenticated(ctx, scope)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthenticated
	}

	form.Name = strings.TrimSpace(form.Name)
	form.Message = strings.TrimSpace(form.Message)
	if form.Name == "" || form.Message == "" {
		return fmt.Errorf("%w: name and message are required", ErrInvalidInput)
	}
	if err := validateMobile(form.Mobile); err != nil {
		return err
	}

	if err := s.sender.Submit(ctx, form); err != nil {
		return fmt.Errorf("%w: %w", ErrRelay, err)
	}
	return nil
}

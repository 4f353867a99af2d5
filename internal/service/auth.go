// Package service provides the session gate and contact-form business logic,
// delegating persistence to a ClientStorage.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/healthchat/internal/models"
)

// Session gate and contact failures. Handlers map them to user-facing
// notifications; ErrRelay wraps every forms relay failure.
var (
	ErrNoAccount          = errors.New("no user found, please sign up first")
	ErrInvalidCredentials = errors.New("invalid mobile number or password")
	ErrDuplicateAccount   = errors.New("user already registered with this mobile number")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotAuthenticated   = errors.New("please login first")
	ErrRelay              = errors.New("relay contact form")
)

// MaxMobileDigits is the longest mobile number the forms accept.
const MaxMobileDigits = 10

// ClientStorage defines the per-scope key/value operations the services need.
// A scope plays the part of one browser's local storage.
type ClientStorage interface {
	// Get returns the value under key; ok is false when absent.
	Get(ctx context.Context, scope, key string) (value string, ok bool, err error)
	// Set stores value under key.
	Set(ctx context.Context, scope, key, value string) error
	// Delete removes key; a missing key is not an error.
	Delete(ctx context.Context, scope, key string) error
}

// AuthService is the session gate: a single stored user record and a
// session flag, both in client storage. It verifies nothing beyond an exact
// comparison with the stored record.
type AuthService struct {
	// store holds the user record and the session flag.
	store ClientStorage
}

// NewAuthService constructs a new AuthService over the provided storage.
func NewAuthService(store ClientStorage) *AuthService {
	return &AuthService{store: store}
}

// IsAuthenticated reports whether the session flag is set for the scope.
func (s *AuthService) IsAuthenticated(ctx context.Context, scope string) (bool, error) {
	v, ok, err := s.store.Get(ctx, scope, models.LoggedInKey)
	if err != nil {
		return false, fmt.Errorf("read session flag: %w", err)
	}
	return ok && v == models.LoggedInValue, nil
}

// CurrentUser returns the stored user record, or nil when there is none.
func (s *AuthService) CurrentUser(ctx context.Context, scope string) (*models.User, error) {
	raw, ok, err := s.store.Get(ctx, scope, models.UserKey)
	if err != nil {
		return nil, fmt.Errorf("read user record: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("decode user record: %w", err)
	}
	return &u, nil
}

// Login compares mobile and password with the stored record and sets the
// session flag on an exact match.
func (s *AuthService) Login(ctx context.Context, scope, mobile, password string) error {
	if err := validateMobile(mobile); err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	user, err := s.CurrentUser(ctx, scope)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNoAccount
	}
	if user.Mobile != mobile || user.Password != password {
		return ErrInvalidCredentials
	}
	return s.setFlag(ctx, scope)
}

// Signup stores a new user record and sets the session flag. A record with
// the same mobile number is never overwritten.
func (s *AuthService) Signup(ctx context.Context, scope, name, mobile, password string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := validateMobile(mobile); err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	existing, err := s.CurrentUser(ctx, scope)
	if err != nil {
		return err
	}
	if existing != nil && existing.Mobile == mobile {
		return ErrDuplicateAccount
	}

	raw, err := json.Marshal(models.User{Name: name, Mobile: mobile, Password: password})
	if err != nil {
		return fmt.Errorf("encode user record: %w", err)
	}
	if err := s.store.Set(ctx, scope, models.UserKey, string(raw)); err != nil {
		return fmt.Errorf("write user record: %w", err)
	}
	return s.setFlag(ctx, scope)
}

// Logout clears the session flag. The user record stays.
func (s *AuthService) Logout(ctx context.Context, scope string) error {
	if err := s.store.Delete(ctx, scope, models.LoggedInKey); err != nil {
		return fmt.Errorf("clear session flag: %w", err)
	}
	return nil
}

func (s *AuthService) setFlag(ctx context.Context, scope string) error {
	if err := s.store.Set(ctx, scope, models.LoggedInKey, models.LoggedInValue); err != nil {
		return fmt.Errorf("write session flag: %w", err)
	}
	return nil
}

func validateMobile(mobile string) error {
	if mobile == "" {
		return fmt.Errorf("%w: mobile number is required", ErrInvalidInput)
	}
	if len(mobile) > MaxMobileDigits {
		return fmt.Errorf("%w: mobile number has more than %d digits", ErrInvalidInput, MaxMobileDigits)
	}
	for _, r := range mobile {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: mobile number must be digits only", ErrInvalidInput)
		}
	}
	return nil
}

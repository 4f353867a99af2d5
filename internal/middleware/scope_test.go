package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

// dummyHandler is a placeholder that records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

func scopeCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == ScopeCookieName {
			return c
		}
	}
	t.Fatalf("expected %s cookie to be set", ScopeCookieName)
	return nil
}

func TestScope_NewClient(t *testing.T) {
	dummy := &dummyHandler{}
	h := Scope(false)(dummy)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	h.ServeHTTP(rec, req)

	if !dummy.called {
		t.Fatal("expected next handler to be called")
	}
	scope := GetScopeFromContext(dummy.ctx)
	if _, err := uuid.Parse(scope); err != nil {
		t.Fatalf("expected a UUID scope, got %q", scope)
	}
	c := scopeCookie(t, rec)
	if c.Value != scope {
		t.Errorf("cookie %q does not match context scope %q", c.Value, scope)
	}
	if !c.HttpOnly {
		t.Error("expected HttpOnly scope cookie")
	}
	if c.Secure {
		t.Error("did not expect Secure cookie")
	}
}

func TestScope_ExistingCookie(t *testing.T) {
	existing := uuid.NewString()
	dummy := &dummyHandler{}
	h := Scope(true)(dummy)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: ScopeCookieName, Value: existing})
	h.ServeHTTP(rec, req)

	if got := GetScopeFromContext(dummy.ctx); got != existing {
		t.Errorf("expected scope %q, got %q", existing, got)
	}
	if c := scopeCookie(t, rec); !c.Secure {
		t.Error("expected Secure cookie")
	}
}

func TestScope_InvalidCookieReplaced(t *testing.T) {
	dummy := &dummyHandler{}
	h := Scope(false)(dummy)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: ScopeCookieName, Value: "../../etc"})
	h.ServeHTTP(rec, req)

	got := GetScopeFromContext(dummy.ctx)
	if got == "../../etc" {
		t.Fatal("expected invalid scope to be replaced")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("expected a UUID scope, got %q", got)
	}
}

func TestGetScopeFromContext_Missing(t *testing.T) {
	if got := GetScopeFromContext(context.Background()); got != "" {
		t.Errorf("expected empty scope, got %q", got)
	}
	if got := GetScopeFromContext(WithScope(context.Background(), "s1")); got != "s1" {
		t.Errorf("expected s1, got %q", got)
	}
}

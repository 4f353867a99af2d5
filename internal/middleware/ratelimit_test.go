package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeLimiter_PerScope(t *testing.T) {
	l := NewScopeLimiter(2)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	assert.True(t, l.Allow("b"), "other scopes have their own bucket")
}

func TestScopeLimiter_Forget(t *testing.T) {
	l := NewScopeLimiter(1)
	l.Allow("a")
	assert.Equal(t, 0, l.Forget(time.Hour))
	assert.Equal(t, 1, l.Forget(0))
	assert.True(t, l.Allow("a"), "a forgotten scope starts with a full bucket")
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(NewScopeLimiter(1))(&dummyHandler{})

	send := func() int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/contact", nil)
		req = req.WithContext(WithScope(req.Context(), "s1"))
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

// Package middleware provides HTTP middlewares for client scoping, logging,
// CORS and rate limiting.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type ctxKey string

const scopeKey ctxKey = "scope"

// ScopeCookieName is the cookie that carries the client scope.
const ScopeCookieName = "hc_scope"

const scopeCookieMaxAge = 365 * 24 * time.Hour

// Scope is a middleware that assigns every client a storage scope.
//
// The scope is read from the hc_scope cookie. When the cookie is missing or
// does not hold a UUID, a new one is generated and set. The scope only
// partitions client storage the way a browser partitions local storage;
// it is not an identity.
//
// The scope is stored in the request context and can be read downstream
// with GetScopeFromContext.
func Scope(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := ""
			if c, err := r.Cookie(ScopeCookieName); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					scope = id.String()
				}
			}
			if scope == "" {
				scope = uuid.NewString()
			}

			http.SetCookie(w, &http.Cookie{
				Name:     ScopeCookieName,
				Value:    scope,
				Path:     "/",
				MaxAge:   int(scopeCookieMaxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   secure,
			})

			ctx := context.WithValue(r.Context(), scopeKey, scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetScopeFromContext extracts the client scope from the request context.
// Returns an empty string if not found.
func GetScopeFromContext(ctx context.Context) string {
	val := ctx.Value(scopeKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

// WithScope returns a copy of ctx carrying scope.
func WithScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

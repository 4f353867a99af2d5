package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ScopeLimiter hands out one token bucket per client scope.
type ScopeLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	seen     map[string]time.Time
}

// NewScopeLimiter allows perMinute events per scope, with bursts of the
// same size.
func NewScopeLimiter(perMinute int) *ScopeLimiter {
	return &ScopeLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: make(map[string]*rate.Limiter),
		seen:     make(map[string]time.Time),
	}
}

// Allow reports whether the scope may proceed now.
func (l *ScopeLimiter) Allow(scope string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[scope]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[scope] = lim
	}
	l.seen[scope] = time.Now()
	l.mu.Unlock()
	return lim.Allow()
}

// Forget drops limiters unused for longer than idle.
func (l *ScopeLimiter) Forget(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for scope, at := range l.seen {
		if time.Since(at) > idle {
			delete(l.limiters, scope)
			delete(l.seen, scope)
			removed++
		}
	}
	return removed
}

// RateLimit rejects requests with 429 once the scope's bucket is empty.
// It must run after Scope.
func RateLimit(l *ScopeLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(GetScopeFromContext(r.Context())) {
				w.Header().Set("Retry-After", "60")
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

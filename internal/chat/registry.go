package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry keeps one Exchange per client scope. Conversations live in
// memory only; dropping one is the same as reloading the chat page.
type Registry struct {
	responder Responder
	opts      []Option

	mu        sync.Mutex
	exchanges map[string]*Exchange
}

// NewRegistry creates an empty registry; opts apply to every new Exchange.
func NewRegistry(responder Responder, opts ...Option) *Registry {
	return &Registry{
		responder: responder,
		opts:      opts,
		exchanges: make(map[string]*Exchange),
	}
}

// Get returns the scope's conversation, starting one if needed. It counts
// as activity, so a sweep right after Get keeps the conversation.
func (r *Registry) Get(scope string) *Exchange {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exchanges[scope]
	if !ok {
		e = NewExchange(r.responder, r.opts...)
		r.exchanges[scope] = e
		return e
	}
	e.touch()
	return e
}

// Peek returns the scope's conversation without creating one.
func (r *Registry) Peek(scope string) (*Exchange, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exchanges[scope]
	return e, ok
}

// Reset forgets the scope's conversation. An in-flight reply still lands
// in the dropped Exchange and is not visible afterwards.
func (r *Registry) Reset(scope string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.exchanges, scope)
}

// Len returns the number of live conversations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.exchanges)
}

// Sweep drops conversations idle for longer than idle. Pending ones stay.
// It returns how many were removed.
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for scope, e := range r.exchanges {
		if !e.idleFor(idle) {
			continue
		}
		delete(r.exchanges, scope)
		removed++
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done.
func (r *Registry) StartSweeper(ctx context.Context, interval, idle time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Sweep(idle); n > 0 {
					log.Info("evicted idle conversations", zap.Int("removed", n))
				}
			}
		}
	}()
}

// Package chat holds the conversation state of the chat screen and relays
// user turns to an external responder, one exchange at a time.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/healthchat/internal/models"
)

// FallbackReply is appended in place of a reply whenever the exchange fails.
const FallbackReply = "Sorry, an error occurred. Please try again."

// Submission rejections. Neither changes the conversation.
var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrPending      = errors.New("a reply is still pending")
)

// Greeting is the opening of every new conversation.
var Greeting = []models.Message{
	{Role: models.RoleBot, Text: "Hey there 👋"},
	{Role: models.RoleBot, Text: "How can I help you today?"},
}

// Responder turns a user query into a reply.
type Responder interface {
	Respond(ctx context.Context, query string) (string, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, query string) (string, error)

// Respond calls f.
func (f ResponderFunc) Respond(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

// Option configures an Exchange.
type Option func(*Exchange)

// WithTimeout bounds each outbound call. Zero (the default) means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Exchange) { e.timeout = d }
}

// WithLogger sets the logger used to record failed exchanges.
func WithLogger(l *zap.Logger) Option {
	return func(e *Exchange) { e.log = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Exchange) { e.now = now }
}

// WithHistory starts the conversation from msgs instead of Greeting.
func WithHistory(msgs []models.Message) Option {
	return func(e *Exchange) { e.history = append([]models.Message(nil), msgs...) }
}

// Exchange is one conversation. The pending flag admits a single
// outstanding request; further submissions are rejected, not queued.
type Exchange struct {
	responder Responder
	timeout   time.Duration
	log       *zap.Logger
	now       func() time.Time
	history   []models.Message

	mu       sync.Mutex
	messages []models.Message
	pending  bool
	draft    string
	touched  time.Time
}

// NewExchange starts a conversation seeded with Greeting, or with the
// history given by WithHistory.
func NewExchange(responder Responder, opts ...Option) *Exchange {
	e := &Exchange{
		responder: responder,
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	seed := Greeting
	if len(e.history) > 0 {
		seed = e.history
	}
	e.messages = append(make([]models.Message, 0, len(seed)+8), seed...)
	e.touched = e.now()
	return e
}

// Messages returns a copy of the conversation in insertion order.
func (e *Exchange) Messages() []models.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Message, len(e.messages))
	copy(out, e.messages)
	return out
}

// IsPending reports whether a reply is outstanding.
func (e *Exchange) IsPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// SetDraft records the text currently typed but not yet submitted.
func (e *Exchange) SetDraft(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft = text
	e.touched = e.now()
}

// Draft returns the unsent input.
func (e *Exchange) Draft() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// LastActivity is the time of the last submission, reply or draft change.
func (e *Exchange) LastActivity() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.touched
}

func (e *Exchange) touch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touched = e.now()
}

// idleFor reports whether nothing happened for longer than d and no reply
// is outstanding.
func (e *Exchange) idleFor(d time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.pending && e.now().Sub(e.touched) > d
}

// Submit appends text as a user message and starts the single outbound call.
// It returns as soon as the user message is recorded; the reply (or
// FallbackReply) is appended when the returned Pending completes.
// The call runs under ctx, so cancelling ctx fails the exchange softly.
func (e *Exchange) Submit(ctx context.Context, text string) (*Pending, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	e.mu.Lock()
	if e.pending {
		e.mu.Unlock()
		return nil, ErrPending
	}
	e.messages = append(e.messages, models.Message{Role: models.RoleUser, Text: text})
	e.draft = ""
	e.pending = true
	e.touched = e.now()
	e.mu.Unlock()

	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if e.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}

	p := &Pending{done: make(chan struct{}), cancel: cancel}
	go e.run(callCtx, text, p)
	return p, nil
}

func (e *Exchange) run(ctx context.Context, query string, p *Pending) {
	defer p.cancel()

	text, err := e.responder.Respond(ctx, query)
	reply := models.Message{Role: models.RoleBot, Text: text}
	if err != nil {
		e.log.Warn("chat exchange failed", zap.Error(err))
		reply.Text = FallbackReply
	}

	e.mu.Lock()
	e.messages = append(e.messages, reply)
	e.pending = false
	e.touched = e.now()
	e.mu.Unlock()

	p.reply = reply
	p.err = err
	close(p.done)
}

// Pending is the handle of an in-flight exchange.
type Pending struct {
	done   chan struct{}
	cancel context.CancelFunc
	reply  models.Message
	err    error
}

// Done is closed once the reply (or fallback) has been appended.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Cancel aborts the outbound call. The exchange still completes, with
// FallbackReply.
func (p *Pending) Cancel() {
	p.cancel()
}

// Wait blocks until the exchange completes or ctx ends, and returns the
// appended bot message. A non-nil error means ctx ended first.
func (p *Pending) Wait(ctx context.Context) (models.Message, error) {
	select {
	case <-p.done:
		return p.reply, nil
	case <-ctx.Done():
		return models.Message{}, ctx.Err()
	}
}

// Err returns the responder error behind a fallback reply. Valid after Done.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

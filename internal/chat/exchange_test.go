package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/healthchat/internal/models"
)

// gatedResponder blocks every call until release is closed.
type gatedResponder struct {
	release chan struct{}
	reply   string
	err     error

	mu      sync.Mutex
	queries []string
}

func newGated(reply string, err error) *gatedResponder {
	return &gatedResponder{release: make(chan struct{}), reply: reply, err: err}
}

func (g *gatedResponder) Respond(ctx context.Context, query string) (string, error) {
	g.mu.Lock()
	g.queries = append(g.queries, query)
	g.mu.Unlock()

	select {
	case <-g.release:
		return g.reply, g.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gatedResponder) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.queries...)
}

func wait(t *testing.T, p *Pending) models.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := p.Wait(ctx)
	require.NoError(t, err)
	return msg
}

func TestNewExchange_StartsWithGreeting(t *testing.T) {
	e := NewExchange(newGated("", nil))
	assert.Equal(t, Greeting, e.Messages())
	assert.False(t, e.IsPending())
}

func TestSubmit_UserMessageBeforeReply(t *testing.T) {
	r := newGated("Hi!", nil)
	e := NewExchange(r)
	e.SetDraft("Hello")

	p, err := e.Submit(context.Background(), "Hello")
	require.NoError(t, err)

	msgs := e.Messages()
	require.Len(t, msgs, len(Greeting)+1)
	assert.Equal(t, models.Message{Role: models.RoleUser, Text: "Hello"}, msgs[len(msgs)-1])
	assert.True(t, e.IsPending())
	assert.Empty(t, e.Draft(), "submit clears the draft")

	close(r.release)
	reply := wait(t, p)
	assert.Equal(t, models.Message{Role: models.RoleBot, Text: "Hi!"}, reply)
	assert.NoError(t, p.Err())

	msgs = e.Messages()
	require.Len(t, msgs, len(Greeting)+2)
	assert.Equal(t, models.RoleUser, msgs[len(msgs)-2].Role)
	assert.Equal(t, models.Message{Role: models.RoleBot, Text: "Hi!"}, msgs[len(msgs)-1])
	assert.False(t, e.IsPending())
	assert.Equal(t, []string{"Hello"}, r.calls())
}

func TestSubmit_RejectedWhilePending(t *testing.T) {
	r := newGated("ok", nil)
	e := NewExchange(r)

	p, err := e.Submit(context.Background(), "first")
	require.NoError(t, err)
	before := e.Messages()

	_, err = e.Submit(context.Background(), "second")
	assert.ErrorIs(t, err, ErrPending)
	assert.Equal(t, before, e.Messages())

	close(r.release)
	wait(t, p)
	assert.Equal(t, []string{"first"}, r.calls(), "the rejected submission must not reach the responder")

	// Once the reply is in, submissions are accepted again.
	p2, err := e.Submit(context.Background(), "third")
	require.NoError(t, err)
	wait(t, p2)
}

func TestSubmit_EmptyOrWhitespace(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		e := NewExchange(newGated("", nil))
		e.SetDraft(text)
		_, err := e.Submit(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyMessage)
		assert.Equal(t, Greeting, e.Messages())
		assert.False(t, e.IsPending())
		assert.Equal(t, text, e.Draft(), "a rejected submit keeps the draft")
	}
}

func TestSubmit_KeepsTextAsTyped(t *testing.T) {
	r := newGated("ok", nil)
	close(r.release)
	e := NewExchange(r)

	p, err := e.Submit(context.Background(), "  what is flu? ")
	require.NoError(t, err)
	wait(t, p)

	assert.Equal(t, []string{"  what is flu? "}, r.calls())
	assert.Equal(t, "  what is flu? ", e.Messages()[len(Greeting)].Text)
}

func TestSubmit_NetworkFailureAppendsOneFallback(t *testing.T) {
	boom := errors.New("connection refused")
	r := newGated("", boom)
	close(r.release)
	e := NewExchange(r)

	p, err := e.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	reply := wait(t, p)

	assert.Equal(t, FallbackReply, reply.Text)
	assert.ErrorIs(t, p.Err(), boom)
	assert.False(t, e.IsPending())

	msgs := e.Messages()
	require.Len(t, msgs, len(Greeting)+2)
	fallbacks := 0
	for _, m := range msgs {
		if m.Text == FallbackReply {
			fallbacks++
		}
	}
	assert.Equal(t, 1, fallbacks)
}

func TestPending_CancelFailsSoft(t *testing.T) {
	r := newGated("never", nil)
	e := NewExchange(r)

	p, err := e.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	p.Cancel()

	reply := wait(t, p)
	assert.Equal(t, FallbackReply, reply.Text)
	assert.ErrorIs(t, p.Err(), context.Canceled)
	assert.False(t, e.IsPending())
}

func TestSubmit_Timeout(t *testing.T) {
	r := newGated("late", nil)
	e := NewExchange(r, WithTimeout(20*time.Millisecond))

	p, err := e.Submit(context.Background(), "Hello")
	require.NoError(t, err)

	reply := wait(t, p)
	assert.Equal(t, FallbackReply, reply.Text)
	assert.ErrorIs(t, p.Err(), context.DeadlineExceeded)
}

func TestPending_WaitHonoursCallerContext(t *testing.T) {
	r := newGated("ok", nil)
	e := NewExchange(r)

	p, err := e.Submit(context.Background(), "Hello")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, p.Err(), "no result before completion")
	assert.True(t, e.IsPending(), "abandoning Wait does not cancel the exchange")

	close(r.release)
	<-p.Done()
	assert.Equal(t, "ok", e.Messages()[len(Greeting)+1].Text)
}

func TestSubmit_ConcurrentCallersAdmitOne(t *testing.T) {
	r := newGated("ok", nil)
	e := NewExchange(r)

	const n = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []*Pending
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p, err := e.Submit(context.Background(), "hi"); err == nil {
				mu.Lock()
				accepted = append(accepted, p)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, accepted, 1)
	close(r.release)
	wait(t, accepted[0])
	assert.Len(t, e.Messages(), len(Greeting)+2)
}

func TestMessages_ReturnsCopy(t *testing.T) {
	e := NewExchange(newGated("", nil))
	msgs := e.Messages()
	msgs[0].Text = "mutated"
	assert.Equal(t, Greeting[0].Text, e.Messages()[0].Text)
}

func TestNewExchange_WithHistory(t *testing.T) {
	history := []models.Message{
		{Role: models.RoleBot, Text: "Hey there 👋"},
		{Role: models.RoleUser, Text: "earlier"},
		{Role: models.RoleBot, Text: "reply"},
	}
	e := NewExchange(newGated("", nil), WithHistory(history))
	assert.Equal(t, history, e.Messages())

	history[1].Text = "mutated"
	assert.Equal(t, "earlier", e.Messages()[1].Text)

	assert.Equal(t, Greeting, NewExchange(newGated("", nil), WithHistory(nil)).Messages())
}

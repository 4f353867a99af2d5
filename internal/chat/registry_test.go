package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRegistry_GetIsPerScope(t *testing.T) {
	reg := NewRegistry(newGated("", nil))

	a := reg.Get("a")
	assert.Same(t, a, reg.Get("a"))
	assert.NotSame(t, a, reg.Get("b"))
	assert.Equal(t, 2, reg.Len())

	_, ok := reg.Peek("c")
	assert.False(t, ok)
	assert.Equal(t, 2, reg.Len(), "Peek must not create")
}

func TestRegistry_Reset(t *testing.T) {
	r := newGated("ok", nil)
	close(r.release)
	reg := NewRegistry(r)

	p, err := reg.Get("a").Submit(context.Background(), "hello")
	require.NoError(t, err)
	wait(t, p)

	reg.Reset("a")
	assert.Equal(t, Greeting, reg.Get("a").Messages())
}

func TestRegistry_SweepIdle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := newGated("ok", nil)
	reg := NewRegistry(r, WithClock(clock.Now))

	reg.Get("idle")
	busy := reg.Get("busy")
	p, err := busy.Submit(context.Background(), "hi")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	reg.Get("fresh")

	assert.Equal(t, 1, reg.Sweep(30*time.Minute))

	_, ok := reg.Peek("idle")
	assert.False(t, ok)
	_, ok = reg.Peek("busy")
	assert.True(t, ok, "pending conversations are kept")
	_, ok = reg.Peek("fresh")
	assert.True(t, ok)

	close(r.release)
	wait(t, p)
	clock.Advance(time.Hour)
	assert.Equal(t, 2, reg.Sweep(30*time.Minute))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_GetKeepsConversationAlive(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := newGated("ok", nil)
	close(r.release)
	reg := NewRegistry(r, WithClock(clock.Now))

	p, err := reg.Get("a").Submit(context.Background(), "hello")
	require.NoError(t, err)
	wait(t, p)

	clock.Advance(time.Hour)
	e := reg.Get("a")
	assert.Equal(t, 0, reg.Sweep(30*time.Minute))

	p, err = e.Submit(context.Background(), "again")
	require.NoError(t, err)
	wait(t, p)

	got, ok := reg.Peek("a")
	require.True(t, ok)
	assert.Same(t, e, got)
	assert.Len(t, got.Messages(), len(Greeting)+4)
}

func TestRegistry_StartSweeper(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	reg := NewRegistry(newGated("", nil), WithClock(clock.Now))
	reg.Get("a")
	clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reg.StartSweeper(ctx, 5*time.Millisecond, time.Minute, zap.NewNop())

	assert.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
}

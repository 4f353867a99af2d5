package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/healthchat/internal/chat"
	"github.com/atinyakov/healthchat/internal/client/storage"
	"github.com/atinyakov/healthchat/internal/middleware"
	"github.com/atinyakov/healthchat/internal/repository"
	handler "github.com/atinyakov/healthchat/internal/server/handler/http"
	"github.com/atinyakov/healthchat/internal/service"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := repository.NewMemoryStorageRepository()
	auth := service.NewAuthService(store)
	contact := service.NewContactService(auth, nil)
	chats := chat.NewRegistry(chat.ResponderFunc(func(ctx context.Context, q string) (string, error) {
		return "echo: " + q, nil
	}))
	log := zap.NewNop()

	pages, err := handler.NewPageHandler(auth, contact, chats, log, false)
	require.NoError(t, err)
	router := handler.NewRouter(handler.Handlers{
		Auth:    &handler.AuthHandler{AuthService: auth, Chats: chats, Log: log},
		Chat:    &handler.ChatHandler{AuthService: auth, Chats: chats, Log: log},
		Contact: &handler.ContactHandler{ContactService: contact, Log: log},
		Pages:   pages,
		Limiter: middleware.NewScopeLimiter(5),
	}, false, log)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func openState(t *testing.T, path string) *storage.LocalStorage {
	t.Helper()
	ls, err := storage.Open(path)
	require.NoError(t, err)
	return ls
}

func TestClient_ScopeSurvivesRestart(t *testing.T) {
	srv := newServer(t)
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	c, err := New(srv.URL, openState(t, path), srv.Client())
	require.NoError(t, err)
	require.NoError(t, c.Signup(ctx, "Asha", "12345", "pw"))

	// A new process with the same state file sees the same session.
	state := openState(t, path)
	assert.NotEmpty(t, state.ScopeFor(srv.URL))
	assert.Equal(t, "Asha", state.DisplayName())

	c2, err := New(srv.URL, state, srv.Client())
	require.NoError(t, err)
	ok, name, err := c2.Session(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Asha", name)

	require.NoError(t, c2.Logout(ctx))
	ok, _, err = c2.Session(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_Errors(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	c, err := New(srv.URL, openState(t, filepath.Join(t.TempDir(), "s.json")), srv.Client())
	require.NoError(t, err)

	err = c.Login(ctx, "12345", "pw")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "sign up")

	_, err = c.Respond(ctx, "hello")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestClient_ChatDrivesLocalExchange(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	c, err := New(srv.URL, openState(t, filepath.Join(t.TempDir(), "s.json")), srv.Client())
	require.NoError(t, err)
	require.NoError(t, c.Signup(ctx, "Asha", "12345", "pw"))

	history, err := c.Messages(ctx)
	require.NoError(t, err)
	assert.Equal(t, chat.Greeting, history)

	e := chat.NewExchange(c, chat.WithHistory(history))
	p, err := e.Submit(ctx, "Hello")
	require.NoError(t, err)
	reply, err := p.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "echo: Hello", reply.Text)

	server, err := c.Messages(ctx)
	require.NoError(t, err)
	assert.Equal(t, e.Messages(), server, "local and server conversations agree")
}

// Package api is the terminal client's view of the HealthChat JSON API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/atinyakov/healthchat/internal/client/storage"
	"github.com/atinyakov/healthchat/internal/middleware"
	"github.com/atinyakov/healthchat/internal/models"
)

// Error is a non-2xx answer from the server.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return e.Message
}

// Client calls the server on behalf of one scope. Every response's scope
// cookie is written back to local storage.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	state   *storage.LocalStorage
}

// New creates a Client for baseURL, resuming the stored scope when it was
// issued by the same server. A nil httpClient gets a default one.
func New(baseURL string, state *storage.LocalStorage, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server URL: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if scope := state.ScopeFor(u.String()); scope != "" {
		jar.SetCookies(u, []*http.Cookie{{Name: middleware.ScopeCookieName, Value: scope, Path: "/"}})
	}

	hc := &http.Client{}
	if httpClient != nil {
		copied := *httpClient
		hc = &copied
	}
	hc.Jar = jar

	return &Client{baseURL: u, http: hc, state: state}, nil
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Name          string `json:"name"`
}

type messagesResponse struct {
	Messages []models.Message `json:"messages"`
	Pending  bool             `json:"pending"`
	Reply    *models.Message  `json:"reply"`
}

// Signup creates the account and logs in.
func (c *Client) Signup(ctx context.Context, name, mobile, password string) error {
	body := map[string]string{"name": name, "mobile": mobile, "password": password}
	var out sessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/signup", body, &out); err != nil {
		return err
	}
	c.state.SetName(out.Name)
	return c.state.Save()
}

// Login sets the session flag.
func (c *Client) Login(ctx context.Context, mobile, password string) error {
	body := map[string]string{"mobile": mobile, "password": password}
	var out sessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", body, &out); err != nil {
		return err
	}
	c.state.SetName(out.Name)
	return c.state.Save()
}

// Logout clears the session flag.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
}

// Session reports whether the scope is logged in, and the stored name.
func (c *Client) Session(ctx context.Context) (bool, string, error) {
	var out sessionResponse
	if err := c.do(ctx, http.MethodGet, "/api/session", nil, &out); err != nil {
		return false, "", err
	}
	return out.Authenticated, out.Name, nil
}

// Messages returns the conversation the server holds for the scope.
func (c *Client) Messages(ctx context.Context) ([]models.Message, error) {
	var out messagesResponse
	if err := c.do(ctx, http.MethodGet, "/api/chat/messages", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Respond sends one chat turn and returns the reply text. It satisfies
// chat.Responder, so a local Exchange can drive the screen.
func (c *Client) Respond(ctx context.Context, query string) (string, error) {
	var out messagesResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat", map[string]string{"query": query}, &out); err != nil {
		return "", err
	}
	if out.Reply == nil {
		return "", &Error{Status: http.StatusOK, Message: "reply missing from server response"}
	}
	return out.Reply.Text, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.rememberScope(); err != nil {
		return fmt.Errorf("save local state: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &Error{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) rememberScope() error {
	for _, ck := range c.http.Jar.Cookies(c.baseURL) {
		if ck.Name != middleware.ScopeCookieName {
			continue
		}
		if c.state.SetScope(c.baseURL.String(), ck.Value) {
			return c.state.Save()
		}
	}
	return nil
}

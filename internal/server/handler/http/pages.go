package http

import (
	"context"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/healthchat/internal/chat"
	"github.com/atinyakov/healthchat/internal/middleware"
	"github.com/atinyakov/healthchat/internal/models"
	"github.com/atinyakov/healthchat/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// FlashCookieName carries a one-shot notification across a redirect.
const FlashCookieName = "hc_flash"

// Notification kinds.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashError   = "error"
)

// Flash is a one-shot notification shown on the next rendered page.
type Flash struct {
	Kind string
	Text string
}

type pageData struct {
	Title    string
	LoggedIn bool
	Name     string
	MainPage bool
	Flash    *Flash
	Form     map[string]string
	Messages []models.Message
	Pending  bool
	Draft    string
}

// PageHandler renders the server-side pages: home, login, signup and the
// chat screen.
type PageHandler struct {
	AuthService    AuthService
	ContactService ContactService
	Chats          *chat.Registry
	Log            *zap.Logger
	SecureCookies  bool

	pages map[string]*template.Template
}

// NewPageHandler parses the embedded templates.
func NewPageHandler(auth AuthService, contact ContactService, chats *chat.Registry, log *zap.Logger, secure bool) (*PageHandler, error) {
	h := &PageHandler{
		AuthService:    auth,
		ContactService: contact,
		Chats:          chats,
		Log:            logOrNop(log),
		SecureCookies:  secure,
		pages:          make(map[string]*template.Template),
	}
	for _, name := range []string{"home", "login", "signup", "main"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		h.pages[name] = t
	}
	return h, nil
}

// Home handles GET /.
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	data, err := h.base(w, r, "Home")
	if err != nil {
		h.fail(w, err)
		return
	}
	h.render(w, http.StatusOK, "home", data)
}

// LoginForm handles GET /login.
func (h *PageHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	data, err := h.base(w, r, "Login")
	if err != nil {
		h.fail(w, err)
		return
	}
	h.render(w, http.StatusOK, "login", data)
}

// Login handles POST /login. Success redirects to /main; failure
// re-renders the form with a notification.
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	scope := middleware.GetScopeFromContext(ctx)
	mobile := strings.TrimSpace(r.PostFormValue("mobile"))

	err := h.AuthService.Login(ctx, scope, mobile, r.PostFormValue("password"))
	if err != nil {
		h.rerender(w, r, "login", "Login", err, map[string]string{"mobile": mobile})
		return
	}
	h.setFlash(w, FlashSuccess, "Login successful!")
	http.Redirect(w, r, "/main", http.StatusSeeOther)
}

// SignupForm handles GET /signup.
func (h *PageHandler) SignupForm(w http.ResponseWriter, r *http.Request) {
	data, err := h.base(w, r, "Sign Up")
	if err != nil {
		h.fail(w, err)
		return
	}
	h.render(w, http.StatusOK, "signup", data)
}

// Signup handles POST /signup.
func (h *PageHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	scope := middleware.GetScopeFromContext(ctx)
	name := r.PostFormValue("name")
	mobile := strings.TrimSpace(r.PostFormValue("mobile"))

	err := h.AuthService.Signup(ctx, scope, name, mobile, r.PostFormValue("password"))
	if err != nil {
		h.rerender(w, r, "signup", "Sign Up", err, map[string]string{"name": name, "mobile": mobile})
		return
	}
	h.setFlash(w, FlashSuccess, "Signup successful! You are now logged in.")
	http.Redirect(w, r, "/main", http.StatusSeeOther)
}

// Main handles GET /main, the chat screen. Without the session flag it
// redirects to /login.
func (h *PageHandler) Main(w http.ResponseWriter, r *http.Request) {
	data, err := h.base(w, r, "Chat")
	if err != nil {
		h.fail(w, err)
		return
	}
	if !data.LoggedIn {
		h.setFlash(w, FlashInfo, "Please login first")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	e := h.Chats.Get(middleware.GetScopeFromContext(r.Context()))
	data.MainPage = true
	data.Messages = e.Messages()
	data.Pending = e.IsPending()
	data.Draft = e.Draft()
	h.render(w, http.StatusOK, "main", data)
}

// Send handles POST /main. It records the message, waits for the reply and
// redirects back to the chat screen.
func (h *PageHandler) Send(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	scope := middleware.GetScopeFromContext(ctx)
	ok, err := h.AuthService.IsAuthenticated(ctx, scope)
	if err != nil {
		h.fail(w, err)
		return
	}
	if !ok {
		h.setFlash(w, FlashInfo, "Please login first")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	text := r.PostFormValue("message")
	e := h.Chats.Get(scope)
	p, err := e.Submit(context.WithoutCancel(ctx), text)
	switch {
	case errors.Is(err, chat.ErrPending):
		e.SetDraft(text)
	case err == nil:
		_, _ = p.Wait(ctx)
	}
	http.Redirect(w, r, "/main", http.StatusSeeOther)
}

// Logout handles POST /logout.
func (h *PageHandler) Logout(w http.ResponseWriter, r *http.Request) {
	scope := middleware.GetScopeFromContext(r.Context())
	if err := h.AuthService.Logout(r.Context(), scope); err != nil {
		h.fail(w, err)
		return
	}
	h.Chats.Reset(scope)
	h.setFlash(w, FlashSuccess, "Logged out successfully")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Contact handles POST /contact.
func (h *PageHandler) Contact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := models.ContactForm{
		Name:    r.PostFormValue("name"),
		Mobile:  strings.TrimSpace(r.PostFormValue("mobile")),
		Message: r.PostFormValue("message"),
	}

	scope := middleware.GetScopeFromContext(r.Context())
	err := h.ContactService.Submit(r.Context(), scope, form)
	status, msg := contactResult(err)
	switch status {
	case http.StatusOK:
		h.setFlash(w, FlashSuccess, msg)
	case http.StatusUnauthorized:
		h.setFlash(w, FlashInfo, msg)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	default:
		h.Log.Warn("contact form not delivered", zap.Int("status", status), zap.String("reason", msg), zap.Error(err))
		h.setFlash(w, FlashError, msg)
	}
	http.Redirect(w, r, "/#Contact", http.StatusSeeOther)
}

func (h *PageHandler) base(w http.ResponseWriter, r *http.Request, title string) (*pageData, error) {
	ctx := r.Context()
	scope := middleware.GetScopeFromContext(ctx)
	ok, err := h.AuthService.IsAuthenticated(ctx, scope)
	if err != nil {
		return nil, err
	}
	data := &pageData{Title: title, LoggedIn: ok, Flash: h.takeFlash(w, r)}
	if ok {
		u, err := h.AuthService.CurrentUser(ctx, scope)
		if err != nil {
			return nil, err
		}
		if u != nil {
			data.Name = u.Name
		}
	}
	return data, nil
}

func (h *PageHandler) rerender(w http.ResponseWriter, r *http.Request, page, title string, gateErr error, form map[string]string) {
	status := gateStatus(gateErr)
	if status == http.StatusInternalServerError {
		h.fail(w, gateErr)
		return
	}
	data, err := h.base(w, r, title)
	if err != nil {
		h.fail(w, err)
		return
	}
	data.Flash = &Flash{Kind: FlashError, Text: gateMessage(gateErr)}
	data.Form = form
	h.render(w, status, page, data)
}

func (h *PageHandler) render(w http.ResponseWriter, status int, page string, data *pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.pages[page].ExecuteTemplate(w, "layout", data); err != nil {
		h.Log.Error("render page", zap.String("page", page), zap.Error(err))
	}
}

func (h *PageHandler) fail(w http.ResponseWriter, err error) {
	h.Log.Error("page failed", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (h *PageHandler) setFlash(w http.ResponseWriter, kind, text string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(kind + "|" + text)),
		Path:     "/",
		MaxAge:   int((30 * time.Second).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.SecureCookies,
	})
}

// takeFlash reads and clears the pending notification.
func (h *PageHandler) takeFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(FlashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: FlashCookieName, Path: "/", MaxAge: -1})

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	kind, text, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil
	}
	return &Flash{Kind: kind, Text: text}
}

// gateMessage is the notification shown for a session gate failure.
func gateMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrNoAccount):
		return "No user found. Please sign up first."
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid mobile number or password!"
	case errors.Is(err, service.ErrDuplicateAccount):
		return "User already registered with this mobile number!"
	default:
		return err.Error()
	}
}

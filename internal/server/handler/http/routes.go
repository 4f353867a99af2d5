package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/healthchat/internal/middleware"
)

// Handlers groups everything NewRouter mounts.
type Handlers struct {
	Auth    *AuthHandler
	Chat    *ChatHandler
	Contact *ContactHandler
	Pages   *PageHandler
	// Limiter throttles contact submissions per scope.
	Limiter *middleware.ScopeLimiter
}

// NewRouter constructs and returns the HTTP handler that serves HealthChat.
//
// Routes:
//
//	GET  /                   → Pages.Home
//	GET  /login, POST /login   → Pages.LoginForm, Pages.Login
//	GET  /signup, POST /signup → Pages.SignupForm, Pages.Signup
//	GET  /main, POST /main     → Pages.Main, Pages.Send
//	POST /logout             → Pages.Logout
//	POST /contact            → Pages.Contact (rate limited)
//	POST /api/signup         → Auth.Signup
//	POST /api/login          → Auth.Login
//	POST /api/logout         → Auth.Logout
//	GET  /api/session        → Auth.Session
//	GET  /api/chat/messages  → Chat.Messages
//	POST /api/chat           → Chat.Send
//	POST /api/contact        → Contact.Submit (rate limited)
//	GET  /health             → heartbeat
//
// Every request gets a request ID, panic recovery, request logging and a
// client scope. The API only accepts JSON bodies.
func NewRouter(h Handlers, secureCookies bool, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.Scope(secureCookies))

	limited := middleware.RateLimit(h.Limiter)

	// Pages
	r.Get("/", h.Pages.Home)
	r.Get("/login", h.Pages.LoginForm)
	r.Post("/login", h.Pages.Login)
	r.Get("/signup", h.Pages.SignupForm)
	r.Post("/signup", h.Pages.Signup)
	r.Get("/main", h.Pages.Main)
	r.Post("/main", h.Pages.Send)
	r.Post("/logout", h.Pages.Logout)
	r.With(limited).Post("/contact", h.Pages.Contact)

	r.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.AllowContentType("application/json"))

		r.Post("/signup", h.Auth.Signup)
		r.Post("/login", h.Auth.Login)
		r.Post("/logout", h.Auth.Logout)
		r.Get("/session", h.Auth.Session)

		r.Get("/chat/messages", h.Chat.Messages)
		r.Post("/chat", h.Chat.Send)

		r.With(limited).Post("/contact", h.Contact.Submit)
	})

	return r
}

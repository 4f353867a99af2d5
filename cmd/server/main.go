// Package main initializes and starts the HealthChat web server, setting up
// configuration, logging, client storage, services, the chat registry,
// handlers and optional TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/healthchat/internal/chat"
	"github.com/atinyakov/healthchat/internal/config"
	"github.com/atinyakov/healthchat/internal/db"
	"github.com/atinyakov/healthchat/internal/forms"
	"github.com/atinyakov/healthchat/internal/logger"
	"github.com/atinyakov/healthchat/internal/middleware"
	"github.com/atinyakov/healthchat/internal/repository"
	"github.com/atinyakov/healthchat/internal/server/handler/http"
	"github.com/atinyakov/healthchat/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config file and environment configuration.
	options, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	// Open the client storage backend.
	store, closeStore, err := openStore(options)
	if err != nil {
		zapLogger.Fatal("cannot init client storage", zap.String("store", options.Store), zap.Error(err))
	}
	defer closeStore()
	zapLogger.Info("client storage ready", zap.String("store", options.Store))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize business-logic services.
	authService := service.NewAuthService(store)
	formsClient := forms.NewClient(options.FormsURL, options.FormsAccessKey, nil)
	contactService := service.NewContactService(authService, formsClient)
	if options.FormsAccessKey == "" {
		zapLogger.Warn("forms access key is empty; contact submissions will be rejected")
	}

	// One conversation per client scope, evicted when idle.
	responder := chat.NewHTTPResponder(options.ResponderURL, nil)
	chats := chat.NewRegistry(responder,
		chat.WithTimeout(options.ChatTimeout.Duration),
		chat.WithLogger(zapLogger),
	)
	chats.StartSweeper(ctx, sweepInterval(options.ChatIdleTTL.Duration), options.ChatIdleTTL.Duration, zapLogger)

	limiter := middleware.NewScopeLimiter(options.ContactRatePerMinute)
	go forgetLimiters(ctx, limiter, options.ChatIdleTTL.Duration)

	// Create HTTP handlers.
	pages, err := http.NewPageHandler(authService, contactService, chats, zapLogger, options.SecureCookies)
	if err != nil {
		zapLogger.Fatal("failed to load page templates", zap.Error(err))
	}
	handlers := http.Handlers{
		Auth:    &http.AuthHandler{AuthService: authService, Chats: chats, Log: zapLogger},
		Chat:    &http.ChatHandler{AuthService: authService, Chats: chats, Log: zapLogger},
		Contact: &http.ContactHandler{ContactService: contactService, Log: zapLogger},
		Pages:   pages,
		Limiter: limiter,
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(handlers, options.SecureCookies, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		var err error
		if options.TLSEnabled() {
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
			err = server.ListenAndServeTLS(options.CertFile, options.KeyFile)
		} else {
			zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()
	zapLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("forced shutdown", zap.Error(err))
	}
}

// openStore returns the configured ClientStorage and a func that releases it.
func openStore(o *config.Options) (service.ClientStorage, func(), error) {
	switch o.Store {
	case config.StorePostgres:
		conn, err := db.InitPostgres(o.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresStorageRepository(conn), func() { _ = conn.Close() }, nil
	case config.StoreSQLite:
		conn, err := db.InitSQLite(o.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLiteStorageRepository(conn), func() { _ = conn.Close() }, nil
	default:
		return repository.NewMemoryStorageRepository(), func() {}, nil
	}
}

func sweepInterval(idle time.Duration) time.Duration {
	return max(idle/4, time.Minute)
}

func forgetLimiters(ctx context.Context, l *middleware.ScopeLimiter, idle time.Duration) {
	ticker := time.NewTicker(sweepInterval(idle))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Forget(idle)
		}
	}
}

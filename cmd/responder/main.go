// Package main starts the HealthChat responder: POST /chat answers health
// questions from a question/answer knowledge base and a language model.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/healthchat/internal/config"
	"github.com/atinyakov/healthchat/internal/logger"
	"github.com/atinyakov/healthchat/internal/responder"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	options, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	kb, err := responder.LoadKnowledge(options.KnowledgePath)
	if err != nil {
		zapLogger.Fatal("cannot load knowledge base", zap.String("path", options.KnowledgePath), zap.Error(err))
	}
	zapLogger.Info("knowledge base loaded", zap.Int("documents", kb.Len()))

	model := responder.NewModelClient(options.ModelURL, options.ModelName, nil)
	svc := responder.NewService(kb, model, zapLogger)
	router := responder.NewRouter(&responder.Handler{Answerer: svc, Log: zapLogger}, options.AllowedOrigins, zapLogger)

	server := &http.Server{
		Addr:              options.ResponderAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		zapLogger.Info("starting responder", zap.String("addr", options.ResponderAddress), zap.String("model", options.ModelName))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("responder failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("forced shutdown", zap.Error(err))
	}
}

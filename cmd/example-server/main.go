package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"local-business-hub/internal/config"
	"local-business-hub/internal/logging"
	"local-business-hub/middleware/ratelimit"
	"local-business-hub/middleware/ratelimit/application"
	"local-business-hub/middleware/ratelimit/infra"
	"local-business-hub/middleware/requestid"
)

// Servidor de desenvolvimento: o middleware montado direto no router (sem proxy),
// servindo um stub das rotas públicas do hub. Também serve de upstream para
// validar o cmd/gateway localmente (UPSTREAM_URL=http://localhost:8081).
func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New("hub-dev-server", cfg.LogLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	store := infra.NewMemoryStore(infra.WithCleanupEvery(cfg.Rate.CleanupEvery))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	store.StartJanitor(ctx, nil)

	governor, err := application.NewService(store, cfg.Rate.Limit)
	if err != nil {
		logger.Fatal("invalid rate limit configuration", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(ratelimit.Middleware(ratelimit.Options{
		Governor:     governor,
		Config:       cfg.Rate.Limit,
		KeyHeader:    cfg.Rate.KeyHeader,
		FallbackAddr: cfg.Rate.FallbackAddr,
		Logger:       logger,
	}))
	mountHubStub(r)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("dev server listening", zap.String("addr", addr),
		zap.Int("maxRequests", cfg.Rate.Limit.MaxRequests), zap.Duration("window", cfg.Rate.Limit.Window))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

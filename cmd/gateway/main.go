package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"local-business-hub/internal/config"
	"local-business-hub/internal/logging"
	"local-business-hub/middleware/ratelimit"
	"local-business-hub/middleware/ratelimit/application"
	"local-business-hub/middleware/ratelimit/domain"
	"local-business-hub/middleware/ratelimit/infra"
	"local-business-hub/middleware/requestid"
)

func main() {
	cfg, err := config.Load(".env")
	if err == nil {
		err = cfg.RequireUpstream()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New("hub-gateway", cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("gateway stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	target, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		return fmt.Errorf("invalid UPSTREAM_URL: %w", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("proxy error", zap.Error(err), zap.String("path", r.URL.Path), zap.String("requestID", requestid.FromContext(r.Context())))
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	h, cleanup, err := buildHandler(ctx, cfg, logger, proxy)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("gateway listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("upstream", target.String()))
	logger.Info("rate limit",
		zap.Bool("enabled", cfg.Rate.Enabled),
		zap.Int("maxRequests", cfg.Rate.Limit.MaxRequests),
		zap.Duration("window", cfg.Rate.Limit.Window),
		zap.String("store", cfg.Rate.Store),
		zap.String("keyHeader", cfg.Rate.KeyHeader))
	if cfg.Rate.Store == config.StoreMemory {
		logger.Warn("rate limit counters are local to this instance; use RATE_STORE=redis when running more than one gateway")
	}
	logger.Info("concurrency",
		zap.Int("max", cfg.Concurrency.Max),
		zap.Duration("acquireTimeout", cfg.Concurrency.Timeout))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// buildHandler monta o router: healthz, debug, e o proxy atrás dos limites.
// cleanup fecha as conexões Redis abertas aqui.
func buildHandler(ctx context.Context, cfg config.Config, logger *zap.Logger, upstream http.Handler) (http.Handler, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (http.Handler, func(), error) {
		cleanup()
		return nil, nil, err
	}

	stats, closeStats, err := newStatsStore(ctx, cfg.Stats)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeStats)

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(chimw.Recoverer)

	concurrencyMW, concurrency := ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.Concurrency.Max,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.Concurrency.Timeout,
		Logger:         logger,
	})

	// o store só existe com o rate limit ligado: Redis fora do ar não impede o boot sem rate limit
	rateMW := func(next http.Handler) http.Handler { return next }
	if cfg.Rate.Enabled {
		store, closeStore, err := newCounterStore(ctx, cfg.Rate, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, closeStore)

		governor, err := application.NewService(store, cfg.Rate.Limit)
		if err != nil {
			return fail(fmt.Errorf("invalid rate limit configuration: %w", err))
		}
		rateMW, err = ratelimit.NewMiddleware(ratelimit.Options{
			Governor:     governor,
			Stats:        stats,
			KeyHeader:    cfg.Rate.KeyHeader,
			FallbackAddr: cfg.Rate.FallbackAddr,
			Logger:       logger,
		})
		if err != nil {
			return fail(err)
		}

		r.Delete("/debug/ratelimit/{key}", resetHandler(store, logger))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Get("/debug/ratelimit", debugHandler(cfg, stats, concurrency))

	r.Group(func(r chi.Router) {
		r.Use(concurrencyMW)
		r.Use(rateMW)
		r.Handle("/*", upstream)
	})

	return r, cleanup, nil
}

func newRedisClient(ctx context.Context, rc config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", rc.Addr, err)
	}
	return rdb, nil
}

// counterStore é o que o gateway usa dos stores de contadores: consumo e reset por cliente.
type counterStore interface {
	domain.CounterStore
	Reset(ctx context.Context, key domain.Key) error
}

func newCounterStore(ctx context.Context, rc config.RateConfig, logger *zap.Logger) (counterStore, func(), error) {
	if rc.Store == config.StoreRedis {
		rdb, err := newRedisClient(ctx, rc.Redis)
		if err != nil {
			return nil, nil, err
		}
		return infra.NewRedisStore(rdb, infra.WithKeyPrefix(rc.RedisPrefix)), func() { _ = rdb.Close() }, nil
	}

	store := infra.NewMemoryStore(
		infra.WithCleanupEvery(rc.CleanupEvery),
		infra.WithMaxEntries(rc.MaxEntries),
	)
	store.StartJanitor(ctx, func(removed int) {
		if removed > 0 {
			logger.Debug("rate limit sweep", zap.Int("removed", removed), zap.Int("remaining", store.Len()))
		}
	})
	return store, func() {}, nil
}

// decisionStats grava decisões e lê os totais para /debug/ratelimit.
type decisionStats interface {
	domain.StatsStore
	statsReader
}

// newStatsStore usa Redis quando habilitado; caso contrário mantém contadores em memória.
func newStatsStore(ctx context.Context, sc config.StatsConfig) (decisionStats, func(), error) {
	if !sc.Enabled {
		return infra.NewMemoryStatsStore(infra.WithTrackKeys(sc.TrackKeys)), func() {}, nil
	}

	rdb, err := newRedisClient(ctx, sc.Redis)
	if err != nil {
		return nil, nil, err
	}
	store := infra.NewRedisStatsStore(
		rdb,
		infra.WithStatsPrefix(sc.Prefix),
		infra.WithStatsTTL(sc.TTL),
		infra.WithStatsBucket(sc.Bucket),
		infra.WithStatsTrackKeys(sc.TrackKeys),
	)
	return store, func() { _ = rdb.Close() }, nil
}

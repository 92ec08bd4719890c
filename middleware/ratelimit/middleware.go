package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"local-business-hub/middleware/ratelimit/domain"
	"local-business-hub/middleware/requestid"
)

// Governor é o que o middleware precisa do application.Service.
type Governor interface {
	CheckAndConsume(ctx context.Context, key domain.Key, cfg domain.Config) (domain.Decision, error)
}

// configured é implementado pelo application.Service.
type configured interface {
	Config() domain.Config
}

type Options struct {
	Governor Governor
	// Config zero usa a configuração do governor (se ele expõe Config())
	// ou domain.DefaultConfig (10 req / 10s).
	Config       domain.Config
	Stats        domain.StatsStore
	KeyFn        KeyFunc
	KeyHeader    string
	FallbackAddr string
	// Exempt decide quais caminhos pulam o rate limit. Padrão: IsStaticAsset.
	Exempt       func(path string) bool
	RejectStatus int
	Logger       *zap.Logger
}

// NewMiddleware valida as opções e monta o middleware.
//
// Falhas do governor (erro ou pânico) nunca bloqueiam: a requisição segue (fail open)
// e o erro é logado, com no máximo um log a cada 10s.
func NewMiddleware(opts Options) (func(next http.Handler) http.Handler, error) {
	if opts.Governor == nil {
		return nil, fmt.Errorf("rate limit governor is required")
	}
	if opts.Config == (domain.Config{}) {
		if c, ok := opts.Governor.(configured); ok {
			opts.Config = c.Config()
		} else {
			opts.Config = domain.DefaultConfig()
		}
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.FallbackAddr)
	}
	if opts.Exempt == nil {
		opts.Exempt = IsStaticAsset
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	failLog := &rate.Sometimes{First: 1, Interval: 10 * time.Second}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			key := opts.KeyFn(r)
			dec, err := decide(r.Context(), opts.Governor, domain.Key(key), opts.Config)
			if err != nil {
				failLog.Do(func() {
					opts.Logger.Error("rate limiter failed, allowing request",
						zap.Error(err),
						zap.String("key", key),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.String("requestID", requestid.FromContext(r.Context())))
				})
				record(r, opts, domain.StatsEvent{Key: domain.Key(key), Allowed: true, FailedOpen: true})
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set(HeaderLimit, formatInt(dec.Limit))
			w.Header().Set(HeaderRemaining, formatInt(dec.Remaining))
			w.Header().Set(HeaderReset, formatInt(dec.ResetSeconds))

			record(r, opts, domain.StatsEvent{Key: domain.Key(key), Allowed: dec.Allowed})

			if !dec.Allowed {
				opts.Logger.Debug("rate limit exceeded",
					zap.String("key", key),
					zap.Int64("count", dec.Count),
					zap.Int("limit", dec.Limit),
					zap.Int("resetSeconds", dec.ResetSeconds))
				w.Header().Set("Retry-After", formatInt(dec.ResetSeconds))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

// Middleware é NewMiddleware que entra em pânico com opções inválidas (uso em main/testes).
func Middleware(opts Options) func(next http.Handler) http.Handler {
	mw, err := NewMiddleware(opts)
	if err != nil {
		panic(err)
	}
	return mw
}

// decide converte pânico do governor em erro para o caminho de fail open.
func decide(ctx context.Context, g Governor, key domain.Key, cfg domain.Config) (dec domain.Decision, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic: %v", domain.ErrGovernorFailure, rec)
		}
	}()
	return g.CheckAndConsume(ctx, key, cfg)
}

func record(r *http.Request, opts Options, ev domain.StatsEvent) {
	if opts.Stats == nil {
		return
	}
	ev.Method = r.Method
	ev.Path = r.URL.Path
	ev.At = time.Now()
	if err := opts.Stats.Record(r.Context(), ev); err != nil {
		opts.Logger.Warn("rate limit stats not recorded", zap.Error(err))
	}
}

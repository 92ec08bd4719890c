package ratelimit

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"local-business-hub/middleware/ratelimit/application"
	"local-business-hub/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	Logger         *zap.Logger
}

// ConcurrencyMiddleware limita requisições simultâneas; sem vaga dentro do
// timeout responde RejectStatus (503 por padrão). Max <= 0 desliga.
// O serviço retornado permite consultar InFlight (nil quando desligado).
func ConcurrencyMiddleware(opts ConcurrencyOptions) (func(next http.Handler) http.Handler, *application.ConcurrencyService) {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }, nil
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	svc := &application.ConcurrencyService{
		Pool:           infra.NewChanPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				opts.Logger.Debug("concurrency limit reached", zap.String("path", r.URL.Path), zap.Int("max", opts.Max))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}, svc
}

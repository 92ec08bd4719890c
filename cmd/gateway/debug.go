package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"local-business-hub/internal/config"
	"local-business-hub/middleware/ratelimit/application"
	"local-business-hub/middleware/ratelimit/domain"
	"local-business-hub/middleware/ratelimit/infra"
)

// statsReader é satisfeito por infra.MemoryStatsStore e infra.RedisStatsStore.
type statsReader interface {
	Total(ctx context.Context) (infra.Counters, error)
}

// só o store em memória agrega por rota
type routeStatsReader interface {
	ByRoute() map[string]infra.Counters
}

type keyResetter interface {
	Reset(ctx context.Context, key domain.Key) error
}

type debugResponse struct {
	RateLimit struct {
		Enabled     bool   `json:"enabled"`
		Store       string `json:"store"`
		MaxRequests int    `json:"maxRequests"`
		WindowMs    int64  `json:"windowMs"`
	} `json:"rateLimit"`
	Totals     *infra.Counters           `json:"totals,omitempty"`
	ByRoute    map[string]infra.Counters `json:"byRoute,omitempty"`
	StatsError string                    `json:"statsError,omitempty"`
	InFlight   *int64                    `json:"inFlight,omitempty"`
}

func debugHandler(cfg config.Config, stats statsReader, concurrency *application.ConcurrencyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp debugResponse
		resp.RateLimit.Enabled = cfg.Rate.Enabled
		resp.RateLimit.Store = cfg.Rate.Store
		resp.RateLimit.MaxRequests = cfg.Rate.Limit.MaxRequests
		resp.RateLimit.WindowMs = cfg.Rate.Limit.Window.Milliseconds()

		if stats != nil {
			total, err := stats.Total(r.Context())
			if err != nil {
				resp.StatsError = err.Error()
			} else {
				resp.Totals = &total
			}
			if rs, ok := stats.(routeStatsReader); ok {
				resp.ByRoute = rs.ByRoute()
			}
		}
		if concurrency != nil {
			n := concurrency.InFlight()
			resp.InFlight = &n
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// resetHandler libera um cliente bloqueado apagando o contador dele.
func resetHandler(store keyResetter, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(chi.URLParam(r, "key"))
		if key == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "key is required"})
			return
		}

		if err := store.Reset(r.Context(), domain.Key(key)); err != nil {
			logger.Error("rate limit reset failed", zap.Error(err), zap.String("key", key))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reset failed"})
			return
		}

		logger.Info("rate limit reset", zap.String("key", key))
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package ratelimit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"local-business-hub/middleware/ratelimit/application"
	"local-business-hub/middleware/ratelimit/domain"
	"local-business-hub/middleware/ratelimit/infra"
)

type governorFunc func(ctx context.Context, key domain.Key, cfg domain.Config) (domain.Decision, error)

func (f governorFunc) CheckAndConsume(ctx context.Context, key domain.Key, cfg domain.Config) (domain.Decision, error) {
	return f(ctx, key, cfg)
}

func newGovernor(t *testing.T) *application.Service {
	t.Helper()
	svc, err := application.NewService(infra.NewMemoryStore(), domain.DefaultConfig())
	require.NoError(t, err)
	return svc
}

func okHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
}

func get(h http.Handler, path, ip string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "http://example"+path, nil)
	if ip != "" {
		r.Header.Set("X-Forwarded-For", ip)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func totals(t *testing.T, stats *infra.MemoryStatsStore) infra.Counters {
	t.Helper()
	c, err := stats.Total(context.Background())
	require.NoError(t, err)
	return c
}

func TestMiddleware_AllowsThenRejectsSameKey(t *testing.T) {
	calls := 0
	h := Middleware(Options{
		Governor: newGovernor(t),
		Config:   domain.Config{MaxRequests: 2, Window: 10 * time.Second},
	})(okHandler(&calls))

	w1 := get(h, "/businesses", "10.0.0.1")
	require.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, "2", w1.Header().Get(HeaderLimit))
	assert.Equal(t, "1", w1.Header().Get(HeaderRemaining))
	assert.Equal(t, "10", w1.Header().Get(HeaderReset))

	w2 := get(h, "/businesses", "10.0.0.1")
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, "0", w2.Header().Get(HeaderRemaining))

	w3 := get(h, "/businesses", "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w3.Code)
	assert.Equal(t, "10", w3.Header().Get("Retry-After"))
	assert.Equal(t, "0", w3.Header().Get(HeaderRemaining))

	assert.Equal(t, 2, calls, "downstream must be skipped when rejected")
}

func TestMiddleware_DistinctClientsDoNotInterfere(t *testing.T) {
	calls := 0
	h := Middleware(Options{
		Governor: newGovernor(t),
		Config:   domain.Config{MaxRequests: 1, Window: time.Minute},
	})(okHandler(&calls))

	assert.Equal(t, http.StatusOK, get(h, "/", "1.1.1.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(h, "/", "1.1.1.1").Code)
	assert.Equal(t, http.StatusOK, get(h, "/", "2.2.2.2").Code)
}

func TestMiddleware_StaticAssetsAreExempt(t *testing.T) {
	governed := 0
	gov := governorFunc(func(ctx context.Context, key domain.Key, cfg domain.Config) (domain.Decision, error) {
		governed++
		return domain.Decision{Allowed: false, Limit: 1}, nil
	})

	calls := 0
	h := Middleware(Options{Governor: gov})(okHandler(&calls))

	w := get(h, "/_next/static/chunks/app.js", "1.1.1.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(HeaderLimit))
	assert.Equal(t, 0, governed)

	assert.Equal(t, http.StatusTooManyRequests, get(h, "/categories", "1.1.1.1").Code)
	assert.Equal(t, 1, governed)
}

func TestMiddleware_FailsOpenOnGovernorError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	stats := infra.NewMemoryStatsStore()
	gov := governorFunc(func(ctx context.Context, key domain.Key, cfg domain.Config) (domain.Decision, error) {
		return domain.Decision{}, errors.New("redis down")
	})

	calls := 0
	h := Middleware(Options{Governor: gov, Stats: stats, Logger: zap.New(core)})(okHandler(&calls))

	w := get(h, "/", "1.1.1.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, calls)
	assert.Empty(t, w.Header().Get(HeaderLimit))
	assert.Equal(t, 1, logs.FilterMessage("rate limiter failed, allowing request").Len())
	assert.Equal(t, infra.Counters{FailedOpen: 1}, totals(t, stats))

	// log é limitado: a segunda falha logo em seguida não gera outro log
	get(h, "/", "1.1.1.1")
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, logs.Len())
}

func TestMiddleware_FailsOpenOnGovernorPanic(t *testing.T) {
	gov := governorFunc(func(ctx context.Context, key domain.Key, cfg domain.Config) (domain.Decision, error) {
		panic("boom")
	})

	calls := 0
	h := Middleware(Options{Governor: gov})(okHandler(&calls))

	assert.Equal(t, http.StatusOK, get(h, "/", "1.1.1.1").Code)
	assert.Equal(t, 1, calls)
}

func TestMiddleware_UsesFallbackKeyWithoutHeaders(t *testing.T) {
	var seen domain.Key
	gov := governorFunc(func(ctx context.Context, key domain.Key, cfg domain.Config) (domain.Decision, error) {
		seen = key
		return domain.Decision{Allowed: true, Limit: cfg.MaxRequests, Remaining: cfg.MaxRequests - 1}, nil
	})

	calls := 0
	h := Middleware(Options{Governor: gov})(okHandler(&calls))
	get(h, "/", "")

	assert.Equal(t, domain.Key(DefaultFallbackAddr), seen)
}

func TestMiddleware_RecordsStats(t *testing.T) {
	stats := infra.NewMemoryStatsStore(infra.WithTrackKeys(true))
	calls := 0
	h := Middleware(Options{
		Governor: newGovernor(t),
		Config:   domain.Config{MaxRequests: 1, Window: time.Minute},
		Stats:    stats,
	})(okHandler(&calls))

	get(h, "/nannies", "3.3.3.3")
	get(h, "/nannies", "3.3.3.3")

	assert.Equal(t, infra.Counters{Allowed: 1, Denied: 1}, totals(t, stats))
	assert.Equal(t, infra.Counters{Allowed: 1, Denied: 1}, stats.ByRoute()["GET /nannies"])
	assert.Equal(t, infra.Counters{Allowed: 1, Denied: 1}, stats.ByKey()["3.3.3.3"])
}

func TestMiddleware_UsesGovernorConfigWhenUnset(t *testing.T) {
	svc, err := application.NewService(infra.NewMemoryStore(), domain.Config{MaxRequests: 3, Window: 5 * time.Second})
	require.NoError(t, err)

	calls := 0
	h := Middleware(Options{Governor: svc})(okHandler(&calls))

	w := get(h, "/", "4.4.4.4")
	assert.Equal(t, "3", w.Header().Get(HeaderLimit))
	assert.Equal(t, "5", w.Header().Get(HeaderReset))
}

func TestNewMiddleware_RejectsInvalidOptions(t *testing.T) {
	_, err := NewMiddleware(Options{})
	assert.Error(t, err)

	_, err = NewMiddleware(Options{Governor: newGovernor(t), Config: domain.Config{MaxRequests: -1, Window: time.Second}})
	assert.True(t, errors.Is(err, domain.ErrInvalidConfiguration))

	assert.Panics(t, func() { Middleware(Options{}) })
}

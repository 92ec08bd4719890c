package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"local-business-hub/middleware/ratelimit/domain"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.True(t, cfg.Rate.Enabled)
	assert.Equal(t, domain.Config{MaxRequests: 10, Window: 10 * time.Second}, cfg.Rate.Limit)
	assert.Equal(t, StoreMemory, cfg.Rate.Store)
	assert.Equal(t, time.Minute, cfg.Rate.CleanupEvery)
	assert.Equal(t, "127.0.0.1", cfg.Rate.FallbackAddr)
	assert.Equal(t, 100, cfg.Concurrency.Max)
	assert.Error(t, cfg.RequireUpstream())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("UPSTREAM_URL", "http://hub-web:3000")
	t.Setenv("RATE_MAX_REQUESTS", "2")
	t.Setenv("RATE_WINDOW", "1s")
	t.Setenv("RATE_STORE", "Redis")
	t.Setenv("RATE_REDIS_ADDR", "localhost:6379")
	t.Setenv("RATE_KEY_HEADER", "X-Api-Key")
	t.Setenv("CONCURRENCY_TIMEOUT", "250ms")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.NoError(t, cfg.RequireUpstream())
	assert.Equal(t, domain.Config{MaxRequests: 2, Window: time.Second}, cfg.Rate.Limit)
	assert.Equal(t, StoreRedis, cfg.Rate.Store)
	assert.Equal(t, "localhost:6379", cfg.Rate.Redis.Addr)
	assert.Equal(t, "X-Api-Key", cfg.Rate.KeyHeader)
	assert.Equal(t, 250*time.Millisecond, cfg.Concurrency.Timeout)
}

func TestFromEnv_Invalid(t *testing.T) {
	tt := []struct {
		desc string
		env  map[string]string
	}{
		{desc: "zero max requests", env: map[string]string{"RATE_MAX_REQUESTS": "0"}},
		{desc: "negative window", env: map[string]string{"RATE_WINDOW": "-5s"}},
		{desc: "unknown store", env: map[string]string{"RATE_STORE": "memcached"}},
		{desc: "redis without addr", env: map[string]string{"RATE_STORE": "redis"}},
		{desc: "stats without addr", env: map[string]string{"RATE_STATS_ENABLED": "true"}},
		{desc: "negative concurrency", env: map[string]string{"CONCURRENCY_MAX": "-1"}},
		{desc: "malformed max requests", env: map[string]string{"RATE_MAX_REQUESTS": "abc"}},
		{desc: "malformed window", env: map[string]string{"RATE_WINDOW": "10"}},
		{desc: "malformed bool", env: map[string]string{"RATE_ENABLED": "sometimes"}},
		{desc: "malformed redis db", env: map[string]string{"RATE_REDIS_DB": "zero"}},
	}

	for _, ts := range tt {
		t.Run(ts.desc, func(t *testing.T) {
			for k, v := range ts.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFromEnv_MalformedValuesAreAllReported(t *testing.T) {
	t.Setenv("RATE_MAX_REQUESTS", "abc")
	t.Setenv("CONCURRENCY_TIMEOUT", "soon")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `RATE_MAX_REQUESTS="abc"`)
	assert.Contains(t, err.Error(), `CONCURRENCY_TIMEOUT="soon"`)
}

func TestFromEnv_InvalidLimitIsInvalidConfiguration(t *testing.T) {
	t.Setenv("RATE_MAX_REQUESTS", "-1")

	_, err := FromEnv()
	assert.True(t, errors.Is(err, domain.ErrInvalidConfiguration))
}

func TestFromEnv_DisabledRateSkipsLimitValidation(t *testing.T) {
	t.Setenv("RATE_ENABLED", "false")
	t.Setenv("RATE_MAX_REQUESTS", "0")

	_, err := FromEnv()
	assert.NoError(t, err)
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RATE_MAX_REQUESTS=42\n"), 0o600))
	t.Setenv("RATE_MAX_REQUESTS", "")
	// godotenv não sobrescreve variáveis já definidas; garante que não existe
	require.NoError(t, os.Unsetenv("RATE_MAX_REQUESTS"))

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Rate.Limit.MaxRequests)
}

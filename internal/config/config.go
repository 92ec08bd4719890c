// Package config lê a configuração do gateway a partir de variáveis de ambiente
// (opcionalmente carregadas de um arquivo .env).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"local-business-hub/middleware/ratelimit/domain"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	ListenAddr  string
	UpstreamURL string
	LogLevel    string
	LogFormat   string

	Rate        RateConfig
	Stats       StatsConfig
	Concurrency ConcurrencyConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateConfig struct {
	Enabled bool
	Limit   domain.Config
	// Store escolhe memória (uma instância) ou Redis (compartilhado entre instâncias).
	Store        string
	Redis        RedisConfig
	RedisPrefix  string
	CleanupEvery time.Duration
	MaxEntries   int
	KeyHeader    string
	FallbackAddr string
}

type StatsConfig struct {
	Enabled   bool
	Redis     RedisConfig
	Prefix    string
	TTL       time.Duration
	Bucket    string
	TrackKeys bool
}

type ConcurrencyConfig struct {
	Max     int
	Timeout time.Duration
}

// Load carrega os arquivos .env informados (ignora os ausentes) e lê o ambiente.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv falha se algum valor numérico, booleano ou de duração estiver malformado.
func FromEnv() (Config, error) {
	var env envParser
	cfg := Config{}
	cfg.ListenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.UpstreamURL = os.Getenv("UPSTREAM_URL")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")

	def := domain.DefaultConfig()
	cfg.Rate.Enabled = env.boolDefault("RATE_ENABLED", true)
	cfg.Rate.Limit = domain.Config{
		MaxRequests: env.intDefault("RATE_MAX_REQUESTS", def.MaxRequests),
		Window:      env.durationDefault("RATE_WINDOW", def.Window),
	}
	cfg.Rate.Store = strings.ToLower(getenvDefault("RATE_STORE", StoreMemory))
	cfg.Rate.Redis = RedisConfig{
		Addr:     os.Getenv("RATE_REDIS_ADDR"),
		Password: os.Getenv("RATE_REDIS_PASSWORD"),
		DB:       env.intDefault("RATE_REDIS_DB", 0),
	}
	cfg.Rate.RedisPrefix = getenvDefault("RATE_REDIS_PREFIX", "ratelimit:fw")
	cfg.Rate.CleanupEvery = env.durationDefault("RATE_CLEANUP_EVERY", time.Minute)
	cfg.Rate.MaxEntries = env.intDefault("RATE_MAX_ENTRIES", 100000)
	cfg.Rate.KeyHeader = os.Getenv("RATE_KEY_HEADER")
	cfg.Rate.FallbackAddr = getenvDefault("RATE_FALLBACK_ADDR", "127.0.0.1")

	cfg.Stats.Enabled = env.boolDefault("RATE_STATS_ENABLED", false)
	cfg.Stats.Redis = RedisConfig{
		Addr:     os.Getenv("RATE_STATS_REDIS_ADDR"),
		Password: os.Getenv("RATE_STATS_REDIS_PASSWORD"),
		DB:       env.intDefault("RATE_STATS_REDIS_DB", 0),
	}
	cfg.Stats.Prefix = getenvDefault("RATE_STATS_PREFIX", "ratelimit:stats")
	cfg.Stats.TTL = env.durationDefault("RATE_STATS_TTL", 24*time.Hour)
	cfg.Stats.Bucket = getenvDefault("RATE_STATS_BUCKET", "minute")
	cfg.Stats.TrackKeys = env.boolDefault("RATE_STATS_TRACK_KEYS", false)

	cfg.Concurrency.Max = env.intDefault("CONCURRENCY_MAX", 100)
	cfg.Concurrency.Timeout = env.durationDefault("CONCURRENCY_TIMEOUT", 0)

	if err := env.err(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Rate.Enabled {
		if err := c.Rate.Limit.Validate(); err != nil {
			return fmt.Errorf("RATE_MAX_REQUESTS/RATE_WINDOW: %w", err)
		}
	}
	switch c.Rate.Store {
	case StoreMemory:
	case StoreRedis:
		if strings.TrimSpace(c.Rate.Redis.Addr) == "" {
			return errors.New("RATE_REDIS_ADDR is required when RATE_STORE=redis")
		}
	default:
		return fmt.Errorf("RATE_STORE must be %q or %q, got %q", StoreMemory, StoreRedis, c.Rate.Store)
	}
	if c.Rate.MaxEntries < 0 {
		return errors.New("RATE_MAX_ENTRIES must be >= 0")
	}
	if c.Stats.Enabled && strings.TrimSpace(c.Stats.Redis.Addr) == "" {
		return errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true")
	}
	if c.Concurrency.Max < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return nil
}

// RequireUpstream é usado pelo gateway (o dev server não tem upstream).
func (c Config) RequireUpstream() error {
	if strings.TrimSpace(c.UpstreamURL) == "" {
		return errors.New("UPSTREAM_URL is required")
	}
	return nil
}

func getenvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// envParser lê valores tipados e acumula os erros de parse; valores vazios usam o padrão.
type envParser struct {
	errs []error
}

func (p *envParser) fail(k, v string, err error) {
	p.errs = append(p.errs, fmt.Errorf("invalid %s=%q: %w", k, v, err))
}

func (p *envParser) err() error { return errors.Join(p.errs...) }

func (p *envParser) intDefault(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		p.fail(k, v, err)
		return def
	}
	return i
}

func (p *envParser) boolDefault(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(k, v, err)
		return def
	}
	return b
}

func (p *envParser) durationDefault(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(k, v, err)
		return def
	}
	return d
}

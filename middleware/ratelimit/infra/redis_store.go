package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"local-business-hub/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript incrementa o contador e abre a janela (PEXPIRE) quando a chave
// ainda não tem TTL. Tudo dentro de um único script para não perder incrementos
// entre instâncias.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisStore compartilha os contadores de janela fixa entre instâncias do gateway.
// A expiração fica a cargo do próprio Redis; não há janitor.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

type RedisStoreOption func(*RedisStore)

func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if p := strings.Trim(prefix, ":"); p != "" {
			s.prefix = p
		}
	}
}

func NewRedisStore(rdb *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "ratelimit:fw",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.CounterStore = (*RedisStore)(nil)

func (s *RedisStore) key(k domain.Key) string {
	return s.prefix + ":" + string(k)
}

// Consume implementa domain.CounterStore.
func (s *RedisStore) Consume(ctx context.Context, key domain.Key, window time.Duration, now time.Time) (domain.RateRecord, error) {
	ms := window.Milliseconds()
	if ms < 1 {
		ms = 1
	}

	vals, err := fixedWindowScript.Run(ctx, s.rdb, []string{s.key(key)}, ms).Int64Slice()
	if err != nil {
		return domain.RateRecord{}, fmt.Errorf("error running fixed window script for key %v: %w", key, err)
	}
	if len(vals) != 2 {
		return domain.RateRecord{}, fmt.Errorf("unexpected fixed window reply for key %v: %v", key, vals)
	}

	return domain.RateRecord{
		ClientID: key,
		Count:    vals[0],
		ResetAt:  now.Add(time.Duration(vals[1]) * time.Millisecond),
	}, nil
}

// Reset remove o contador de um cliente.
func (s *RedisStore) Reset(ctx context.Context, key domain.Key) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}

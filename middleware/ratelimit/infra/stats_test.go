package infra

import (
	"context"
	"testing"
	"time"

	"local-business-hub/middleware/ratelimit/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStatsStore_Record(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Key: "a", Allowed: true, Method: "GET", Path: "/businesses"})
	_ = s.Record(ctx, domain.StatsEvent{Key: "a", Allowed: false, Method: "GET", Path: "/businesses"})
	_ = s.Record(ctx, domain.StatsEvent{Key: "b", Allowed: true, FailedOpen: true, Method: "POST", Path: "/testimonials"})

	total, err := s.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counters{Allowed: 1, Denied: 1, FailedOpen: 1}, total)
	assert.Equal(t, Counters{Allowed: 1, Denied: 1}, s.ByRoute()["GET /businesses"])
	assert.Equal(t, Counters{FailedOpen: 1}, s.ByKey()["b"])
}

func TestMemoryStatsStore_KeysNotTrackedByDefault(t *testing.T) {
	s := NewMemoryStatsStore()
	_ = s.Record(context.Background(), domain.StatsEvent{Key: "a", Allowed: true})

	assert.Empty(t, s.ByKey())
}

func TestRedisStatsStore_Record(t *testing.T) {
	server, client := newTestRedis(t)
	s := NewRedisStatsStore(client, WithStatsPrefix("hub:stats:"), WithStatsTrackKeys(true), WithStatsTTL(time.Hour))
	ctx := context.Background()
	at := time.Date(2024, time.June, 23, 10, 15, 30, 0, time.UTC)

	require.NoError(t, s.Record(ctx, domain.StatsEvent{Key: "ip1", Allowed: true, Method: "GET", Path: "/", At: at}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Key: "ip1", Allowed: false, Method: "GET", Path: "/", At: at}))

	total, err := s.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counters{Allowed: 1, Denied: 1}, total)

	assert.Equal(t, "1", server.HGet("hub:stats:minute:202406231015", "denied"))
	assert.Equal(t, "1", server.HGet("hub:stats:route", "GET /:allowed"))
	assert.Equal(t, time.Hour, server.TTL("hub:stats:key:ip1"))
}

func TestRedisStatsStore_NilIsNoop(t *testing.T) {
	var s *RedisStatsStore
	assert.NoError(t, s.Record(context.Background(), domain.StatsEvent{}))
}

package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/config"
	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForecastKeyIgnoresEventOrder(t *testing.T) {
	a := ForecastKey{ProductID: 4, Start: "2025-01-01", End: "2025-01-30", Events: []domain.ForecastEvent{
		{Name: "Tabaski", Date: "2025-01-05", Multiplier: 2},
		{Name: "Promo", Date: "2025-01-10", Multiplier: 1.5},
	}}
	b := a
	b.Events = []domain.ForecastEvent{a.Events[1], a.Events[0]}

	assert.Equal(t, buildForecastKey(a), buildForecastKey(b))
	assert.True(t, strings.HasPrefix(buildForecastKey(a), "forecast:4:"))

	c := a
	c.End = "2025-01-20"
	assert.NotEqual(t, buildForecastKey(a), buildForecastKey(c))
}

func TestDisabledCacheIsNoop(t *testing.T) {
	ctx := context.Background()
	c, err := NewForecastCache(ctx, config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, ForecastKey{ProductID: 1}, &domain.ForecastResult{ProductID: 1}))
	got, ok, err := c.Get(ctx, ForecastKey{ProductID: 1})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = redisOptions(config.CacheConfig{RedisURL: "redis://:secret@localhost:6379/1"})
	require.NoError(t, err)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 1, opts.DB)

	_, err = redisOptions(config.CacheConfig{RedisURL: "://bad"})
	assert.Error(t, err)

	assert.Equal(t, 24*time.Hour, cacheTTL(config.CacheConfig{}))
	assert.Equal(t, time.Minute, cacheTTL(config.CacheConfig{ForecastTTLSeconds: 60}))
}

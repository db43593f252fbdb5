package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/config"
	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	forecastKeyPrefix = "forecast"
	scanBatchSize     = 100
)

// ForecastKey identifies one forecast request
type ForecastKey struct {
	ProductID int64
	Start     string
	End       string
	Events    []domain.ForecastEvent
}

type ForecastCache interface {
	Get(ctx context.Context, key ForecastKey) (*domain.ForecastResult, bool, error)
	Set(ctx context.Context, key ForecastKey, result *domain.ForecastResult) error
	InvalidateProduct(ctx context.Context, productID int64) error
	InvalidateAll(ctx context.Context) error
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopForecastCache struct{}

// NewForecastCache returns a redis backed cache, or a noop one when caching is disabled
func NewForecastCache(ctx context.Context, cfg config.CacheConfig) (ForecastCache, error) {
	if !cfg.Enabled {
		return &noopForecastCache{}, nil
	}

	client, ttl, err := newRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &redisForecastCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

func (c *redisForecastCache) Get(ctx context.Context, key ForecastKey) (*domain.ForecastResult, bool, error) {
	payload, err := c.client.Get(ctx, buildForecastKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result domain.ForecastResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false, fmt.Errorf("decode forecast cache: %w", err)
	}
	return &result, true, nil
}

func (c *redisForecastCache) Set(ctx context.Context, key ForecastKey, result *domain.ForecastResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}

	if err := c.client.Set(ctx, buildForecastKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisForecastCache) InvalidateProduct(ctx context.Context, productID int64) error {
	return deleteKeysWithPrefix(ctx, c.client, productPrefix(productID), scanBatchSize)
}

func (c *redisForecastCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, forecastKeyPrefix+":", scanBatchSize)
}

func (n *noopForecastCache) Get(ctx context.Context, key ForecastKey) (*domain.ForecastResult, bool, error) {
	return nil, false, nil
}

func (n *noopForecastCache) Set(ctx context.Context, key ForecastKey, result *domain.ForecastResult) error {
	return nil
}

func (n *noopForecastCache) InvalidateProduct(ctx context.Context, productID int64) error {
	return nil
}

func (n *noopForecastCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func productPrefix(productID int64) string {
	return fmt.Sprintf("%s:%d:", forecastKeyPrefix, productID)
}

func buildForecastKey(key ForecastKey) string {
	return productPrefix(key.ProductID) + forecastKeyHash(key)
}

// forecastKeyHash is stable regardless of the order events are given in
func forecastKeyHash(key ForecastKey) string {
	parts := []string{"start=" + key.Start, "end=" + key.End}

	if len(key.Events) > 0 {
		events := make([]string, 0, len(key.Events))
		for _, e := range key.Events {
			events = append(events, fmt.Sprintf("%s@%s*%.4f", strings.ToLower(strings.TrimSpace(e.Name)), e.Date, e.Multiplier))
		}
		sort.Strings(events)
		parts = append(parts, "events="+strings.Join(events, ","))
	}

	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

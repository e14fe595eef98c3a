package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"expectation-svc/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	SystemStatsKey      = "stats:system"
	BeneficiaryStatsKey = "stats:beneficiaries"
)

func InitRedis(cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established", zap.String("addr", cfg.Addr()))
	return rdb, nil
}

// StatsCache holds short-lived copies of admin aggregates. A nil client or a
// zero TTL turns every call into a miss.
type StatsCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewStatsCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *StatsCache {
	return &StatsCache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *StatsCache) enabled() bool {
	return c != nil && c.rdb != nil && c.ttl > 0
}

// Get decodes the cached value for key into dest and reports whether it was found.
func (c *StatsCache) Get(ctx context.Context, key string, dest any) bool {
	if !c.enabled() {
		return false
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("Discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *StatsCache) Set(ctx context.Context, key string, value any) {
	if !c.enabled() {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every stats entry after a write through the API.
func (c *StatsCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.rdb.Del(ctx, SystemStatsKey, BeneficiaryStatsKey).Err(); err != nil {
		c.logger.Warn("Cache invalidation failed", zap.Error(err))
	}
}

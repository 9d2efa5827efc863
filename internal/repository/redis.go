package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tickgate/tickgate/internal/config"
)

// NewRedisClient connects and pings so a dead Redis is caught at boot
// rather than on the first lock attempt.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// RedisLockManager implements the distributed per-strategy mutex with
// SET NX PX. Acquisition is a single atomic check-and-set; release is
// an unconditional DEL, idempotent by construction, with the TTL
// covering holders that crash before releasing.
type RedisLockManager struct {
	client *redis.Client
	prefix string
}

func NewRedisLockManager(client *redis.Client, prefix string) *RedisLockManager {
	if prefix == "" {
		prefix = "strategy_lock:"
	}
	return &RedisLockManager{client: client, prefix: prefix}
}

func (m *RedisLockManager) Acquire(ctx context.Context, strategyRunID string, ttl time.Duration) (bool, error) {
	return m.client.SetNX(ctx, m.prefix+strategyRunID, "1", ttl).Result()
}

func (m *RedisLockManager) Release(ctx context.Context, strategyRunID string) error {
	return m.client.Del(ctx, m.prefix+strategyRunID).Err()
}

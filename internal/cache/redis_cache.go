package cache

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"salespulse/backend/internal/domain"
)

type RedisSnapshotCache struct {
	client *redis.Client
}

func NewRedisSnapshotCache(addr string, password string, db int) *RedisSnapshotCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisSnapshotCache{client: client}
}

func (c *RedisSnapshotCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisSnapshotCache) Close() error {
	return c.client.Close()
}

func (c *RedisSnapshotCache) Get(ctx context.Context, key string) (*domain.CacheSnapshot, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var snapshot domain.CacheSnapshot
	if err := json.Unmarshal([]byte(val), &snapshot); err != nil {
		// Legacy or corrupt payload. Surface the mismatch; the reconciler
		// falls back to a full rebuild.
		return nil, false, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return &snapshot, true, nil
}

// Put stores the snapshot without a TTL: it lives until the next sync
// replaces it wholesale.
func (c *RedisSnapshotCache) Put(ctx context.Context, key string, snapshot *domain.CacheSnapshot) error {
	if snapshot == nil {
		return nil
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, 0).Err()
}

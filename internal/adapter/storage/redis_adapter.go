package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stockKeyPrefix    = "stock:"
	dedupKeyPrefix    = "extsync:"
	stockKeyTTL       = 12 * time.Hour
	idempotencyKeyTTL = 24 * time.Hour
)

// RedisAdapter is a best-effort lookaside next to MySQL: a read mirror of
// committed on-hand quantities plus a dedup guard for redelivered external
// sync events. It holds no authoritative state.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func stockKey(warehouseID, productID string) string {
	return fmt.Sprintf("%s%s:%s", stockKeyPrefix, warehouseID, productID)
}

func (r *RedisAdapter) SetStock(ctx context.Context, warehouseID, productID string, quantity int) error {
	return r.client.Set(ctx, stockKey(warehouseID, productID), quantity, stockKeyTTL).Err()
}

func (r *RedisAdapter) GetStock(ctx context.Context, warehouseID, productID string) (int, bool, error) {
	qty, err := r.client.Get(ctx, stockKey(warehouseID, productID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return qty, true, nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	return r.client.SetNX(ctx, dedupKeyPrefix+key, 1, idempotencyKeyTTL).Result()
}

func (r *RedisAdapter) DeleteIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, dedupKeyPrefix+key).Err()
}

package cache

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// keyNamespace prefixes every catalog entry so predicate invalidation can
// SCAN only this service's keys.
const keyNamespace = "catalog:"

// Redis is the shared Cache backend for multi-process deployments. All
// operations are best-effort: a backend error behaves like a cache miss.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedis wraps an existing Redis client as a Cache.
func NewRedis(client *redis.Client, logger *zap.Logger) *Redis {
	return &Redis{client: client, logger: logger}
}

func (r *Redis) Has(ctx context.Context, key string) bool {
	n, err := r.client.Exists(ctx, keyNamespace+key).Result()
	if err != nil {
		r.logger.Warn("Cache existence check failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return n > 0
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := r.client.Get(ctx, keyNamespace+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return value, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) {
	// No expiry; entries live until explicitly invalidated.
	if err := r.client.Set(ctx, keyNamespace+key, value, 0).Err(); err != nil {
		r.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *Redis) Invalidate(ctx context.Context, match func(key string) bool) {
	iter := r.client.Scan(ctx, 0, keyNamespace+"*", 0).Iterator()
	var stale []string
	for iter.Next(ctx) {
		key := strings.TrimPrefix(iter.Val(), keyNamespace)
		if match(key) {
			stale = append(stale, keyNamespace+key)
		}
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("Cache key scan failed", zap.Error(err))
		return
	}
	if len(stale) == 0 {
		return
	}
	if err := r.client.Del(ctx, stale...).Err(); err != nil {
		r.logger.Warn("Cache invalidation failed", zap.Strings("keys", stale), zap.Error(err))
	}
}

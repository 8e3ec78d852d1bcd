package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	errx "github.com/PortlandKyGuy/langroid/internal/core/error"
	logx "github.com/PortlandKyGuy/langroid/pkg/logger"
)

// RedisResponseCache stores model replies in Redis with a TTL refreshed on
// every write.
type RedisResponseCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisResponseCache(rdb redis.Cmdable, ttl time.Duration) *RedisResponseCache {
	return &RedisResponseCache{rdb: rdb, ttl: ttl}
}

func (r *RedisResponseCache) cacheKey(key string) string {
	return fmt.Sprintf("llmcache:%s", key)
}

func (r *RedisResponseCache) Get(ctx context.Context, key string) (*schema.Message, bool, error) {
	raw, err := r.rdb.Get(ctx, r.cacheKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to read cached response from redis")
		return nil, false, errx.WrapRedis(err)
	}

	var m schema.Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		// a corrupt entry is treated as a miss so the caller can overwrite it
		logx.Warn().Err(err).Str("key", key).Msg("discarding unreadable cache entry")
		return nil, false, nil
	}
	return &m, true, nil
}

func (r *RedisResponseCache) Set(ctx context.Context, key string, message *schema.Message) error {
	b, err := json.Marshal(message)
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to marshal response for cache")
		return fmt.Errorf("marshal cached response: %w", err)
	}
	if err := r.rdb.Set(ctx, r.cacheKey(key), b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to write cached response to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

package cache

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/best-odds/internal/domain/odds"
)

const redisKeyPrefix = "best-odds:"

// RedisResponseCache shares encoded payloads between replicas. Expiry is
// delegated to Redis.
type RedisResponseCache struct {
	client *redis.Client
}

func NewRedisResponseCache(client *redis.Client) *RedisResponseCache {
	return &RedisResponseCache{client: client}
}

// NewRedisClient parses a redis:// URL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, crerr.Wrap(err, "parse redis url")
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, crerr.Wrap(err, "ping redis")
	}
	return client, nil
}

func (c *RedisResponseCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if crerr.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, crerr.Wrapf(err, "redis get key=%s", key)
	}
	return body, true, nil
}

func (c *RedisResponseCache) Put(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, redisKeyPrefix+key, body, ttl).Err(); err != nil {
		return crerr.Wrapf(err, "redis set key=%s", key)
	}
	return nil
}

var _ odds.ResponseCache = (*RedisResponseCache)(nil)

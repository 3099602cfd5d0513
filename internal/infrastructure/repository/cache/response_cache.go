package cache

import (
	"context"
	"time"

	"github.com/riskibarqy/best-odds/internal/domain/odds"
	basecache "github.com/riskibarqy/best-odds/internal/platform/cache"
	"github.com/riskibarqy/best-odds/internal/platform/logging"
)

// ResponseCache keeps encoded payloads in process memory.
type ResponseCache struct {
	store *basecache.Store
}

func NewResponseCache(store *basecache.Store) *ResponseCache {
	return &ResponseCache{store: store}
}

func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := c.store.Get(ctx, key)
	if !ok {
		return nil, false, nil
	}
	body, ok := v.([]byte)
	if !ok {
		c.store.Delete(ctx, key)
		return nil, false, nil
	}
	return append([]byte(nil), body...), true, nil
}

func (c *ResponseCache) Put(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	c.store.Set(ctx, key, append([]byte(nil), body...), ttl)
	return nil
}

// RunJanitor sweeps expired entries every interval until ctx is done.
func (c *ResponseCache) RunJanitor(ctx context.Context, interval time.Duration, logger *logging.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.store.Sweep(); removed > 0 {
				logger.Debug("swept expired matchday entries", "removed", removed)
			}
		}
	}
}

var _ odds.ResponseCache = (*ResponseCache)(nil)

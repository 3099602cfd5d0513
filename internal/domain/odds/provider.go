package odds

import (
	"context"
	"time"
)

// Provider fetches one league's odds for one region. Implementations fill
// FetchResult.Call for every attempt, including failed ones.
type Provider interface {
	FetchOdds(ctx context.Context, req FetchRequest) (FetchResult, error)
}

// ResponseCache stores encoded payloads by date key for a fixed TTL.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, body []byte, ttl time.Duration) error
}

package core

import (
	"context"
	"time"
)

// CacheRepository is a key/value cache with expiry. The job progress snapshot cache
// and the distributed rate limiter sit on top of it.
type CacheRepository interface {
	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns nil, nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) (bool, error)
	// Incr increments a counter and sets its ttl when the key is new. It returns the
	// counter value after the increment.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Health(ctx context.Context) error
}

// Package ratelimit throttles validator runs, either per process or across every
// runner sharing a Redis instance.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/target/mmk-bulkval/internal/core"
)

// LocalLimiter is a token bucket private to one process.
type LocalLimiter struct {
	limiter *rate.Limiter
}

var _ core.RateLimiter = (*LocalLimiter)(nil)

// NewLocalLimiter allows perSecond events per second with the given burst. A
// non-positive rate disables limiting.
func NewLocalLimiter(perSecond float64, burst int) *LocalLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &LocalLimiter{limiter: rate.NewLimiter(limit, max(burst, 1))}
}

// Wait blocks until an event may happen or ctx is done.
func (l *LocalLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// RedisOptions configures a RedisLimiter.
type RedisOptions struct {
	Cache core.CacheRepository
	// Name namespaces the counters, e.g. "validate_file".
	Name string
	// Limit events are allowed per Window across all processes.
	Limit  int
	Window time.Duration
	// Fallback is used while Redis is unreachable. Defaults to a local limiter
	// with the same rate.
	Fallback core.RateLimiter
	Logger   *slog.Logger
}

// RedisLimiter is a fixed-window limiter whose counters live in Redis, so the limit
// holds for the whole fleet.
type RedisLimiter struct {
	cache    core.CacheRepository
	prefix   string
	limit    int64
	window   time.Duration
	fallback core.RateLimiter
	logger   *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

var _ core.RateLimiter = (*RedisLimiter)(nil)

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(opts RedisOptions) (*RedisLimiter, error) {
	if opts.Cache == nil {
		return nil, errors.New("cache repository is required")
	}
	if opts.Name == "" {
		return nil, errors.New("limiter name is required")
	}
	if opts.Limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	window := opts.Window
	if window <= 0 {
		window = time.Second
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = NewLocalLimiter(float64(opts.Limit)/window.Seconds(), opts.Limit)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLimiter{
		cache:    opts.Cache,
		prefix:   "mmk-bulkval:ratelimit:" + opts.Name + ":",
		limit:    int64(opts.Limit),
		window:   window,
		fallback: fallback,
		logger:   logger.With("component", "ratelimit", "limiter", opts.Name),
		now:      time.Now,
		sleep:    sleepCtx,
	}, nil
}

// Wait claims a slot in the current window, sleeping into later windows until one
// is free.
func (l *RedisLimiter) Wait(ctx context.Context) error {
	for {
		now := l.now()
		start := now.Truncate(l.window)
		key := fmt.Sprintf("%s%d", l.prefix, start.UnixMilli())

		n, err := l.cache.Incr(ctx, key, 2*l.window)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.WarnContext(ctx, "redis rate limit unavailable, using local limiter", "error", err)
			return l.fallback.Wait(ctx)
		}
		if n <= l.limit {
			return nil
		}
		if err := l.sleep(ctx, start.Add(l.window).Sub(now)); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

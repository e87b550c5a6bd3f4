package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
)

const progressKeyPrefix = "mmk-bulkval:progress:"

// ProgressCache keeps job progress snapshots in a CacheRepository. Snapshots of
// finished jobs never change and are kept longer than those of running jobs.
type ProgressCache struct {
	cache       core.CacheRepository
	runningTTL  time.Duration
	finishedTTL time.Duration
}

// NewProgressCache creates a ProgressCache.
func NewProgressCache(cache core.CacheRepository, runningTTL, finishedTTL time.Duration) *ProgressCache {
	if runningTTL <= 0 {
		runningTTL = 5 * time.Second
	}
	if finishedTTL <= 0 {
		finishedTTL = 24 * time.Hour
	}
	return &ProgressCache{cache: cache, runningTTL: runningTTL, finishedTTL: finishedTTL}
}

func progressKey(jobID int64) string {
	return fmt.Sprintf("%s%d", progressKeyPrefix, jobID)
}

// Get returns the cached snapshot, or nil when none is cached.
func (c *ProgressCache) Get(ctx context.Context, jobID int64) (*model.JobProgress, error) {
	b, err := c.cache.Get(ctx, progressKey(jobID))
	if err != nil || b == nil {
		return nil, err
	}
	var p model.JobProgress
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode cached progress: %w", err)
	}
	return &p, nil
}

// Put caches a snapshot.
func (c *ProgressCache) Put(ctx context.Context, p *model.JobProgress) error {
	if p == nil {
		return nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	ttl := c.runningTTL
	if p.FinishedAt != nil {
		ttl = c.finishedTTL
	}
	return c.cache.Set(ctx, progressKey(p.JobID), b, ttl)
}

// Invalidate drops the cached snapshot of a job.
func (c *ProgressCache) Invalidate(ctx context.Context, jobID int64) error {
	_, err := c.cache.Delete(ctx, progressKey(jobID))
	return err
}

var _ core.ProgressCache = (*ProgressCache)(nil)

package data

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-bulkval/internal/domain/model"
	"github.com/target/mmk-bulkval/internal/testutil"
)

func TestRedisCacheRepo_SetGetDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "test:key:1", []byte("value"), time.Minute))

		got, err := repo.Get(ctx, "test:key:1")
		require.NoError(t, err)
		assert.Equal(t, []byte("value"), got)

		ttl := client.TTL(ctx, "test:key:1").Val()
		assert.True(t, ttl > 0 && ttl <= time.Minute)
	})

	t.Run("missing key", func(t *testing.T) {
		got, err := repo.Get(ctx, "test:missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "test:key:2", []byte("x"), 0))

		deleted, err := repo.Delete(ctx, "test:key:2")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, "test:key:2")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("health", func(t *testing.T) {
		assert.NoError(t, repo.Health(ctx))
	})
}

func TestRedisCacheRepo_Incr(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	seen := make(chan int64, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := repo.Incr(ctx, "test:window", 10*time.Second)
			assert.NoError(t, err)
			seen <- n
		}()
	}
	wg.Wait()
	close(seen)

	values := make(map[int64]bool)
	for n := range seen {
		values[n] = true
	}
	assert.Len(t, values, workers, "every increment must observe a distinct value")

	ttl := client.PTTL(ctx, "test:window").Val()
	assert.True(t, ttl > 0 && ttl <= 10*time.Second, "ttl armed on first increment, got %s", ttl)
}

func TestRedisCacheRepo_EmptyKey(t *testing.T) {
	repo := NewRedisCacheRepo(nil)
	ctx := context.Background()

	require.ErrorIs(t, repo.Set(ctx, "", []byte("v"), time.Minute), errEmptyKey)
	_, err := repo.Get(ctx, "")
	require.ErrorIs(t, err, errEmptyKey)
	_, err = repo.Delete(ctx, "")
	require.ErrorIs(t, err, errEmptyKey)
	_, err = repo.Incr(ctx, "", time.Second)
	require.ErrorIs(t, err, errEmptyKey)
}

func TestProgressCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	cache := NewProgressCache(NewRedisCacheRepo(client), 0, 0)
	ctx := context.Background()

	got, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)

	running := &model.JobProgress{JobID: 7, Total: 4, Completed: 1, Passing: 1}
	require.NoError(t, cache.Put(ctx, running))
	got, err = cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, running, got)
	assert.LessOrEqual(t, client.TTL(ctx, progressKey(7)).Val(), 5*time.Second)

	finished := testutil.TestTime()
	done := &model.JobProgress{JobID: 7, Total: 4, Completed: 4, Passing: 4, FinishedAt: &finished}
	require.NoError(t, cache.Put(ctx, done))
	assert.Greater(t, client.TTL(ctx, progressKey(7)).Val(), time.Hour)

	require.NoError(t, cache.Invalidate(ctx, 7))
	got, err = cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)
}

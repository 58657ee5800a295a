package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	redisdrv "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rowqueue"
	"github.com/dmitrymomot/rowqueue/redis"
)

// testClient connects to the server named by TEST_REDIS_URL and returns a
// client plus a queue key unique to the test. Tests are skipped when the
// variable is not set so the suite stays runnable without infrastructure.
func testClient(t *testing.T) (*redisdrv.Client, string) {
	t.Helper()

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL is not set")
	}

	opt, err := redisdrv.ParseURL(url)
	require.NoError(t, err)
	client := redisdrv.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	key := "rowqueue_test:" + uuid.NewString()
	t.Cleanup(func() { _ = client.Del(context.Background(), key).Err() })

	return client, key
}

func TestStore_NewStore(t *testing.T) {
	t.Parallel()

	t.Run("nil client", func(t *testing.T) {
		t.Parallel()

		store, err := redis.NewStore(nil, "queue")
		assert.ErrorIs(t, err, redis.ErrClientNil)
		assert.Nil(t, store)
	})

	t.Run("empty key", func(t *testing.T) {
		t.Parallel()

		store, err := redis.NewStore(redisdrv.NewClient(&redisdrv.Options{}), "")
		assert.ErrorIs(t, err, redis.ErrKeyNotSet)
		assert.Nil(t, store)
	})
}

func TestStore_RunLifecycle(t *testing.T) {
	client, key := testClient(t)
	ctx := context.Background()

	store, err := redis.NewStore(client, key)
	require.NoError(t, err)

	waiting, err := rowqueue.Waiting(time.Time{}, 0)
	require.NoError(t, err)
	require.NoError(t, store.Add(ctx, "task-1", waiting))

	runner, err := rowqueue.NewRunner(store)
	require.NoError(t, err)

	var seen string
	rec, err := runner.Run(ctx, func(ctx context.Context, rec rowqueue.Record) error {
		seen = rec.(*redis.Record).ID
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "task-1", seen)
	assert.Equal(t, rowqueue.StateFinished, rec.QueueStatus().State())
	assert.Equal(t, 1, rec.QueueStatus().Attempts())

	counts, err := store.Tally(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[rowqueue.State]int{rowqueue.StateFinished: 1}, counts)

	_, err = runner.Run(ctx, func(ctx context.Context, rec rowqueue.Record) error { return nil })
	assert.ErrorIs(t, err, rowqueue.ErrNoRecordToClaim)
}

func TestStore_ReclaimStaleLease(t *testing.T) {
	client, key := testClient(t)
	ctx := context.Background()

	store, err := redis.NewStore(client, key)
	require.NoError(t, err)

	stale, err := rowqueue.Working(time.Now().UTC().Add(-2*time.Hour), 0)
	require.NoError(t, err)
	require.NoError(t, store.Add(ctx, "stale", stale))

	runner, err := rowqueue.NewRunner(store, rowqueue.WithTimeout(time.Hour))
	require.NoError(t, err)

	rec, err := runner.Run(ctx, func(ctx context.Context, rec rowqueue.Record) error { return nil })
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, rowqueue.StateFinished, rec.QueueStatus().State())
	assert.Equal(t, 2, rec.QueueStatus().Attempts())
}

func TestStore_AddRemove(t *testing.T) {
	client, key := testClient(t)
	ctx := context.Background()

	store, err := redis.NewStore(client, key)
	require.NoError(t, err)

	waiting, err := rowqueue.Waiting(time.Time{}, 0)
	require.NoError(t, err)

	require.NoError(t, store.Add(ctx, "task-1", waiting))
	require.NoError(t, store.Remove(ctx, "task-1", waiting))
	assert.ErrorIs(t, store.Remove(ctx, "task-1", waiting), rowqueue.ErrRecordNotFound)
}

package distributed

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("DATAPLUG_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DATAPLUG_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestDistributedLock_ExclusiveAndReusable(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	manager := NewLockManager(client, "dataplug:test:lock:")
	key := "snapshot-" + time.Now().Format("150405.000000")

	first := manager.AcquireLock(key, time.Second)
	second := manager.AcquireLock(key, time.Second)

	ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, second.Unlock(ctx), ErrLockNotHeld)
	require.NoError(t, first.Unlock(ctx))

	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Unlock(ctx))

	// the same holder can acquire again after releasing
	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Unlock(ctx))
}

func TestDistributedLock_RenewsWhileHeld(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	lock := NewDistributedLock(client, "dataplug:test:lock:renew-"+time.Now().Format("150405.000000"), 400*time.Millisecond)

	ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(900 * time.Millisecond)
	exists, err := client.Exists(ctx, lock.key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	require.NoError(t, lock.Unlock(ctx))
}

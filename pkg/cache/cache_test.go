package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGetExpire(t *testing.T) {
	c := New[string](time.Minute)
	defer c.Stop()

	now := time.Unix(1700000000, 0)
	c.now = func() time.Time { return now }

	c.Set("a", "alpha")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)

	c.sweep()
	assert.Equal(t, 0, c.Len())
}

func TestCache_GetOrSet(t *testing.T) {
	c := New[int](time.Minute)
	defer c.Stop()

	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return 7, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrSet(context.Background(), "k", load)
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	}
	assert.Equal(t, 1, calls)
}

func TestCache_GetOrSet_ErrorNotCached(t *testing.T) {
	c := New[int](time.Minute)
	defer c.Stop()

	boom := errors.New("boom")
	_, err := c.GetOrSet(context.Background(), "k", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c := New[string](time.Minute)
	defer c.Stop()

	c.Set("search:sol", "1")
	c.Set("search:eth", "2")
	c.Set("other", "3")

	c.InvalidatePrefix("search:")
	assert.Equal(t, 1, c.Len())

	c.InvalidatePrefix("")
	assert.Equal(t, 0, c.Len())
}

func TestCache_StopIsIdempotent(t *testing.T) {
	c := New[string](time.Minute)
	c.Stop()
	c.Stop()
}

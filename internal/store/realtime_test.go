package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRealtimeCache(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RealtimeCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRealtimeCache(NewRedisKV(client), "rm:point:", ttl)
}

func TestRealtimeCache_PutGet(t *testing.T) {
	mr, cache := setupRealtimeCache(t, 0)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, cache.Put(ctx, "dp-1", RealtimeValue{Value: 12.5, CollectionTime: at}))
	assert.True(t, mr.Exists("rm:point:dp-1"))

	v, err := cache.Get(ctx, "dp-1")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v.Value)
	assert.True(t, at.Equal(v.CollectionTime))

	// 覆盖写
	require.NoError(t, cache.Put(ctx, "dp-1", RealtimeValue{Value: 13, CollectionTime: at.Add(time.Minute)}))
	v, err = cache.Get(ctx, "dp-1")
	require.NoError(t, err)
	assert.Equal(t, 13.0, v.Value)
}

func TestRealtimeCache_Miss(t *testing.T) {
	_, cache := setupRealtimeCache(t, 0)

	v, err := cache.Get(context.Background(), "missing")

	assert.Nil(t, v)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRealtimeCache_TTL(t *testing.T) {
	mr, cache := setupRealtimeCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "dp-1", RealtimeValue{Value: 1, CollectionTime: time.Now()}))
	assert.Equal(t, time.Minute, mr.TTL("rm:point:dp-1"))

	mr.FastForward(2 * time.Minute)
	_, err := cache.Get(ctx, "dp-1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRealtimeCache_Invalidate(t *testing.T) {
	_, cache := setupRealtimeCache(t, 0)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "dp-1", RealtimeValue{Value: 1, CollectionTime: time.Now()}))
	require.NoError(t, cache.Invalidate(ctx, "dp-1"))

	_, err := cache.Get(ctx, "dp-1")
	assert.ErrorIs(t, err, ErrMiss)
}

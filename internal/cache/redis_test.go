package cache_test

import (
	"context"
	"testing"
	"time"

	"staffhub-api/internal/cache"
	"staffhub-api/internal/cache/cachetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func zapNop() *zap.Logger { return zap.NewNop() }

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := cache.NewClient(cache.StoreConfig{Token: "t"}, zapNop())
	assert.ErrorIs(t, err, cache.ErrMissingStoreURL)

	_, err = cache.NewClient(cache.StoreConfig{URL: "redis://localhost:6379"}, zapNop())
	assert.ErrorIs(t, err, cache.ErrMissingStoreToken)

	_, err = cache.NewClient(cache.StoreConfig{URL: "http://%zz", Token: "t"}, zapNop())
	assert.Error(t, err)
}

func TestOpenSelectsStore(t *testing.T) {
	s, err := cache.Open(cache.TypeMemory, cache.StoreConfig{}, zapNop())
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryStore{}, s)
	s.Close()

	_, err = cache.Open(cache.TypeRedis, cache.StoreConfig{}, zapNop())
	assert.ErrorIs(t, err, cache.ErrMissingStoreURL)

	_, err = cache.Open("memcached", cache.StoreConfig{}, zapNop())
	assert.Error(t, err)
}

func TestRedisStoreAvailability(t *testing.T) {
	store, mr := cachetest.NewRedis(t)
	ctx := context.Background()

	assert.True(t, cache.IsAvailable(ctx, store, zapNop()))

	mr.Close()
	assert.False(t, cache.IsAvailable(ctx, store, zapNop()))
}

func TestRedisStoreWrongTokenIsUnavailable(t *testing.T) {
	_, mr := cachetest.NewRedis(t)

	store, err := cache.NewClient(cache.StoreConfig{URL: "redis://" + mr.Addr(), Token: "wrong"}, zapNop())
	require.NoError(t, err)
	defer store.Close()

	assert.False(t, cache.IsAvailable(context.Background(), store, zapNop()))
}

func TestRedisStoreOperations(t *testing.T) {
	store, mr := cachetest.NewRedis(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	require.NoError(t, store.SetAndAdd(ctx, "a", []byte("1"), time.Minute, "idx:one", "idx:two"))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), time.Minute))

	assert.True(t, mr.Exists("a"))
	members, err := store.SMembers(ctx, "idx:two")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, members)

	vals, err := store.MGet(ctx, "a", "zzz", "b")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("1"), nil, []byte("2")}, vals)

	n, err := store.IncrBy(ctx, "a", 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	removed, err := store.Del(ctx, "a", "b", "zzz")
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	removed, err = store.Del(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

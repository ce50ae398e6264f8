// Package cachetest provides store fixtures for tests of the cache layer and
// its callers.
package cachetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"staffhub-api/internal/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Token is the access token the in-process server requires.
const Token = "test-token"

// NewRedis starts an in-process Redis server and returns a store client
// connected to it with the same credentials production uses.
func NewRedis(t *testing.T) (*cache.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	mr.RequireAuth(Token)

	store, err := cache.NewClient(cache.StoreConfig{
		URL:   "redis://" + mr.Addr(),
		Token: Token,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

// ErrDown is returned by every DownStore operation.
var ErrDown = errors.New("connection refused")

// DownStore simulates an unreachable store: every call fails.
type DownStore struct{}

func (DownStore) Ping(context.Context) error { return ErrDown }
func (DownStore) Get(context.Context, string) ([]byte, error) {
	return nil, ErrDown
}
func (DownStore) Set(context.Context, string, []byte, time.Duration) error { return ErrDown }
func (DownStore) SetAndAdd(context.Context, string, []byte, time.Duration, ...string) error {
	return ErrDown
}
func (DownStore) Del(context.Context, ...string) (int64, error)       { return 0, ErrDown }
func (DownStore) MGet(context.Context, ...string) ([][]byte, error)   { return nil, ErrDown }
func (DownStore) IncrBy(context.Context, string, int64) (int64, error) { return 0, ErrDown }
func (DownStore) Exists(context.Context, string) (bool, error)        { return false, ErrDown }
func (DownStore) SAdd(context.Context, string, ...string) error       { return ErrDown }
func (DownStore) SMembers(context.Context, string) ([]string, error)  { return nil, ErrDown }
func (DownStore) Close() error                                        { return nil }

// FlakyStore passes the liveness probe but fails every data operation, the
// shape of a store that drops mid-request.
type FlakyStore struct {
	DownStore
}

func (FlakyStore) Ping(context.Context) error { return nil }

var (
	_ cache.Store = DownStore{}
	_ cache.Store = FlakyStore{}
)

package cache

import (
	"context"
	"time"
)

// Store defines the key-value operations the cache layer needs from its
// backing store. The store has no pattern scan; group invalidation is built
// on top of SAdd/SMembers (see Accessor.DeleteByPattern).
type Store interface {
	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetAndAdd stores a value and adds its key to every index set in one round trip.
	SetAndAdd(ctx context.Context, key string, value []byte, ttl time.Duration, sets ...string) error

	// Del removes keys in a single batched round trip and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// MGet returns one entry per key; nil marks a missing key.
	MGet(ctx context.Context, keys ...string) ([][]byte, error)

	// IncrBy adds amount to the integer stored at key.
	IncrBy(ctx context.Context, key string, amount int64) (int64, error)

	// Exists checks if a key exists in the store.
	Exists(ctx context.Context, key string) (bool, error)

	// SAdd adds members to the set stored at key.
	SAdd(ctx context.Context, key string, members ...string) error

	// SMembers returns every member of the set stored at key.
	SMembers(ctx context.Context, key string) ([]string, error)

	Close() error
}

// Common cache errors
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"

	// ErrStoreUnavailable is returned by the raw Try* operations when the liveness probe fails.
	ErrStoreUnavailable CacheError = "cache store unavailable"

	// ErrMissingStoreURL and ErrMissingStoreToken are startup configuration errors.
	ErrMissingStoreURL   CacheError = "cache store url is not configured"
	ErrMissingStoreToken CacheError = "cache store token is not configured"
)

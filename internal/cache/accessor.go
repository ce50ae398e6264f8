package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Accessor provides the cache-aside primitives over a Store. Every operation
// probes the store first and degrades to direct computation (reads) or a
// logged no-op (writes, deletes) when the probe fails. Store errors never
// reach the caller; only programming errors such as malformed keys or
// off-tier TTLs do, as panics.
//
// Writes that should disappear on group invalidation must register in a
// pattern index, either through SetAndTrack or GetOrCompute with TrackIn.
// A key written with plain Set is invisible to DeleteByPattern and lives
// until its own TTL expires or it is deleted directly.
type Accessor struct {
	store  Store
	logger *zap.Logger

	// in-flight background write-backs
	writes sync.WaitGroup
}

// NewAccessor creates an accessor over the shared store handle.
func NewAccessor(store Store, logger *zap.Logger) *Accessor {
	return &Accessor{
		store:  store,
		logger: logger.Named("cache"),
	}
}

// Store returns the underlying store handle.
func (a *Accessor) Store() Store {
	return a.store
}

// IsAvailable runs the store liveness probe.
func (a *Accessor) IsAvailable(ctx context.Context) bool {
	return probe(ctx, a.store, a.logger)
}

// Option adjusts a single GetOrCompute call.
type Option func(*options)

type options struct {
	patterns []string
}

// TrackIn registers the key written on a miss in the given pattern indexes.
func TrackIn(patterns ...string) Option {
	return func(o *options) {
		o.patterns = append(o.patterns, patterns...)
	}
}

// GetOrCompute returns the cached value for key, or calls fn and schedules a
// background write-back of its result. The caller never waits on the write.
// Errors from fn are returned as-is and nothing is cached. Concurrent misses
// on the same key each call fn; there is no request coalescing.
func GetOrCompute[T any](ctx context.Context, a *Accessor, key string, ttl TTL, fn func(context.Context) (T, error), opts ...Option) (T, error) {
	expiry := ttl.Duration()

	if !a.IsAvailable(ctx) {
		LookupsTotal.WithLabelValues("bypass").Inc()
		return fn(ctx)
	}

	var cached T
	if hit := a.read(ctx, key, &cached); hit {
		return cached, nil
	}

	value, err := fn(ctx)
	if err != nil {
		return value, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	data, err := json.Marshal(value)
	if err != nil {
		a.logger.Warn("cache write-back skipped: encode failed", zap.String("key", key), zap.Error(err))
		return value, nil
	}
	a.writeBack(ctx, key, data, expiry, o.patterns)

	return value, nil
}

// read performs the lookup phase. Any failure is treated as a miss.
func (a *Accessor) read(ctx context.Context, key string, dst any) bool {
	data, err := a.store.Get(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, ErrCacheMiss):
		a.logger.Debug("cache MISS", zap.String("key", key))
		LookupsTotal.WithLabelValues("miss").Inc()
		return false
	default:
		a.logger.Warn("cache read failed, computing directly", zap.String("key", key), zap.Error(err))
		LookupsTotal.WithLabelValues("error").Inc()
		StoreErrorsTotal.WithLabelValues("get").Inc()
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		a.logger.Warn("cache entry undecodable, computing directly", zap.String("key", key), zap.Error(err))
		LookupsTotal.WithLabelValues("error").Inc()
		return false
	}

	a.logger.Debug("cache HIT", zap.String("key", key))
	LookupsTotal.WithLabelValues("hit").Inc()
	return true
}

// writeBack stores data on a separate goroutine, detached from the caller's
// cancellation. Failures are only logged.
func (a *Accessor) writeBack(ctx context.Context, key string, data []byte, ttl time.Duration, patterns []string) {
	bg := context.WithoutCancel(ctx)

	a.writes.Add(1)
	go func() {
		defer a.writes.Done()

		var err error
		if len(patterns) > 0 {
			err = a.store.SetAndAdd(bg, key, data, ttl, patterns...)
		} else {
			err = a.store.Set(bg, key, data, ttl)
		}
		if err != nil {
			a.logger.Warn("cache write-back failed", zap.String("key", key), zap.Error(err))
			StoreErrorsTotal.WithLabelValues("set").Inc()
		}
	}()
}

// Wait blocks until every background write-back started so far has finished.
func (a *Accessor) Wait() {
	a.writes.Wait()
}

// Set stores value under key. Best effort.
func (a *Accessor) Set(ctx context.Context, key string, value any, ttl TTL) {
	a.SetAndTrack(ctx, key, value, ttl)
}

// SetAndTrack stores value under key and registers key in each pattern index
// within the same round trip. Best effort.
func (a *Accessor) SetAndTrack(ctx context.Context, key string, value any, ttl TTL, patterns ...string) {
	expiry := ttl.Duration()

	if !a.IsAvailable(ctx) {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		a.logger.Warn("cache set skipped: encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	if len(patterns) > 0 {
		err = a.store.SetAndAdd(ctx, key, data, expiry, patterns...)
	} else {
		err = a.store.Set(ctx, key, data, expiry)
	}
	if err != nil {
		a.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		StoreErrorsTotal.WithLabelValues("set").Inc()
	}
}

// Delete removes key. Best effort.
func (a *Accessor) Delete(ctx context.Context, key string) {
	if !a.IsAvailable(ctx) {
		return
	}
	if _, err := a.TryDelete(ctx, key); err != nil {
		a.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// TryDelete removes keys in one batched round trip and reports store errors.
// It does not probe; callers decide availability once per batch of work.
func (a *Accessor) TryDelete(ctx context.Context, keys ...string) (int64, error) {
	n, err := a.store.Del(ctx, keys...)
	if err != nil {
		StoreErrorsTotal.WithLabelValues("del").Inc()
		return 0, err
	}
	return n, nil
}

// TrackKeyInPattern adds key to the pattern's member index.
func (a *Accessor) TrackKeyInPattern(ctx context.Context, key, pattern string) {
	if !a.IsAvailable(ctx) {
		return
	}
	if err := a.store.SAdd(ctx, pattern, key); err != nil {
		a.logger.Warn("pattern tracking failed",
			zap.String("key", key), zap.String("pattern", pattern), zap.Error(err))
		StoreErrorsTotal.WithLabelValues("sadd").Inc()
	}
}

// DeleteByPattern deletes every key registered under pattern, then the index
// itself, and returns the number of member keys invalidated. It returns 0
// when nothing is tracked or the store is unavailable.
func (a *Accessor) DeleteByPattern(ctx context.Context, pattern string) int64 {
	if !a.IsAvailable(ctx) {
		return 0
	}
	n, err := a.TryDeleteByPattern(ctx, pattern)
	if err != nil {
		a.logger.Warn("pattern invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
	return n
}

// TryDeleteByPattern is DeleteByPattern without the probe, reporting store
// errors. The three steps (read members, delete members, delete index) are
// not transactional; a failure after the member delete leaves an index that
// the next tracked write simply grows again.
func (a *Accessor) TryDeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	members, err := a.store.SMembers(ctx, pattern)
	if err != nil {
		StoreErrorsTotal.WithLabelValues("smembers").Inc()
		return 0, fmt.Errorf("failed to read pattern index %s: %w", pattern, err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	if _, err := a.store.Del(ctx, members...); err != nil {
		StoreErrorsTotal.WithLabelValues("del").Inc()
		return 0, fmt.Errorf("failed to delete %d members of %s: %w", len(members), pattern, err)
	}

	removed := int64(len(members))
	PatternKeysDeletedTotal.Add(float64(removed))

	if _, err := a.store.Del(ctx, pattern); err != nil {
		StoreErrorsTotal.WithLabelValues("del").Inc()
		return removed, fmt.Errorf("failed to clear pattern index %s: %w", pattern, err)
	}

	a.logger.Debug("pattern invalidated", zap.String("pattern", pattern), zap.Int64("keys", removed))
	return removed, nil
}

// MultiGet reads keys in one round trip. The result always has len(keys)
// entries; misses, undecodable entries and an unavailable store yield nil.
func MultiGet[T any](ctx context.Context, a *Accessor, keys []string) []*T {
	out := make([]*T, len(keys))
	if len(keys) == 0 || !a.IsAvailable(ctx) {
		return out
	}

	vals, err := a.store.MGet(ctx, keys...)
	if err != nil {
		a.logger.Warn("cache multi-get failed", zap.Int("keys", len(keys)), zap.Error(err))
		StoreErrorsTotal.WithLabelValues("mget").Inc()
		return out
	}

	for i, data := range vals {
		if i >= len(out) || data == nil {
			continue
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			a.logger.Warn("cache entry undecodable", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		out[i] = &v
	}
	return out
}

// Increment adds amount to the counter at key and returns the new value, or
// 0 when the store cannot be reached.
func (a *Accessor) Increment(ctx context.Context, key string, amount int64) int64 {
	if !a.IsAvailable(ctx) {
		return 0
	}
	n, err := a.store.IncrBy(ctx, key, amount)
	if err != nil {
		a.logger.Warn("cache increment failed", zap.String("key", key), zap.Error(err))
		StoreErrorsTotal.WithLabelValues("incr").Inc()
		return 0
	}
	return n
}

// Exists reports whether key is present; false when the store cannot be reached.
func (a *Accessor) Exists(ctx context.Context, key string) bool {
	if !a.IsAvailable(ctx) {
		return false
	}
	ok, err := a.store.Exists(ctx, key)
	if err != nil {
		a.logger.Warn("cache exists failed", zap.String("key", key), zap.Error(err))
		StoreErrorsTotal.WithLabelValues("exists").Inc()
		return false
	}
	return ok
}

package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// cacheEntry represents a cached value with expiration.
type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// isExpired checks if the entry has expired. A zero expiry never expires.
func (e *cacheEntry) isExpired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is an in-memory implementation of Store.
// Use this for development/testing or single-instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	sets    map[string]map[string]struct{}

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewMemoryStore creates a new in-memory store with automatic cleanup.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries:         make(map[string]*cacheEntry),
		sets:            make(map[string]map[string]struct{}),
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go s.cleanup()

	return s
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Get retrieves a value by key.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || entry.isExpired(time.Now()) {
		return nil, ErrCacheMiss
	}

	result := make([]byte, len(entry.value))
	copy(result, entry.value)
	return result, nil
}

// Set stores a value with the given TTL. A zero TTL keeps the value until deleted.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setLocked(key, value, ttl)
	return nil
}

func (s *MemoryStore) SetAndAdd(ctx context.Context, key string, value []byte, ttl time.Duration, sets ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setLocked(key, value, ttl)
	for _, set := range sets {
		s.saddLocked(set, key)
	}
	return nil
}

func (s *MemoryStore) setLocked(key string, value []byte, ttl time.Duration) {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	entry := &cacheEntry{value: valueCopy}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.entries[key] = entry
}

// Del removes plain keys and sets alike.
func (s *MemoryStore) Del(ctx context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var removed int64
	for _, key := range keys {
		if entry, ok := s.entries[key]; ok {
			if !entry.isExpired(now) {
				removed++
			}
			delete(s.entries, key)
		}
		if _, ok := s.sets[key]; ok {
			delete(s.sets, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, key := range keys {
		if v, err := s.Get(ctx, key); err == nil {
			out[i] = v
		}
	}
	return out, nil
}

func (s *MemoryStore) IncrBy(ctx context.Context, key string, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	var expiresAt time.Time
	if entry, ok := s.entries[key]; ok && !entry.isExpired(time.Now()) {
		n, err := strconv.ParseInt(string(entry.value), 10, 64)
		if err != nil {
			return 0, CacheError("value is not an integer")
		}
		current = n
		expiresAt = entry.expiresAt
	}

	current += amount
	s.entries[key] = &cacheEntry{
		value:     []byte(strconv.FormatInt(current, 10)),
		expiresAt: expiresAt,
	}
	return current, nil
}

// Exists checks if a key exists and is not expired.
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.entries[key]; ok && !entry.isExpired(time.Now()) {
		return true, nil
	}
	_, ok := s.sets[key]
	return ok, nil
}

func (s *MemoryStore) SAdd(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range members {
		s.saddLocked(key, m)
	}
	return nil
}

func (s *MemoryStore) saddLocked(key, member string) {
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	set[member] = struct{}{}
}

func (s *MemoryStore) SMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.sets[key]
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	return members, nil
}

// Close stops the background cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
	return nil
}

// cleanup periodically removes expired entries.
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stopCleanup:
			return
		}
	}
}

// removeExpired removes all expired entries. Index sets have no TTL.
func (s *MemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, entry := range s.entries {
		if entry.isExpired(now) {
			delete(s.entries, key)
		}
	}
}

var _ Store = (*MemoryStore)(nil)

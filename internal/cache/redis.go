package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Connection pool defaults.
const (
	DefaultPoolSize     = 20
	DefaultMinIdleConns = 5
	DefaultIOTimeout    = 10 * time.Second
)

// StoreConfig holds the remote store credentials.
type StoreConfig struct {
	URL          string // redis:// or rediss:// endpoint
	Token        string // access token, sent as the connection password
	PoolSize     int
	MinIdleConns int
}

// RedisStore implements Store on a single shared go-redis client. The client
// is safe for concurrent use and dials lazily on first command.
type RedisStore struct {
	client *redis.Client
}

// NewClient builds the store client from credentials. Missing credentials are
// a configuration error and must stop startup.
func NewClient(cfg StoreConfig, logger *zap.Logger) (*RedisStore, error) {
	if cfg.URL == "" {
		return nil, ErrMissingStoreURL
	}
	if cfg.Token == "" {
		return nil, ErrMissingStoreToken
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cache store url: %w", err)
	}
	opts.Password = cfg.Token
	opts.PoolSize = cfg.PoolSize
	if opts.PoolSize == 0 {
		opts.PoolSize = DefaultPoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = DefaultMinIdleConns
	}
	opts.ReadTimeout = DefaultIOTimeout
	opts.WriteTimeout = DefaultIOTimeout

	logger.Named("store").Info("cache store client configured",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Int("pool_size", opts.PoolSize))

	return &RedisStore{client: redis.NewClient(opts)}, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) SetAndAdd(ctx context.Context, key string, value []byte, ttl time.Duration, sets ...string) error {
	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, value, ttl)
	for _, set := range sets {
		pipe.SAdd(ctx, set, key)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Del issues one DEL per key inside a single pipeline.
func (s *RedisStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Del(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	var removed int64
	for _, cmd := range cmds {
		removed += cmd.Val()
	}
	return removed, nil
}

func (s *RedisStore) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([][]byte, len(keys))
	for i, v := range vals {
		switch val := v.(type) {
		case string:
			out[i] = []byte(val)
		case []byte:
			out[i] = val
		}
	}
	return out, nil
}

func (s *RedisStore) IncrBy(ctx context.Context, key string, amount int64) (int64, error) {
	return s.client.IncrBy(ctx, key, amount).Result()
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return s.client.SAdd(ctx, key, args...).Err()
}

func (s *RedisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)

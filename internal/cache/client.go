package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Store types accepted by Open.
const (
	TypeRedis  = "redis"
	TypeMemory = "memory"
)

// Open constructs the one store handle the process shares. The memory store
// is meant for local development and single-instance runs.
func Open(storeType string, cfg StoreConfig, logger *zap.Logger) (Store, error) {
	switch storeType {
	case TypeRedis, "":
		return NewClient(cfg, logger)
	case TypeMemory:
		logger.Named("store").Info("using in-process memory store")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", storeType)
	}
}

// IsAvailable runs the liveness probe against any store. Errors are logged
// and reported as false.
func IsAvailable(ctx context.Context, s Store, logger *zap.Logger) bool {
	return probe(ctx, s, logger)
}

func probe(ctx context.Context, s Store, logger *zap.Logger) bool {
	if s == nil {
		return false
	}
	if err := s.Ping(ctx); err != nil {
		logger.Debug("cache store ping failed", zap.Error(err))
		return false
	}
	return true
}

package main

import (
	"context"
	"fmt"

	"staffhub-api/internal/cache"
	"staffhub-api/internal/config"
	"staffhub-api/internal/repository"
	"staffhub-api/internal/service"

	"go.uber.org/zap"
)

// app holds the process-wide components shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	store       cache.Store
	repo        repository.HRRepository
	cache       *cache.Accessor
	invalidator *service.Invalidator
	hr          *service.HRService
	warmer      *service.Warmer
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.App.IsProduction() && !cfg.App.Debug {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	logger = logger.With(zap.String("service", cfg.App.Name))

	repo, err := repository.Open(ctx, cfg.Database.Type, cfg.Database.Source())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Database.Type, err)
	}
	logger.Info("source-of-truth database connected", zap.String("type", cfg.Database.Type))

	store, err := cache.Open(cfg.Cache.Type, cache.StoreConfig{
		URL:          cfg.Cache.StoreURL,
		Token:        cfg.Cache.StoreToken,
		PoolSize:     cfg.Cache.PoolSize,
		MinIdleConns: cfg.Cache.MinIdleConns,
	}, logger)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to create cache store: %w", err)
	}

	accessor := cache.NewAccessor(store, logger)
	if !accessor.IsAvailable(ctx) {
		// not fatal: every read computes directly until the store comes back
		logger.Warn("cache store unreachable at startup", zap.String("type", cfg.Cache.Type))
	}

	invalidator := service.NewInvalidator(accessor, logger)

	return &app{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		repo:        repo,
		cache:       accessor,
		invalidator: invalidator,
		hr:          service.NewHRService(repo, accessor, invalidator, logger),
		warmer: service.NewWarmer(repo, accessor, service.WarmingConfig{
			Interval:    cfg.Warming.Interval,
			TenantDelay: cfg.Warming.TenantDelay,
			RunTimeout:  cfg.Warming.RunTimeout,
		}, logger),
	}, nil
}

// close drains in-flight cache write-backs before releasing connections.
func (a *app) close() {
	a.cache.Wait()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("cache store close failed", zap.Error(err))
	}
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("database close failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

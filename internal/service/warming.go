package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"staffhub-api/internal/cache"
	"staffhub-api/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// WarmedTenantsTotal counts per-tenant warming attempts by outcome.
var WarmedTenantsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "staffhub_cache_warmed_tenants_total",
		Help: "Per-tenant cache warming attempts by outcome",
	},
	[]string{"outcome"},
)

// WarmingConfig holds configuration for the warming scheduler.
type WarmingConfig struct {
	// Interval is how often a full warming pass runs.
	// Default: 30 minutes
	Interval time.Duration

	// TenantDelay is the pause between two tenants of one pass, bounding the
	// load a pass puts on the source-of-truth database.
	// Default: 1 second
	TenantDelay time.Duration

	// RunTimeout bounds one full pass.
	// Default: 10 minutes
	RunTimeout time.Duration
}

// DefaultWarmingConfig returns default warming configuration.
func DefaultWarmingConfig() WarmingConfig {
	return WarmingConfig{
		Interval:    30 * time.Minute,
		TenantDelay: time.Second,
		RunTimeout:  10 * time.Minute,
	}
}

// WarmReport summarizes one warming pass.
type WarmReport struct {
	Tenants int      `json:"tenants"`
	Warmed  int      `json:"warmed"`
	Failed  []string `json:"failed,omitempty"`
	// Skipped counts tenants not attempted because the cache store was down.
	Skipped  int           `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Warmer precomputes frequently read aggregates for every active tenant.
// Tenants are warmed one at a time with a fixed delay between them; a pass
// is never parallelized across tenants.
type Warmer struct {
	repo   repository.HRReader
	cache  *cache.Accessor
	config WarmingConfig
	logger *zap.Logger

	ticker    *time.Ticker
	stopCh    chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
	isRunning bool
	stopped   bool
	mu        sync.Mutex
}

// NewWarmer creates a new warming scheduler.
func NewWarmer(repo repository.HRReader, accessor *cache.Accessor, config WarmingConfig, logger *zap.Logger) *Warmer {
	defaults := DefaultWarmingConfig()
	if config.Interval == 0 {
		config.Interval = defaults.Interval
	}
	if config.RunTimeout == 0 {
		config.RunTimeout = defaults.RunTimeout
	}

	return &Warmer{
		repo:   repo,
		cache:  accessor,
		config: config,
		logger: logger.Named("warmer"),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// WarmTenant recomputes the tenant's active employee list, headcount,
// pending leave count and settings from the source of truth and writes them
// into the cache. Any read failure aborts this tenant. When the cache store
// is down nothing is read and the error wraps cache.ErrStoreUnavailable.
func (w *Warmer) WarmTenant(ctx context.Context, tenantID string) error {
	if !w.cache.IsAvailable(ctx) {
		return fmt.Errorf("tenant %s: %w", tenantID, cache.ErrStoreUnavailable)
	}
	return w.warmTenant(ctx, tenantID)
}

func (w *Warmer) warmTenant(ctx context.Context, tenantID string) error {
	employees, err := w.repo.ListActiveEmployees(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("employees: %w", err)
	}
	headcount, err := w.repo.CountActiveEmployees(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("headcount: %w", err)
	}
	pending, err := w.repo.CountPendingLeave(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("pending leave: %w", err)
	}
	settings, err := w.repo.GetSettings(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	key, ttl, pattern := activeEmployeesView(tenantID)
	w.cache.SetAndTrack(ctx, key, employees, ttl, pattern)

	key, ttl, pattern = headcountView(tenantID)
	w.cache.SetAndTrack(ctx, key, headcount, ttl, pattern)

	key, ttl, pattern = pendingLeaveView(tenantID)
	w.cache.SetAndTrack(ctx, key, pending, ttl, pattern)

	key, ttl = settingsView(tenantID)
	w.cache.Set(ctx, key, settings, ttl)

	w.logger.Debug("tenant warmed",
		zap.String("tenant_id", tenantID),
		zap.Int("employees", len(employees)),
		zap.Int64("pending_leave", pending))
	return nil
}

// WarmAll warms every active tenant sequentially, pausing TenantDelay after
// each tenant before starting the next. A tenant that fails is logged and
// skipped; the pass continues with the next one. When the cache store is down
// no tenant is attempted: all are reported as skipped and the error wraps
// cache.ErrStoreUnavailable.
func (w *Warmer) WarmAll(ctx context.Context) (WarmReport, error) {
	start := time.Now()

	tenants, err := w.repo.ListActiveTenants(ctx)
	if err != nil {
		return WarmReport{}, fmt.Errorf("failed to list tenants: %w", err)
	}

	report := WarmReport{Tenants: len(tenants)}

	if len(tenants) > 0 && !w.cache.IsAvailable(ctx) {
		report.Skipped = len(tenants)
		report.Duration = time.Since(start)
		WarmedTenantsTotal.WithLabelValues("skipped").Add(float64(len(tenants)))
		w.logger.Warn("cache store unavailable, warming pass skipped",
			zap.Int("tenants", len(tenants)))
		return report, fmt.Errorf("warming pass: %w", cache.ErrStoreUnavailable)
	}

	for i, t := range tenants {
		if i > 0 {
			if err := pause(ctx, w.config.TenantDelay); err != nil {
				w.logger.Warn("warming pass interrupted", zap.Error(err))
				break
			}
		}

		if err := w.warmTenant(ctx, t.ID); err != nil {
			w.logger.Error("tenant warming failed", zap.String("tenant_id", t.ID), zap.Error(err))
			WarmedTenantsTotal.WithLabelValues("failed").Inc()
			report.Failed = append(report.Failed, t.ID)
			continue
		}
		WarmedTenantsTotal.WithLabelValues("ok").Inc()
		report.Warmed++
	}

	report.Duration = time.Since(start)
	w.logger.Info("warming pass complete",
		zap.Int("tenants", report.Tenants),
		zap.Int("warmed", report.Warmed),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// pause blocks for d, measured from the call, or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start begins the warming scheduler. The first pass runs immediately.
// A stopped scheduler cannot be restarted.
func (w *Warmer) Start() {
	w.mu.Lock()
	if w.isRunning || w.stopped {
		w.mu.Unlock()
		return
	}
	w.isRunning = true
	w.ticker = time.NewTicker(w.config.Interval)
	w.mu.Unlock()

	w.logger.Info("warming scheduler started",
		zap.Duration("interval", w.config.Interval),
		zap.Duration("tenant_delay", w.config.TenantDelay))

	go w.run()
}

// run is the main scheduling loop.
func (w *Warmer) run() {
	defer close(w.done)

	w.runPass()
	for {
		select {
		case <-w.ticker.C:
			w.runPass()
		case <-w.stopCh:
			w.logger.Info("warming scheduler stopped")
			return
		}
	}
}

func (w *Warmer) runPass() {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.RunTimeout)
	defer cancel()

	// Stop interrupts an in-flight pass between tenants.
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if _, err := w.WarmAll(ctx); err != nil {
		w.logger.Error("warming pass failed", zap.Error(err))
	}
}

// Stop stops the warming scheduler and returns once an in-flight pass has
// finished, so the store and database can be closed right after it.
func (w *Warmer) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		defer w.mu.Unlock()

		if w.ticker != nil {
			w.ticker.Stop()
		}
		close(w.stopCh)
		w.isRunning = false
		w.stopped = true
	})

	// a scheduler that was never started has no loop to wait for
	w.mu.Lock()
	started := w.ticker != nil
	w.mu.Unlock()
	if started {
		<-w.done
	}
}

// RunNow triggers an immediate warming pass, outside the schedule.
func (w *Warmer) RunNow(ctx context.Context) (WarmReport, error) {
	ctx, cancel := context.WithTimeout(ctx, w.config.RunTimeout)
	defer cancel()

	return w.WarmAll(ctx)
}

package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"staffhub-api/internal/cache"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// InvalidationsTotal counts orchestrated invalidations by event and outcome.
var InvalidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "staffhub_cache_invalidations_total",
		Help: "Invalidation fan-outs by domain event and outcome",
	},
	[]string{"event", "outcome"},
)

// InvalidationResult summarizes one fan-out.
type InvalidationResult struct {
	// Removed counts keys deleted: direct keys that existed plus pattern members.
	Removed int64 `json:"removed"`
	// Branches is the number of deletions attempted.
	Branches int `json:"branches"`
	// Failed counts branches whose deletion did not go through.
	Failed int `json:"failed"`
}

// Invalidator fans out cache deletions for domain mutations. Each method
// issues a fixed set of deletions concurrently; a failed branch is logged
// and does not stop the others. Nothing is retried or rolled back.
type Invalidator struct {
	cache  *cache.Accessor
	logger *zap.Logger

	// an outage skips every fan-out; warn once per interval, not per mutation
	unavailableLog *rate.Sometimes
}

// NewInvalidator creates an invalidation orchestrator.
func NewInvalidator(accessor *cache.Accessor, logger *zap.Logger) *Invalidator {
	return &Invalidator{
		cache:          accessor,
		logger:         logger.Named("invalidator"),
		unavailableLog: &rate.Sometimes{First: 1, Interval: 30 * time.Second},
	}
}

// branch is one deletion in a fan-out: either a direct key or a pattern group.
type branch struct {
	key     string
	pattern string
}

func keyBranch(key string) branch         { return branch{key: key} }
func patternBranch(pattern string) branch { return branch{pattern: pattern} }

func (b branch) String() string {
	if b.pattern != "" {
		return b.pattern
	}
	return b.key
}

func (inv *Invalidator) run(ctx context.Context, event string, branches []branch) InvalidationResult {
	result := InvalidationResult{Branches: len(branches)}

	if !inv.cache.IsAvailable(ctx) {
		inv.unavailableLog.Do(func() {
			inv.logger.Warn("cache store unavailable, invalidation skipped",
				zap.String("event", event), zap.Int("branches", len(branches)), zap.Error(cache.ErrStoreUnavailable))
		})
		result.Failed = len(branches)
		InvalidationsTotal.WithLabelValues(event, "skipped").Inc()
		return result
	}

	var (
		removed int64
		failed  int32
		mu      sync.Mutex
		errs    []zap.Field
	)

	var g errgroup.Group
	for _, b := range branches {
		g.Go(func() error {
			var n int64
			var err error
			if b.pattern != "" {
				n, err = inv.cache.TryDeleteByPattern(ctx, b.pattern)
			} else {
				n, err = inv.cache.TryDelete(ctx, b.key)
			}
			atomic.AddInt64(&removed, n)
			if err != nil {
				atomic.AddInt32(&failed, 1)
				mu.Lock()
				errs = append(errs, zap.NamedError(b.String(), err))
				mu.Unlock()
			}
			// branch failures are independent; never cancel siblings
			return nil
		})
	}
	_ = g.Wait()

	result.Removed = removed
	result.Failed = int(failed)

	if result.Failed > 0 {
		inv.logger.Warn("invalidation partially failed",
			append([]zap.Field{zap.String("event", event), zap.Int("failed", result.Failed), zap.Int("branches", result.Branches)}, errs...)...)
		InvalidationsTotal.WithLabelValues(event, "partial").Inc()
	} else {
		inv.logger.Debug("invalidation complete",
			zap.String("event", event), zap.Int64("removed", result.Removed), zap.Int("branches", result.Branches))
		InvalidationsTotal.WithLabelValues(event, "ok").Inc()
	}
	return result
}

// InvalidateEmployee runs after an employee record changes.
func (inv *Invalidator) InvalidateEmployee(ctx context.Context, employeeID, tenantID string) InvalidationResult {
	return inv.run(ctx, "employee", []branch{
		keyBranch(cache.EmployeeKey(employeeID)),
		keyBranch(cache.EmployeesKey(tenantID)),
		patternBranch(cache.Pattern(cache.PrefixEmployees, tenantID)),
		patternBranch(cache.Pattern(cache.PrefixAnalytics, tenantID)),
		patternBranch(cache.Pattern(cache.PrefixDashboard, tenantID)),
	})
}

// InvalidateLeave runs after a leave request is created or decided.
func (inv *Invalidator) InvalidateLeave(ctx context.Context, tenantID string) InvalidationResult {
	return inv.run(ctx, "leave", []branch{
		keyBranch(cache.LeaveKey(tenantID)),
		patternBranch(cache.Pattern(cache.PrefixLeave, tenantID)),
		patternBranch(cache.Pattern(cache.PrefixAnalytics, tenantID)),
		patternBranch(cache.Pattern(cache.PrefixDashboard, tenantID)),
	})
}

// InvalidatePayroll runs after a payroll period changes. periodID may be empty.
func (inv *Invalidator) InvalidatePayroll(ctx context.Context, tenantID, periodID string) InvalidationResult {
	branches := []branch{
		keyBranch(cache.PayrollKey(tenantID)),
		patternBranch(cache.Pattern(cache.PrefixPayroll, tenantID)),
		patternBranch(cache.Pattern(cache.PrefixDashboard, tenantID)),
	}
	if periodID != "" {
		branches = append(branches, keyBranch(cache.PayrollKey(tenantID, periodID)))
	}
	return inv.run(ctx, "payroll", branches)
}

// InvalidateAttendance runs after an attendance record changes. date may be empty.
// Per-day attendance keys are grouped under the tenant's attendance pattern.
func (inv *Invalidator) InvalidateAttendance(ctx context.Context, employeeID, tenantID, date string) InvalidationResult {
	branches := []branch{
		keyBranch(cache.AttendanceKey(employeeID)),
		patternBranch(cache.Pattern(cache.PrefixAttendance, tenantID)),
		patternBranch(cache.Pattern(cache.PrefixAnalytics, tenantID)),
		patternBranch(cache.Pattern(cache.PrefixDashboard, tenantID)),
	}
	if date != "" {
		branches = append(branches, keyBranch(cache.AttendanceKey(employeeID, date)))
	}
	return inv.run(ctx, "attendance", branches)
}

// InvalidateDashboard drops one user's dashboard, or every dashboard of the
// tenant when userID is empty.
func (inv *Invalidator) InvalidateDashboard(ctx context.Context, tenantID, userID string) InvalidationResult {
	if userID != "" {
		return inv.run(ctx, "dashboard", []branch{keyBranch(cache.DashboardKey(tenantID, userID))})
	}
	return inv.run(ctx, "dashboard", []branch{patternBranch(cache.Pattern(cache.PrefixDashboard, tenantID))})
}

// InvalidateAnalytics drops one metric, or every tracked metric of the tenant
// when metric is empty. Dashboards aggregate analytics and go with them.
func (inv *Invalidator) InvalidateAnalytics(ctx context.Context, tenantID, metric string) InvalidationResult {
	branches := []branch{patternBranch(cache.Pattern(cache.PrefixDashboard, tenantID))}
	if metric != "" {
		branches = append(branches, keyBranch(cache.AnalyticsKey(tenantID, metric)))
	} else {
		branches = append(branches, patternBranch(cache.Pattern(cache.PrefixAnalytics, tenantID)))
	}
	return inv.run(ctx, "analytics", branches)
}

// InvalidateDepartment runs after a department is renamed, moved or deleted.
func (inv *Invalidator) InvalidateDepartment(ctx context.Context, departmentID, tenantID string) InvalidationResult {
	return inv.run(ctx, "department", []branch{
		keyBranch(cache.DepartmentKey(departmentID)),
		keyBranch(cache.EmployeesKey(tenantID)),
		patternBranch(cache.Pattern(cache.PrefixEmployees, tenantID)),
		patternBranch(cache.Pattern(cache.PrefixDashboard, tenantID)),
	})
}

// InvalidateSettings runs after tenant settings change.
func (inv *Invalidator) InvalidateSettings(ctx context.Context, tenantID string) InvalidationResult {
	return inv.run(ctx, "settings", []branch{
		keyBranch(cache.SettingsKey(tenantID)),
		patternBranch(cache.Pattern(cache.PrefixDashboard, tenantID)),
	})
}

// InvalidateTenant drops every tenant-scoped key and pattern group. It empties
// the tenant's cache entirely and is meant for rare destructive operations,
// not routine mutations.
func (inv *Invalidator) InvalidateTenant(ctx context.Context, tenantID string) InvalidationResult {
	inv.logger.Warn("invalidating entire tenant cache", zap.String("tenant_id", tenantID))

	branches := []branch{
		keyBranch(cache.EmployeesKey(tenantID)),
		keyBranch(cache.LeaveKey(tenantID)),
		keyBranch(cache.PayrollKey(tenantID)),
		keyBranch(cache.SettingsKey(tenantID)),
	}
	for _, prefix := range []string{
		cache.PrefixEmployees,
		cache.PrefixLeave,
		cache.PrefixPayroll,
		cache.PrefixAttendance,
		cache.PrefixAnalytics,
		cache.PrefixDashboard,
	} {
		branches = append(branches, patternBranch(cache.Pattern(prefix, tenantID)))
	}
	return inv.run(ctx, "tenant", branches)
}

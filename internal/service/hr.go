package service

import (
	"context"
	"errors"
	"fmt"

	"staffhub-api/internal/cache"
	"staffhub-api/internal/model"
	"staffhub-api/internal/repository"

	"go.uber.org/zap"
)

var (
	// ErrUnknownMetric is returned for analytics metrics the service does not compute.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrInvalidStatus is returned for employee statuses outside the model's set.
	ErrInvalidStatus = errors.New("invalid employee status")
)

// Cached views. Readers and the warmer share these so that writer and reader
// agree on key, tier, value shape and pattern group.
func activeEmployeesView(tenantID string) (string, cache.TTL, string) {
	return cache.EmployeesKey(tenantID), cache.TTLMedium, cache.Pattern(cache.PrefixEmployees, tenantID)
}

func headcountView(tenantID string) (string, cache.TTL, string) {
	return cache.AnalyticsKey(tenantID, cache.MetricHeadcount), cache.TTLLong, cache.Pattern(cache.PrefixAnalytics, tenantID)
}

func pendingLeaveView(tenantID string) (string, cache.TTL, string) {
	return cache.AnalyticsKey(tenantID, cache.MetricPendingLeave), cache.TTLShort, cache.Pattern(cache.PrefixAnalytics, tenantID)
}

func settingsView(tenantID string) (string, cache.TTL) {
	return cache.SettingsKey(tenantID), cache.TTLDay
}

// HRService serves the read paths of the HR application through the cache
// and routes mutations through the invalidator.
type HRService struct {
	repo        repository.HRRepository
	cache       *cache.Accessor
	invalidator *Invalidator
	logger      *zap.Logger
}

// NewHRService creates the HR read service.
func NewHRService(repo repository.HRRepository, accessor *cache.Accessor, invalidator *Invalidator, logger *zap.Logger) *HRService {
	return &HRService{
		repo:        repo,
		cache:       accessor,
		invalidator: invalidator,
		logger:      logger.Named("hr"),
	}
}

// GetEmployee returns one employee. Employee keys are not tenant-scoped and
// are dropped directly by InvalidateEmployee.
func (s *HRService) GetEmployee(ctx context.Context, employeeID string) (*model.Employee, error) {
	return cache.GetOrCompute(ctx, s.cache, cache.EmployeeKey(employeeID), cache.TTLLong,
		func(ctx context.Context) (*model.Employee, error) {
			return s.repo.GetEmployee(ctx, employeeID)
		})
}

// ListActiveEmployees returns the tenant's active employees.
func (s *HRService) ListActiveEmployees(ctx context.Context, tenantID string) ([]model.Employee, error) {
	key, ttl, pattern := activeEmployeesView(tenantID)
	return cache.GetOrCompute(ctx, s.cache, key, ttl,
		func(ctx context.Context) ([]model.Employee, error) {
			return s.repo.ListActiveEmployees(ctx, tenantID)
		}, cache.TrackIn(pattern))
}

// ListEmployees returns the tenant's employees matching filter, cached per
// distinct filter.
func (s *HRService) ListEmployees(ctx context.Context, tenantID string, filter repository.EmployeeFilter) ([]model.Employee, error) {
	if filter == (repository.EmployeeFilter{Status: model.EmployeeActive}) {
		return s.ListActiveEmployees(ctx, tenantID)
	}

	key := cache.EmployeesKey(tenantID, cache.FilterHash(filter))
	return cache.GetOrCompute(ctx, s.cache, key, cache.TTLMedium,
		func(ctx context.Context) ([]model.Employee, error) {
			return s.repo.ListEmployees(ctx, tenantID, filter)
		}, cache.TrackIn(cache.Pattern(cache.PrefixEmployees, tenantID)))
}

// Metric returns one analytics aggregate.
func (s *HRService) Metric(ctx context.Context, tenantID, metric string) (model.MetricValue, error) {
	var (
		key     string
		ttl     cache.TTL
		pattern string
		compute func(context.Context, string) (int64, error)
	)
	switch metric {
	case cache.MetricHeadcount:
		key, ttl, pattern = headcountView(tenantID)
		compute = s.repo.CountActiveEmployees
	case cache.MetricPendingLeave:
		key, ttl, pattern = pendingLeaveView(tenantID)
		compute = s.repo.CountPendingLeave
	default:
		return model.MetricValue{}, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}

	value, err := cache.GetOrCompute(ctx, s.cache, key, ttl,
		func(ctx context.Context) (int64, error) {
			return compute(ctx, tenantID)
		}, cache.TrackIn(pattern))
	if err != nil {
		return model.MetricValue{}, err
	}
	return model.MetricValue{TenantID: tenantID, Metric: metric, Value: value}, nil
}

// Settings returns the tenant settings.
func (s *HRService) Settings(ctx context.Context, tenantID string) (*model.TenantSettings, error) {
	key, ttl := settingsView(tenantID)
	return cache.GetOrCompute(ctx, s.cache, key, ttl,
		func(ctx context.Context) (*model.TenantSettings, error) {
			return s.repo.GetSettings(ctx, tenantID)
		})
}

// UpdateEmployeeStatus writes the new status to the source of truth and then
// invalidates everything derived from the employee.
func (s *HRService) UpdateEmployeeStatus(ctx context.Context, tenantID, employeeID, status string) (InvalidationResult, error) {
	if !model.ValidEmployeeStatus(status) {
		return InvalidationResult{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if err := s.repo.UpdateEmployeeStatus(ctx, tenantID, employeeID, status); err != nil {
		return InvalidationResult{}, err
	}

	result := s.invalidator.InvalidateEmployee(ctx, employeeID, tenantID)
	s.logger.Info("employee status updated",
		zap.String("tenant_id", tenantID),
		zap.String("employee_id", employeeID),
		zap.String("status", status),
		zap.Int64("cache_keys_removed", result.Removed))
	return result, nil
}

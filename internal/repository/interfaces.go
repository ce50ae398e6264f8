package repository

import (
	"context"
	"errors"

	"staffhub-api/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// EmployeeFilter narrows an employee listing. Zero fields match everything.
type EmployeeFilter struct {
	DepartmentID string `json:"department_id,omitempty"`
	Status       string `json:"status,omitempty"`
}

// HRReader is the read side of the source of truth. Every method is a pure
// read: the cache layer may call it redundantly under concurrent misses.
type HRReader interface {
	// ListActiveTenants returns every tenant eligible for cache warming.
	ListActiveTenants(ctx context.Context) ([]model.Tenant, error)

	// ListActiveEmployees returns the tenant's active employees.
	ListActiveEmployees(ctx context.Context, tenantID string) ([]model.Employee, error)

	// ListEmployees returns the tenant's employees matching filter.
	ListEmployees(ctx context.Context, tenantID string, filter EmployeeFilter) ([]model.Employee, error)

	// GetEmployee returns one employee or ErrNotFound.
	GetEmployee(ctx context.Context, employeeID string) (*model.Employee, error)

	// CountActiveEmployees returns the tenant's active headcount.
	CountActiveEmployees(ctx context.Context, tenantID string) (int64, error)

	// CountPendingLeave returns the number of leave requests awaiting a decision.
	CountPendingLeave(ctx context.Context, tenantID string) (int64, error)

	// GetSettings returns the tenant settings, or defaults when none are stored.
	GetSettings(ctx context.Context, tenantID string) (*model.TenantSettings, error)
}

// HRRepository adds the mutations that drive cache invalidation.
type HRRepository interface {
	HRReader

	// UpdateEmployeeStatus changes an employee's status. Returns ErrNotFound
	// when the employee does not belong to the tenant.
	UpdateEmployeeStatus(ctx context.Context, tenantID, employeeID, status string) error

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// Close closes the repository connection.
	Close() error
}

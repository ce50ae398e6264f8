package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"staffhub-api/internal/model"
)

// SQL dialects supported by SQLHRRepository.
const (
	DialectSQLite   = "sqlite"
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
)

// schema is portable across the three dialects; index statements are
// issued separately because MySQL lacks CREATE INDEX IF NOT EXISTS.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS employees (
		id VARCHAR(64) PRIMARY KEY,
		tenant_id VARCHAR(64) NOT NULL,
		department_id VARCHAR(64) NOT NULL DEFAULT '',
		first_name VARCHAR(255) NOT NULL,
		last_name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		position VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(32) NOT NULL,
		hired_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS leave_requests (
		id VARCHAR(64) PRIMARY KEY,
		tenant_id VARCHAR(64) NOT NULL,
		employee_id VARCHAR(64) NOT NULL,
		status VARCHAR(32) NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tenant_settings (
		tenant_id VARCHAR(64) PRIMARY KEY,
		timezone VARCHAR(64) NOT NULL,
		currency VARCHAR(8) NOT NULL,
		work_week_days INTEGER NOT NULL,
		leave_approval_required BOOLEAN NOT NULL
	)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_employees_tenant_status ON employees(tenant_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_leave_tenant_status ON leave_requests(tenant_id, status)`,
}

// DefaultSettings are returned for tenants that never saved settings.
func DefaultSettings(tenantID string) *model.TenantSettings {
	return &model.TenantSettings{
		TenantID:              tenantID,
		Timezone:              "UTC",
		Currency:              "USD",
		WorkWeekDays:          5,
		LeaveApprovalRequired: true,
	}
}

// SQLHRRepository implements HRRepository over database/sql for every
// supported dialect. Queries are written with ? placeholders and rebound
// for PostgreSQL.
type SQLHRRepository struct {
	db      *sql.DB
	dialect string
}

// NewSQLHRRepository wraps an open database handle.
func NewSQLHRRepository(db *sql.DB, dialect string) *SQLHRRepository {
	return &SQLHRRepository{db: db, dialect: dialect}
}

// CreateSchema creates the HR tables if they do not exist.
func (r *SQLHRRepository) CreateSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	if r.dialect == DialectMySQL {
		return nil
	}
	for _, stmt := range indexes {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// rebind converts ? placeholders to $n for PostgreSQL.
func (r *SQLHRRepository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

const employeeColumns = `id, tenant_id, department_id, first_name, last_name, email, position, status, hired_at`

func scanEmployee(row interface{ Scan(...any) error }) (model.Employee, error) {
	var e model.Employee
	err := row.Scan(&e.ID, &e.TenantID, &e.DepartmentID, &e.FirstName, &e.LastName,
		&e.Email, &e.Position, &e.Status, &e.HiredAt)
	return e, err
}

// ListActiveTenants returns every active tenant.
func (r *SQLHRRepository) ListActiveTenants(ctx context.Context) ([]model.Tenant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, is_active FROM tenants WHERE is_active = TRUE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []model.Tenant
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// ListActiveEmployees returns the tenant's active employees.
func (r *SQLHRRepository) ListActiveEmployees(ctx context.Context, tenantID string) ([]model.Employee, error) {
	return r.ListEmployees(ctx, tenantID, EmployeeFilter{Status: model.EmployeeActive})
}

// ListEmployees returns the tenant's employees matching filter.
func (r *SQLHRRepository) ListEmployees(ctx context.Context, tenantID string, filter EmployeeFilter) ([]model.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE tenant_id = ?`
	args := []any{tenantID}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.DepartmentID != "" {
		query += ` AND department_id = ?`
		args = append(args, filter.DepartmentID)
	}
	query += ` ORDER BY last_name, first_name, id`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	employees := make([]model.Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// GetEmployee returns one employee or ErrNotFound.
func (r *SQLHRRepository) GetEmployee(ctx context.Context, employeeID string) (*model.Employee, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+employeeColumns+` FROM employees WHERE id = ?`), employeeID)
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &e, nil
}

// CountActiveEmployees returns the tenant's active headcount.
func (r *SQLHRRepository) CountActiveEmployees(ctx context.Context, tenantID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		r.rebind(`SELECT COUNT(*) FROM employees WHERE tenant_id = ? AND status = ?`),
		tenantID, model.EmployeeActive).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	return n, nil
}

// CountPendingLeave returns the tenant's pending leave requests.
func (r *SQLHRRepository) CountPendingLeave(ctx context.Context, tenantID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		r.rebind(`SELECT COUNT(*) FROM leave_requests WHERE tenant_id = ? AND status = ?`),
		tenantID, model.LeavePending).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending leave: %w", err)
	}
	return n, nil
}

// GetSettings returns the tenant settings, or DefaultSettings when none are stored.
func (r *SQLHRRepository) GetSettings(ctx context.Context, tenantID string) (*model.TenantSettings, error) {
	s := model.TenantSettings{TenantID: tenantID}
	err := r.db.QueryRowContext(ctx,
		r.rebind(`SELECT timezone, currency, work_week_days, leave_approval_required FROM tenant_settings WHERE tenant_id = ?`),
		tenantID).Scan(&s.Timezone, &s.Currency, &s.WorkWeekDays, &s.LeaveApprovalRequired)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings(tenantID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &s, nil
}

// UpdateEmployeeStatus changes an employee's status within a tenant.
func (r *SQLHRRepository) UpdateEmployeeStatus(ctx context.Context, tenantID, employeeID, status string) error {
	result, err := r.db.ExecContext(ctx,
		r.rebind(`UPDATE employees SET status = ? WHERE id = ? AND tenant_id = ?`),
		status, employeeID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to update employee status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateTenant inserts a tenant. Used for seeding and tests.
func (r *SQLHRRepository) CreateTenant(ctx context.Context, t model.Tenant) error {
	_, err := r.db.ExecContext(ctx,
		r.rebind(`INSERT INTO tenants (id, name, is_active) VALUES (?, ?, ?)`),
		t.ID, t.Name, t.IsActive)
	if err != nil {
		return fmt.Errorf("failed to create tenant %s: %w", t.ID, err)
	}
	return nil
}

// CreateEmployee inserts an employee. Used for seeding and tests.
func (r *SQLHRRepository) CreateEmployee(ctx context.Context, e model.Employee) error {
	if e.HiredAt.IsZero() {
		e.HiredAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		r.rebind(`INSERT INTO employees (`+employeeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.TenantID, e.DepartmentID, e.FirstName, e.LastName, e.Email, e.Position, e.Status, e.HiredAt)
	if err != nil {
		return fmt.Errorf("failed to create employee %s: %w", e.ID, err)
	}
	return nil
}

// CreateLeaveRequest inserts a leave request. Used for seeding and tests.
func (r *SQLHRRepository) CreateLeaveRequest(ctx context.Context, id, tenantID, employeeID, status string) error {
	_, err := r.db.ExecContext(ctx,
		r.rebind(`INSERT INTO leave_requests (id, tenant_id, employee_id, status, created_at) VALUES (?, ?, ?, ?, ?)`),
		id, tenantID, employeeID, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create leave request %s: %w", id, err)
	}
	return nil
}

// SaveSettings replaces the tenant settings row.
func (r *SQLHRRepository) SaveSettings(ctx context.Context, s model.TenantSettings) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM tenant_settings WHERE tenant_id = ?`), s.TenantID); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		r.rebind(`INSERT INTO tenant_settings (tenant_id, timezone, currency, work_week_days, leave_approval_required) VALUES (?, ?, ?, ?, ?)`),
		s.TenantID, s.Timezone, s.Currency, s.WorkWeekDays, s.LeaveApprovalRequired)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLHRRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLHRRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLHRRepository implements HRRepository
var _ HRRepository = (*SQLHRRepository)(nil)

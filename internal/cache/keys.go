package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Key prefixes. A key is <prefix>:<scope>[:<qualifier>...].
const (
	PrefixEmployee   = "employee"
	PrefixEmployees  = "employees"
	PrefixDashboard  = "dashboard"
	PrefixLeave      = "leave"
	PrefixPayroll    = "payroll"
	PrefixAttendance = "attendance"
	PrefixDepartment = "department"
	PrefixSettings   = "settings"
	PrefixAnalytics  = "analytics"
)

// Analytics metrics written by the warmer.
const (
	MetricHeadcount    = "headcount"
	MetricPendingLeave = "pending_leave"
)

// EmployeeKey returns employee:<employeeId>.
func EmployeeKey(employeeID string) string {
	return join(PrefixEmployee, employeeID)
}

// EmployeesKey returns employees:<tenantId>[:<filterHash>].
func EmployeesKey(tenantID string, filterHash ...string) string {
	return join(PrefixEmployees, tenantID, optional(filterHash)...)
}

// DashboardKey returns dashboard:<tenantId>:<userId>.
func DashboardKey(tenantID, userID string) string {
	return join(PrefixDashboard, tenantID, userID)
}

// LeaveKey returns leave:<tenantId>[:<status>].
func LeaveKey(tenantID string, status ...string) string {
	return join(PrefixLeave, tenantID, optional(status)...)
}

// PayrollKey returns payroll:<tenantId>[:<periodId>].
func PayrollKey(tenantID string, periodID ...string) string {
	return join(PrefixPayroll, tenantID, optional(periodID)...)
}

// AttendanceKey returns attendance:<employeeId>[:<date>].
func AttendanceKey(employeeID string, date ...string) string {
	return join(PrefixAttendance, employeeID, optional(date)...)
}

// DepartmentKey returns department:<departmentId>.
func DepartmentKey(departmentID string) string {
	return join(PrefixDepartment, departmentID)
}

// SettingsKey returns settings:<tenantId>.
func SettingsKey(tenantID string) string {
	return join(PrefixSettings, tenantID)
}

// AnalyticsKey returns analytics:<tenantId>:<metric>[:<timeframe>].
func AnalyticsKey(tenantID, metric string, timeframe ...string) string {
	return join(PrefixAnalytics, tenantID, append([]string{metric}, optional(timeframe)...)...)
}

// Pattern returns <prefix>:<tenantId>:*. Pattern strings name an index set
// for group invalidation and are never used as get/set targets.
func Pattern(prefix, tenantID string) string {
	return join(prefix, tenantID) + ":*"
}

// FilterHash derives a stable qualifier from a filter value, for use with
// EmployeesKey and similar list keys.
func FilterHash(filter any) string {
	data, err := json.Marshal(filter)
	if err != nil {
		panic(fmt.Sprintf("cache: unhashable filter: %v", err))
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])[:16]
}

func optional(parts []string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func join(prefix, scope string, rest ...string) string {
	parts := make([]string, 0, 2+len(rest))
	parts = append(parts, prefix, segment(scope))
	for _, r := range rest {
		parts = append(parts, segment(r))
	}
	return strings.Join(parts, ":")
}

// CheckSegment reports whether s can be used as a key segment. Callers
// handling untrusted input check first; the key builders panic instead.
func CheckSegment(s string) error {
	if s == "" {
		return errors.New("empty key segment")
	}
	if strings.ContainsAny(s, ":*") {
		return fmt.Errorf("key segment %q contains a reserved character", s)
	}
	return nil
}

// segment panics on values that would make the key ambiguous.
func segment(s string) string {
	if err := CheckSegment(s); err != nil {
		panic("cache: " + err.Error())
	}
	return s
}

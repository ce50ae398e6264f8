package model

import "time"

// Employee statuses.
const (
	EmployeeActive     = "active"
	EmployeeInactive   = "inactive"
	EmployeeOnLeave    = "on_leave"
	EmployeeTerminated = "terminated"
)

// Employee is the cached view of an employee record.
type Employee struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	DepartmentID string    `json:"department_id,omitempty"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Position     string    `json:"position,omitempty"`
	Status       string    `json:"status"`
	HiredAt      time.Time `json:"hired_at"`
}

// ValidEmployeeStatus reports whether s is a known employee status.
func ValidEmployeeStatus(s string) bool {
	switch s {
	case EmployeeActive, EmployeeInactive, EmployeeOnLeave, EmployeeTerminated:
		return true
	}
	return false
}

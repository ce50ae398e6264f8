package model

// Tenant is an isolated customer scope.
type Tenant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// TenantSettings holds per-tenant configuration read on most requests.
type TenantSettings struct {
	TenantID              string `json:"tenant_id"`
	Timezone              string `json:"timezone"`
	Currency              string `json:"currency"`
	WorkWeekDays          int    `json:"work_week_days"`
	LeaveApprovalRequired bool   `json:"leave_approval_required"`
}

// Leave request statuses.
const (
	LeavePending  = "pending"
	LeaveApproved = "approved"
	LeaveRejected = "rejected"
)

// MetricValue is a single cached analytics aggregate.
type MetricValue struct {
	TenantID string `json:"tenant_id"`
	Metric   string `json:"metric"`
	Value    int64  `json:"value"`
}

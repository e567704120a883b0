package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleMember     UserRole = "MEMBER"
)

// UserStatus tracks the registration approval state of an account.
type UserStatus string

const (
	UserStatusPending  UserStatus = "PENDING"
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusRejected UserStatus = "REJECTED"
)

// User represents a challenge participant stored in the users table.
// The kpi_exception_* columns are owned by the exception approval flow:
// they mirror the most recently approved exception so penalty computation
// can resolve effective targets without joining the requests table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Status       UserStatus `db:"status" json:"status"`

	MonthlyRunTargetKm  float64 `db:"monthly_run_target_km" json:"monthly_run_target_km"`
	MonthlySwimTargetKm float64 `db:"monthly_swim_target_km" json:"monthly_swim_target_km"`

	AdjustedRunTargetKm  *float64   `db:"adjusted_run_target_km" json:"adjusted_run_target_km,omitempty"`
	AdjustedSwimTargetKm *float64   `db:"adjusted_swim_target_km" json:"adjusted_swim_target_km,omitempty"`
	KPIExceptionActive   bool       `db:"kpi_exception_active" json:"kpi_exception_active"`
	KPIExceptionID       *string    `db:"kpi_exception_id" json:"kpi_exception_id,omitempty"`
	KPIExceptionExpiry   *time.Time `db:"kpi_exception_expiry" json:"kpi_exception_expiry,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// BaseTargets returns the unadjusted monthly targets.
func (u *User) BaseTargets() KPITargets {
	return KPITargets{Run: u.MonthlyRunTargetKm, Swim: u.MonthlySwimTargetKm}
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

package models

import "time"

// KPITargets holds monthly run/swim distance targets in kilometres.
type KPITargets struct {
	Run  float64 `json:"run"`
	Swim float64 `json:"swim"`
}

// ReductionPercent captures how much each discipline target was reduced,
// expressed as a percentage rounded to one decimal place.
type ReductionPercent struct {
	Run  float64 `json:"run"`
	Swim float64 `json:"swim"`
}

// AdjustmentResult is the output of the target adjustment calculator.
type AdjustmentResult struct {
	Original         KPITargets       `json:"original"`
	Adjusted         KPITargets       `json:"adjusted"`
	ReductionPercent ReductionPercent `json:"reduction_percent"`
	Notes            []string         `json:"notes"`
}

// KPIRecord stores a member's recorded distances for one reporting month.
// Actuals arrive via admin upserts standing in for the external
// fitness-tracker integration.
type KPIRecord struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Year         int       `db:"year" json:"year"`
	Month        int       `db:"month" json:"month"`
	RunActualKm  float64   `db:"run_actual_km" json:"run_actual_km"`
	SwimActualKm float64   `db:"swim_actual_km" json:"swim_actual_km"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// PenaltyBreakdown itemises the financial penalty for one member's month.
type PenaltyBreakdown struct {
	Targets       KPITargets `json:"targets"`
	Actuals       KPITargets `json:"actuals"`
	RunShortfall  float64    `json:"run_shortfall"`
	SwimShortfall float64    `json:"swim_shortfall"`
	RunPenalty    float64    `json:"run_penalty"`
	SwimPenalty   float64    `json:"swim_penalty"`
	Total         float64    `json:"total"`
	ExceptionID   *string    `json:"exception_id,omitempty"`
}

// MemberPenalty pairs a member with their monthly penalty breakdown.
type MemberPenalty struct {
	UserID   string           `json:"user_id"`
	Email    string           `json:"email"`
	FullName string           `json:"full_name"`
	Penalty  PenaltyBreakdown `json:"penalty"`
}

// PenaltyReport summarises penalties across all members for a month.
type PenaltyReport struct {
	Year     int             `json:"year"`
	Month    int             `json:"month"`
	Currency string          `json:"currency"`
	Members  []MemberPenalty `json:"members"`
	Total    float64         `json:"total"`
}

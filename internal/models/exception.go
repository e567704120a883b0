package models

import "time"

// ExceptionType enumerates the claim categories accepted for KPI exceptions.
type ExceptionType string

const (
	ExceptionInjury       ExceptionType = "INJURY"
	ExceptionSickness     ExceptionType = "SICKNESS"
	ExceptionBusinessTrip ExceptionType = "BUSINESS_TRIP"
	ExceptionFamilyEvent  ExceptionType = "FAMILY_EVENT"
	ExceptionPregnancy    ExceptionType = "PREGNANCY"
	ExceptionSwap         ExceptionType = "SWAP"
	ExceptionOther        ExceptionType = "OTHER"
)

// AdjustmentType enumerates how targets are adjusted when a claim is granted.
type AdjustmentType string

const (
	AdjustmentReduction AdjustmentType = "REDUCTION"
	AdjustmentExemption AdjustmentType = "EXEMPTION"
	AdjustmentExtension AdjustmentType = "EXTENSION"
	AdjustmentRunOnly   AdjustmentType = "RUN_ONLY"
	AdjustmentSwimOnly  AdjustmentType = "SWIM_ONLY"
	AdjustmentCustom    AdjustmentType = "CUSTOM"
)

// ExceptionStatus captures workflow states for exception requests.
// EXPIRED is never stored: it is derived at read time when an approved
// request's end date has passed.
type ExceptionStatus string

const (
	ExceptionStatusPending  ExceptionStatus = "PENDING"
	ExceptionStatusApproved ExceptionStatus = "APPROVED"
	ExceptionStatusRejected ExceptionStatus = "REJECTED"
	ExceptionStatusExpired  ExceptionStatus = "EXPIRED"
)

// ExceptionRequest stores a KPI exception claim awaiting review.
// The user identity fields are denormalized copies captured at submission.
// A single review block (reviewed_by/reviewed_at) plus the status
// discriminant makes an approved-and-rejected record unrepresentable;
// rejection_reason is populated only on the REJECTED transition.
type ExceptionRequest struct {
	ID        string `db:"id" json:"id"`
	UserID    string `db:"user_id" json:"user_id"`
	UserEmail string `db:"user_email" json:"user_email"`
	UserName  string `db:"user_name" json:"user_name"`

	ExceptionType  ExceptionType  `db:"exception_type" json:"exception_type"`
	AdjustmentType AdjustmentType `db:"adjustment_type" json:"adjustment_type"`

	Reason   string  `db:"reason" json:"reason"`
	Evidence *string `db:"evidence" json:"evidence,omitempty"`
	Notes    *string `db:"notes" json:"notes,omitempty"`

	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`

	OriginalRunTargetKm  float64  `db:"original_run_target_km" json:"original_run_target_km"`
	OriginalSwimTargetKm float64  `db:"original_swim_target_km" json:"original_swim_target_km"`
	AdjustedRunTargetKm  *float64 `db:"adjusted_run_target_km" json:"adjusted_run_target_km,omitempty"`
	AdjustedSwimTargetKm *float64 `db:"adjusted_swim_target_km" json:"adjusted_swim_target_km,omitempty"`

	Status ExceptionStatus `db:"status" json:"status"`

	RequestedBy string    `db:"requested_by" json:"requested_by"`
	RequestedAt time.Time `db:"requested_at" json:"requested_at"`

	ReviewedBy      *string    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNotes     *string    `db:"review_notes" json:"review_notes,omitempty"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`

	Month int `db:"month" json:"month"`
	Year  int `db:"year" json:"year"`
}

// OriginalTargets returns the targets snapshot captured at submission.
func (r *ExceptionRequest) OriginalTargets() KPITargets {
	return KPITargets{Run: r.OriginalRunTargetKm, Swim: r.OriginalSwimTargetKm}
}

// AdjustedTargets returns the adjusted targets, or nil when not yet computed.
func (r *ExceptionRequest) AdjustedTargets() *KPITargets {
	if r.AdjustedRunTargetKm == nil || r.AdjustedSwimTargetKm == nil {
		return nil
	}
	return &KPITargets{Run: *r.AdjustedRunTargetKm, Swim: *r.AdjustedSwimTargetKm}
}

// DurationDays returns the inclusive day span of the validity window.
func (r *ExceptionRequest) DurationDays() int {
	days := int(r.EndDate.Sub(r.StartDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// EffectiveStatus derives the observed status at read time: an approved
// request reads as EXPIRED only once its end date is fully in the past.
// End dates are calendar dates, so now is truncated to the start of its
// day first; an exception ending today stays active for the whole day.
func (r *ExceptionRequest) EffectiveStatus(now time.Time) ExceptionStatus {
	if r.Status == ExceptionStatusApproved && r.EndDate.Before(StartOfDay(now)) {
		return ExceptionStatusExpired
	}
	return r.Status
}

// StartOfDay truncates an instant to midnight UTC of its calendar day.
// Validity windows are stored as calendar dates, so comparisons against
// the current time go through this truncation.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ExceptionFilter constrains listing queries. Zero values are ignored;
// set filters combine with AND semantics.
type ExceptionFilter struct {
	Status        ExceptionStatus
	UserID        string
	ExceptionType ExceptionType
	Limit         int
	Offset        int
}

// PeriodCount buckets request counts per reporting period.
type PeriodCount struct {
	Year  int `db:"year" json:"year"`
	Month int `db:"month" json:"month"`
	Count int `db:"count" json:"count"`
}

// ExceptionStats aggregates counts across the full request table.
type ExceptionStats struct {
	Total    int                   `json:"total"`
	ByStatus map[ExceptionStatus]int `json:"by_status"`
	ByType   map[ExceptionType]int   `json:"by_type"`
	ByPeriod []PeriodCount           `json:"by_period"`
}

// ActiveException is the result of an active-exception lookup.
type ActiveException struct {
	Active    bool              `json:"active"`
	Exception *ExceptionRequest `json:"exception,omitempty"`
}

package dto

import "github.com/noah-isme/fitness-admin-api/internal/models"

// CreateExceptionRequest is the payload submitted by a member (or an admin
// on a member's behalf) to open a KPI exception claim.
type CreateExceptionRequest struct {
	UserID         string                `json:"user_id" validate:"required"`
	ExceptionType  models.ExceptionType  `json:"exception_type" validate:"required"`
	AdjustmentType models.AdjustmentType `json:"adjustment_type" validate:"required"`
	Reason         string                `json:"reason" validate:"required"`
	Evidence       string                `json:"evidence"`
	Notes          string                `json:"notes"`
	StartDate      string                `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        string                `json:"end_date" validate:"required,datetime=2006-01-02"`
	Month          int                   `json:"month" validate:"omitempty,min=1,max=12"`
	Year           int                   `json:"year" validate:"omitempty,min=2000"`
	// Precompute requests the adjusted targets to be calculated and stored
	// at submission time rather than at approval.
	Precompute bool `json:"precompute"`
}

// ApproveExceptionRequest carries optional reviewer notes.
type ApproveExceptionRequest struct {
	Notes string `json:"notes"`
}

// RejectExceptionRequest requires a rejection reason.
type RejectExceptionRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ExceptionQuery mirrors the supported list filters.
type ExceptionQuery struct {
	Status        models.ExceptionStatus
	UserID        string
	ExceptionType models.ExceptionType
	Limit         int
	Offset        int
}

// ExceptionDetail decorates a request with its read-time derived status.
type ExceptionDetail struct {
	*models.ExceptionRequest
	EffectiveStatus models.ExceptionStatus `json:"effective_status"`
}

// PreviewAdjustmentRequest asks the calculator for a dry-run result.
type PreviewAdjustmentRequest struct {
	Original       models.KPITargets     `json:"original"`
	ExceptionType  models.ExceptionType  `json:"exception_type" validate:"required"`
	AdjustmentType models.AdjustmentType `json:"adjustment_type" validate:"required"`
	DurationDays   int                   `json:"duration_days" validate:"min=0"`
}

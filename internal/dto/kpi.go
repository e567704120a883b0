package dto

// UpsertKPIActualsRequest records a member's distances for a month. This is
// the admin-facing stand-in for the external fitness-tracker feed.
type UpsertKPIActualsRequest struct {
	UserID       string  `json:"user_id" validate:"required"`
	Year         int     `json:"year" validate:"required,min=2000"`
	Month        int     `json:"month" validate:"required,min=1,max=12"`
	RunActualKm  float64 `json:"run_actual_km" validate:"min=0"`
	SwimActualKm float64 `json:"swim_actual_km" validate:"min=0"`
}

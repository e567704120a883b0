package dto

import "github.com/noah-isme/fitness-admin-api/internal/models"

// AdminDashboardResponse composes the admin landing page payload.
type AdminDashboardResponse struct {
	ExceptionStats       *models.ExceptionStats `json:"exception_stats"`
	PendingRegistrations int                    `json:"pending_registrations"`
	PenaltyTotal         float64                `json:"penalty_total"`
	PenaltyCurrency      string                 `json:"penalty_currency"`
	Year                 int                    `json:"year"`
	Month                int                    `json:"month"`
}

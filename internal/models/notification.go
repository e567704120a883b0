package models

import "time"

// NotificationCategory distinguishes notification origins for UI grouping.
type NotificationCategory string

const (
	NotificationRegistration      NotificationCategory = "REGISTRATION"
	NotificationExceptionDecision NotificationCategory = "EXCEPTION_DECISION"
	NotificationGeneral           NotificationCategory = "GENERAL"
)

// Notification represents a persisted in-app notification row.
type Notification struct {
	ID        string               `db:"id" json:"id"`
	UserID    string               `db:"user_id" json:"user_id"`
	Title     string               `db:"title" json:"title"`
	Message   string               `db:"message" json:"message"`
	Category  NotificationCategory `db:"category" json:"category"`
	IsRead    bool                 `db:"is_read" json:"is_read"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}

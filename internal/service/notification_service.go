package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/fitness-admin-api/internal/models"
	"github.com/noah-isme/fitness-admin-api/pkg/config"
	appErrors "github.com/noah-isme/fitness-admin-api/pkg/errors"
	"github.com/noah-isme/fitness-admin-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, note *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type adminLister interface {
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

const jobTypeDeliverNotification = "deliver_notification"

// NotificationService persists in-app notifications. Delivery goes through
// an in-memory worker queue so callers on the request path never block on
// the notifications table.
type NotificationService struct {
	repo   notificationStore
	admins adminLister
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the service and its delivery queue.
// Start must be called before notifications are accepted.
func NewNotificationService(repo notificationStore, admins adminLister, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{
		repo:   repo,
		admins: admins,
		logger: logger,
	}
	svc.queue = jobs.NewQueue("notifications", svc.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify queues a single notification for delivery.
func (s *NotificationService) Notify(ctx context.Context, note models.Notification) error {
	if note.UserID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "notification requires a recipient")
	}
	if note.Category == "" {
		note.Category = models.NotificationGeneral
	}
	return s.enqueue(note)
}

// NotifyAdmins fans one message out to every admin and superadmin.
func (s *NotificationService) NotifyAdmins(ctx context.Context, title, message string, category models.NotificationCategory) error {
	recipients := make([]models.User, 0)
	for _, role := range []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin} {
		users, err := s.admins.ListByRole(ctx, role)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list admins")
		}
		recipients = append(recipients, users...)
	}
	for _, recipient := range recipients {
		note := models.Notification{
			UserID:   recipient.ID,
			Title:    title,
			Message:  message,
			Category: category,
		}
		if err := s.enqueue(note); err != nil {
			s.logger.Warn("failed to queue admin notification",
				zap.String("user_id", recipient.ID), zap.Error(err))
		}
	}
	return nil
}

// ListForUser returns a page of the user's notifications plus the total.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.Notification, int, error) {
	notes, total, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list notifications")
	}
	return notes, total, nil
}

// MarkRead flags a notification as read, scoped to its owner.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to mark notification read")
	}
	return nil
}

// UnreadCount returns the user's unread notification count.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to count notifications")
	}
	return count, nil
}

func (s *NotificationService) enqueue(note models.Notification) error {
	return s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeDeliverNotification,
		Payload: note,
	})
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	note, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("unexpected payload type for job %s", job.ID)
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.repo.Create(writeCtx, &note)
}

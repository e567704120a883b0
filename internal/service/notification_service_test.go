package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fitness-admin-api/internal/models"
	"github.com/noah-isme/fitness-admin-api/pkg/config"
	appErrors "github.com/noah-isme/fitness-admin-api/pkg/errors"
)

type notificationStoreStub struct {
	created chan models.Notification
}

func newNotificationStoreStub() *notificationStoreStub {
	return &notificationStoreStub{created: make(chan models.Notification, 8)}
}

func (s *notificationStoreStub) Create(ctx context.Context, note *models.Notification) error {
	s.created <- *note
	return nil
}

func (s *notificationStoreStub) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Notification, int, error) {
	return []models.Notification{}, 0, nil
}

func (s *notificationStoreStub) MarkRead(ctx context.Context, id, userID string) error {
	if id == "missing" {
		return sql.ErrNoRows
	}
	return nil
}

func (s *notificationStoreStub) UnreadCount(ctx context.Context, userID string) (int, error) {
	return 3, nil
}

type adminListerStub struct {
	admins []models.User
}

func (s *adminListerStub) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	result := []models.User{}
	for _, u := range s.admins {
		if u.Role == role {
			result = append(result, u)
		}
	}
	return result, nil
}

func awaitNotification(t *testing.T, ch chan models.Notification) models.Notification {
	t.Helper()
	select {
	case note := <-ch:
		return note
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification delivery")
		return models.Notification{}
	}
}

func notificationTestConfig() config.NotificationsConfig {
	return config.NotificationsConfig{Workers: 1, BufferSize: 4}
}

func TestNotificationServiceDeliversThroughQueue(t *testing.T) {
	store := newNotificationStoreStub()
	svc := NewNotificationService(store, &adminListerStub{}, notificationTestConfig(), nil)
	svc.Start(context.Background())
	defer svc.Stop()

	err := svc.Notify(context.Background(), models.Notification{
		UserID:  "member-1",
		Title:   "KPI exception approved",
		Message: "Your injury exception was approved.",
	})
	require.NoError(t, err)

	note := awaitNotification(t, store.created)
	require.Equal(t, "member-1", note.UserID)
	require.Equal(t, models.NotificationGeneral, note.Category)
}

func TestNotificationServiceNotifyRequiresRecipient(t *testing.T) {
	svc := NewNotificationService(newNotificationStoreStub(), &adminListerStub{}, notificationTestConfig(), nil)
	svc.Start(context.Background())
	defer svc.Stop()

	err := svc.Notify(context.Background(), models.Notification{Title: "orphan"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestNotificationServiceFansOutToAdmins(t *testing.T) {
	store := newNotificationStoreStub()
	admins := &adminListerStub{admins: []models.User{
		{ID: "super-1", Role: models.RoleSuperAdmin, Status: models.UserStatusActive},
		{ID: "admin-1", Role: models.RoleAdmin, Status: models.UserStatusActive},
	}}
	svc := NewNotificationService(store, admins, notificationTestConfig(), nil)
	svc.Start(context.Background())
	defer svc.Stop()

	err := svc.NotifyAdmins(context.Background(), "New registration", "Someone signed up.", models.NotificationRegistration)
	require.NoError(t, err)

	recipients := map[string]bool{}
	for i := 0; i < 2; i++ {
		note := awaitNotification(t, store.created)
		require.Equal(t, models.NotificationRegistration, note.Category)
		recipients[note.UserID] = true
	}
	require.True(t, recipients["super-1"])
	require.True(t, recipients["admin-1"])
}

func TestNotificationServiceMarkReadMapsMissingRow(t *testing.T) {
	svc := NewNotificationService(newNotificationStoreStub(), &adminListerStub{}, notificationTestConfig(), nil)
	err := svc.MarkRead(context.Background(), "missing", "member-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestNotificationServiceRejectsBeforeStart(t *testing.T) {
	svc := NewNotificationService(newNotificationStoreStub(), &adminListerStub{}, notificationTestConfig(), nil)
	err := svc.Notify(context.Background(), models.Notification{UserID: "member-1", Title: "early"})
	require.Error(t, err)
}

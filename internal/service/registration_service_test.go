package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/fitness-admin-api/internal/dto"
	"github.com/noah-isme/fitness-admin-api/internal/models"
	"github.com/noah-isme/fitness-admin-api/pkg/config"
	appErrors "github.com/noah-isme/fitness-admin-api/pkg/errors"
)

type accountStoreStub struct {
	users   map[string]*models.User
	byEmail map[string]*models.User
}

func newAccountStoreStub(users ...*models.User) *accountStoreStub {
	stub := &accountStoreStub{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]*models.User),
	}
	for _, u := range users {
		stub.users[u.ID] = u
		stub.byEmail[u.Email] = u
	}
	return stub
}

func (s *accountStoreStub) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	s.users[user.ID] = user
	s.byEmail[user.Email] = user
	return nil
}

func (s *accountStoreStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *accountStoreStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := s.byEmail[email]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *accountStoreStub) ListByStatus(ctx context.Context, status models.UserStatus) ([]models.User, error) {
	result := []models.User{}
	for _, u := range s.users {
		if u.Status == status {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (s *accountStoreStub) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Status = status
	return nil
}

type registrationNotifierStub struct {
	titles    []string
	userNotes []models.Notification
}

func (n *registrationNotifierStub) Notify(ctx context.Context, note models.Notification) error {
	n.userNotes = append(n.userNotes, note)
	return nil
}

func (n *registrationNotifierStub) NotifyAdmins(ctx context.Context, title, message string, category models.NotificationCategory) error {
	n.titles = append(n.titles, title)
	return nil
}

func testDefaults() config.KPIConfig {
	return config.KPIConfig{DefaultRunTargetKm: 100, DefaultSwimTargetKm: 20}
}

func TestRegistrationServiceRegisterCreatesPendingMember(t *testing.T) {
	store := newAccountStoreStub()
	notifier := &registrationNotifierStub{}
	svc := NewRegistrationService(store, &auditStub{}, notifier, testDefaults(), nil)

	user, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email:    "Runner@Corp.Example",
		Password: "correct-horse",
		FullName: "New Runner",
	})
	require.NoError(t, err)
	require.Equal(t, models.UserStatusPending, user.Status)
	require.Equal(t, models.RoleMember, user.Role)
	require.Equal(t, "runner@corp.example", user.Email)
	require.Equal(t, 100.0, user.MonthlyRunTargetKm)
	require.Equal(t, 20.0, user.MonthlySwimTargetKm)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse")))
	require.Equal(t, []string{"New registration"}, notifier.titles)
}

func TestRegistrationServiceRegisterRejectsDuplicateEmail(t *testing.T) {
	existing := testMember("member-1")
	store := newAccountStoreStub(existing)
	svc := NewRegistrationService(store, &auditStub{}, &registrationNotifierStub{}, testDefaults(), nil)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email:    existing.Email,
		Password: "correct-horse",
		FullName: "Duplicate",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRegistrationServiceApproveActivatesAccount(t *testing.T) {
	pending := testMember("member-1")
	pending.Status = models.UserStatusPending
	store := newAccountStoreStub(pending)
	audit := &auditStub{}
	notifier := &registrationNotifierStub{}
	svc := NewRegistrationService(store, audit, notifier, testDefaults(), nil)

	user, err := svc.Approve(context.Background(), "member-1", "admin-1")
	require.NoError(t, err)
	require.Equal(t, models.UserStatusActive, user.Status)
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionRegistrationApprove, audit.logs[0].Action)

	require.Len(t, notifier.userNotes, 1)
	require.Equal(t, "member-1", notifier.userNotes[0].UserID)
	require.Equal(t, "Registration approved", notifier.userNotes[0].Title)
	require.Equal(t, models.NotificationRegistration, notifier.userNotes[0].Category)

	_, err = svc.Approve(context.Background(), "member-1", "admin-2")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAlreadyProcessed.Code, appErrors.FromError(err).Code)
}

func TestRegistrationServiceRejectRequiresReason(t *testing.T) {
	pending := testMember("member-1")
	pending.Status = models.UserStatusPending
	store := newAccountStoreStub(pending)
	notifier := &registrationNotifierStub{}
	svc := NewRegistrationService(store, &auditStub{}, notifier, testDefaults(), nil)

	_, err := svc.Reject(context.Background(), "member-1", "admin-1", dto.RejectRegistrationRequest{Reason: " "})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Empty(t, notifier.userNotes)

	user, err := svc.Reject(context.Background(), "member-1", "admin-1", dto.RejectRegistrationRequest{Reason: "not an employee"})
	require.NoError(t, err)
	require.Equal(t, models.UserStatusRejected, user.Status)

	require.Len(t, notifier.userNotes, 1)
	require.Equal(t, "Registration rejected", notifier.userNotes[0].Title)
	require.Contains(t, notifier.userNotes[0].Message, "not an employee")
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/fitness-admin-api/internal/dto"
	"github.com/noah-isme/fitness-admin-api/internal/models"
	"github.com/noah-isme/fitness-admin-api/pkg/config"
	appErrors "github.com/noah-isme/fitness-admin-api/pkg/errors"
)

type accountStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListByStatus(ctx context.Context, status models.UserStatus) ([]models.User, error)
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
}

type registrationNotifier interface {
	Notify(ctx context.Context, note models.Notification) error
	NotifyAdmins(ctx context.Context, title, message string, category models.NotificationCategory) error
}

// RegistrationService handles self-service signup and the admin approval
// queue. New accounts always start PENDING and become visible to the rest
// of the system only once an admin activates them.
type RegistrationService struct {
	users    accountStore
	audit    auditLogger
	notifier registrationNotifier
	defaults config.KPIConfig
	logger   *zap.Logger
	validate *validator.Validate
}

// NewRegistrationService constructs the service.
func NewRegistrationService(users accountStore, audit auditLogger, notifier registrationNotifier, defaults config.KPIConfig, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		users:    users,
		audit:    audit,
		notifier: notifier,
		defaults: defaults,
		logger:   logger,
		validate: validator.New(),
	}
}

// Register creates a pending member account and alerts admins.
func (s *RegistrationService) Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:               email,
		PasswordHash:        string(hash),
		FullName:            strings.TrimSpace(req.FullName),
		Role:                models.RoleMember,
		Status:              models.UserStatusPending,
		MonthlyRunTargetKm:  s.defaults.DefaultRunTargetKm,
		MonthlySwimTargetKm: s.defaults.DefaultSwimTargetKm,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create user")
	}

	if s.notifier != nil {
		message := fmt.Sprintf("%s (%s) is awaiting registration approval.", user.FullName, user.Email)
		if err := s.notifier.NotifyAdmins(ctx, "New registration", message, models.NotificationRegistration); err != nil {
			s.logger.Warn("failed to notify admins of registration",
				zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return user, nil
}

// ListPending returns accounts awaiting review, oldest first.
func (s *RegistrationService) ListPending(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListByStatus(ctx, models.UserStatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list pending registrations")
	}
	return users, nil
}

// Approve activates a pending account and tells the new member.
func (s *RegistrationService) Approve(ctx context.Context, userID, approverID string) (*models.User, error) {
	user, err := s.loadPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateStatus(ctx, user.ID, models.UserStatusActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "registration already processed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to activate user")
	}
	user.Status = models.UserStatusActive
	s.recordDecision(ctx, user, approverID, models.AuditActionRegistrationApprove)
	s.notifyUser(ctx, user.ID, "Registration approved",
		"Your account is active. Welcome to the fitness challenge.")
	return user, nil
}

// Reject declines a pending account with a reason.
func (s *RegistrationService) Reject(ctx context.Context, userID, rejectorID string, req dto.RejectRegistrationRequest) (*models.User, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	user, err := s.loadPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateStatus(ctx, user.ID, models.UserStatusRejected); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "registration already processed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to reject user")
	}
	user.Status = models.UserStatusRejected
	s.recordDecision(ctx, user, rejectorID, models.AuditActionRegistrationReject)
	s.notifyUser(ctx, user.ID, "Registration rejected",
		fmt.Sprintf("Your registration was rejected: %s", strings.TrimSpace(req.Reason)))
	return user, nil
}

func (s *RegistrationService) notifyUser(ctx context.Context, userID, title, message string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, models.Notification{
		UserID:   userID,
		Title:    title,
		Message:  message,
		Category: models.NotificationRegistration,
	})
	if err != nil {
		s.logger.Warn("failed to queue registration decision notification",
			zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *RegistrationService) loadPending(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load user")
	}
	if user.Status != models.UserStatusPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "registration already processed")
	}
	return user, nil
}

func (s *RegistrationService) recordDecision(ctx context.Context, user *models.User, actorID, action string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "user",
		ResourceID: &user.ID,
		NewValues:  marshalAudit(map[string]interface{}{"status": user.Status, "at": time.Now().UTC()}),
		IPAddress:  "system",
		UserAgent:  "registration-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

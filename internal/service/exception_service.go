package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/fitness-admin-api/internal/dto"
	"github.com/noah-isme/fitness-admin-api/internal/models"
	"github.com/noah-isme/fitness-admin-api/internal/repository"
	appErrors "github.com/noah-isme/fitness-admin-api/pkg/errors"
)

type exceptionStore interface {
	Create(ctx context.Context, req *models.ExceptionRequest) error
	GetByID(ctx context.Context, id string) (*models.ExceptionRequest, error)
	List(ctx context.Context, filter models.ExceptionFilter) ([]models.ExceptionRequest, error)
	UpdateReview(ctx context.Context, params repository.ReviewExceptionParams) error
	FindActiveForUser(ctx context.Context, userID string, now time.Time) (*models.ExceptionRequest, error)
	Stats(ctx context.Context) (*models.ExceptionStats, error)
}

type profileStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	ApplyKPIException(ctx context.Context, params repository.ApplyKPIExceptionParams) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type decisionNotifier interface {
	Notify(ctx context.Context, note models.Notification) error
}

// ExceptionService orchestrates the KPI exception lifecycle: submission,
// review, and propagation of approved adjustments onto the user profile.
type ExceptionService struct {
	repo     exceptionStore
	users    profileStore
	audit    auditLogger
	notifier decisionNotifier
	logger   *zap.Logger
	validate *validator.Validate
	now      func() time.Time
	notifyOn bool
}

// ExceptionServiceOption configures the service.
type ExceptionServiceOption func(*ExceptionService)

// WithDecisionNotifier enables decision notifications through the given sink.
func WithDecisionNotifier(notifier decisionNotifier) ExceptionServiceOption {
	return func(s *ExceptionService) {
		s.notifier = notifier
		s.notifyOn = notifier != nil
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) ExceptionServiceOption {
	return func(s *ExceptionService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewExceptionService constructs the service.
func NewExceptionService(repo exceptionStore, users profileStore, audit auditLogger, logger *zap.Logger, opts ...ExceptionServiceOption) *ExceptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ExceptionService{
		repo:     repo,
		users:    users,
		audit:    audit,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit validates and persists a new exception request. The user's
// identity and current monthly targets are denormalized into the record at
// submission time.
func (s *ExceptionService) Submit(ctx context.Context, req dto.CreateExceptionRequest, actor *models.JWTClaims) (*models.ExceptionRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exception payload")
	}
	if actor.Role == models.RoleMember && req.UserID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	if !isKnownExceptionType(req.ExceptionType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported exception type: %s", req.ExceptionType))
	}
	if !isKnownAdjustmentType(req.AdjustmentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported adjustment type: %s", req.AdjustmentType))
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be YYYY-MM-DD")
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load user")
	}

	record := &models.ExceptionRequest{
		UserID:         user.ID,
		UserEmail:      user.Email,
		UserName:       user.FullName,
		ExceptionType:  req.ExceptionType,
		AdjustmentType: req.AdjustmentType,
		Reason:         strings.TrimSpace(req.Reason),
		Evidence:       optionalString(req.Evidence),
		Notes:          optionalString(req.Notes),
		StartDate:      startDate,
		EndDate:        endDate,
		Month:          req.Month,
		Year:           req.Year,
		RequestedBy:    actor.UserID,

		OriginalRunTargetKm:  user.MonthlyRunTargetKm,
		OriginalSwimTargetKm: user.MonthlySwimTargetKm,
	}
	if record.Reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}

	if req.Precompute {
		result := ComputeAdjustedTargets(user.BaseTargets(), req.ExceptionType, req.AdjustmentType, record.DurationDays())
		record.AdjustedRunTargetKm = &result.Adjusted.Run
		record.AdjustedSwimTargetKm = &result.Adjusted.Swim
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create exception request")
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionExceptionCreate,
		Resource:   "exception_request",
		ResourceID: &record.ID,
		NewValues:  marshalAudit(record),
	})
	return record, nil
}

// Approve transitions a pending request to APPROVED and propagates the
// adjusted targets onto the user profile. The propagation step is not
// transactional with the status update: when it fails the request stays
// approved and the profile is reconciled by the active-exception lookup,
// which re-derives state from approved records on read.
func (s *ExceptionService) Approve(ctx context.Context, id string, req dto.ApproveExceptionRequest, approverID string) (*models.ExceptionRequest, error) {
	record, err := s.loadForReview(ctx, id)
	if err != nil {
		return nil, err
	}

	adjusted := record.AdjustedTargets()
	if adjusted == nil {
		result := ComputeAdjustedTargets(record.OriginalTargets(), record.ExceptionType, record.AdjustmentType, record.DurationDays())
		adjusted = &result.Adjusted
	}

	now := s.now().UTC()
	params := repository.ReviewExceptionParams{
		ID:             record.ID,
		Status:         models.ExceptionStatusApproved,
		ReviewedBy:     approverID,
		ReviewedAt:     now,
		ReviewNotes:    optionalString(req.Notes),
		AdjustedRunKm:  &adjusted.Run,
		AdjustedSwimKm: &adjusted.Swim,
	}
	if err := s.repo.UpdateReview(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "exception request already processed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to update exception request")
	}

	record.Status = models.ExceptionStatusApproved
	record.ReviewedBy = &approverID
	record.ReviewedAt = &now
	record.ReviewNotes = params.ReviewNotes
	record.AdjustedRunTargetKm = &adjusted.Run
	record.AdjustedSwimTargetKm = &adjusted.Swim

	if err := s.users.ApplyKPIException(ctx, repository.ApplyKPIExceptionParams{
		UserID:         record.UserID,
		ExceptionID:    record.ID,
		AdjustedRunKm:  adjusted.Run,
		AdjustedSwimKm: adjusted.Swim,
		Expiry:         record.EndDate,
	}); err != nil {
		s.logger.Error("approved exception but profile propagation failed",
			zap.String("exception_id", record.ID),
			zap.String("user_id", record.UserID),
			zap.Error(err))
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &approverID,
		Action:     models.AuditActionExceptionApprove,
		Resource:   "exception_request",
		ResourceID: &record.ID,
		NewValues:  marshalAudit(record),
	})
	s.notifyDecision(ctx, record)
	return record, nil
}

// Reject transitions a pending request to REJECTED. It never touches the
// user profile.
func (s *ExceptionService) Reject(ctx context.Context, id string, req dto.RejectExceptionRequest, rejectorID string) (*models.ExceptionRequest, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}

	record, err := s.loadForReview(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	params := repository.ReviewExceptionParams{
		ID:              record.ID,
		Status:          models.ExceptionStatusRejected,
		ReviewedBy:      rejectorID,
		ReviewedAt:      now,
		RejectionReason: &reason,
	}
	if err := s.repo.UpdateReview(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "exception request already processed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to update exception request")
	}

	record.Status = models.ExceptionStatusRejected
	record.ReviewedBy = &rejectorID
	record.ReviewedAt = &now
	record.RejectionReason = &reason

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &rejectorID,
		Action:     models.AuditActionExceptionReject,
		Resource:   "exception_request",
		ResourceID: &record.ID,
		NewValues:  marshalAudit(record),
	})
	s.notifyDecision(ctx, record)
	return record, nil
}

// List returns requests visible to the actor: members see their own,
// admins see everything.
func (s *ExceptionService) List(ctx context.Context, query dto.ExceptionQuery, actor *models.JWTClaims) ([]models.ExceptionRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.ExceptionFilter{
		Status:        query.Status,
		UserID:        query.UserID,
		ExceptionType: query.ExceptionType,
		Limit:         query.Limit,
		Offset:        query.Offset,
	}
	switch actor.Role {
	case models.RoleSuperAdmin, models.RoleAdmin:
	case models.RoleMember:
		filter.UserID = actor.UserID
	default:
		return nil, appErrors.ErrForbidden
	}
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list exception requests")
	}
	return requests, nil
}

// Get returns a request with its read-time derived status, enforcing
// member scoping.
func (s *ExceptionService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.ExceptionDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load exception request")
	}
	if actor.Role == models.RoleMember && record.UserID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return &dto.ExceptionDetail{
		ExceptionRequest: record,
		EffectiveStatus:  record.EffectiveStatus(s.now().UTC()),
	}, nil
}

// ActiveForUser reports whether the user currently has an unexpired
// approved exception. Ties between concurrently valid exceptions resolve
// to the most recently approved one.
func (s *ExceptionService) ActiveForUser(ctx context.Context, userID string) (*models.ActiveException, error) {
	record, err := s.repo.FindActiveForUser(ctx, userID, models.StartOfDay(s.now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.ActiveException{Active: false}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to look up active exception")
	}
	return &models.ActiveException{Active: true, Exception: record}, nil
}

// Stats returns the aggregate counts over all requests.
func (s *ExceptionService) Stats(ctx context.Context) (*models.ExceptionStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to aggregate exception stats")
	}
	return stats, nil
}

// Preview runs the calculator without touching storage.
func (s *ExceptionService) Preview(ctx context.Context, req dto.PreviewAdjustmentRequest) (*models.AdjustmentResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preview payload")
	}
	result := ComputeAdjustedTargets(req.Original, req.ExceptionType, req.AdjustmentType, req.DurationDays)
	return &result, nil
}

func (s *ExceptionService) loadForReview(ctx context.Context, id string) (*models.ExceptionRequest, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load exception request")
	}
	if record.Status != models.ExceptionStatusPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "exception request already processed")
	}
	return record, nil
}

func (s *ExceptionService) notifyDecision(ctx context.Context, record *models.ExceptionRequest) {
	if !s.notifyOn || s.notifier == nil {
		return
	}
	title := "KPI exception approved"
	message := fmt.Sprintf("Your %s exception was approved through %s.",
		strings.ToLower(string(record.ExceptionType)), record.EndDate.Format("2006-01-02"))
	if record.Status == models.ExceptionStatusRejected {
		title = "KPI exception rejected"
		reason := ""
		if record.RejectionReason != nil {
			reason = *record.RejectionReason
		}
		message = fmt.Sprintf("Your %s exception was rejected: %s",
			strings.ToLower(string(record.ExceptionType)), reason)
	}
	if err := s.notifier.Notify(ctx, models.Notification{
		UserID:   record.UserID,
		Title:    title,
		Message:  message,
		Category: models.NotificationExceptionDecision,
	}); err != nil {
		s.logger.Warn("failed to queue decision notification",
			zap.String("exception_id", record.ID), zap.Error(err))
	}
}

func (s *ExceptionService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "exception-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func isKnownExceptionType(t models.ExceptionType) bool {
	switch t {
	case models.ExceptionInjury, models.ExceptionSickness, models.ExceptionBusinessTrip,
		models.ExceptionFamilyEvent, models.ExceptionPregnancy, models.ExceptionSwap,
		models.ExceptionOther:
		return true
	}
	return false
}

func isKnownAdjustmentType(t models.AdjustmentType) bool {
	switch t {
	case models.AdjustmentReduction, models.AdjustmentExemption, models.AdjustmentExtension,
		models.AdjustmentRunOnly, models.AdjustmentSwimOnly, models.AdjustmentCustom:
		return true
	}
	return false
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func marshalAudit(v interface{}) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return payload
}

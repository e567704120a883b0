package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fitness-admin-api/internal/dto"
	"github.com/noah-isme/fitness-admin-api/internal/models"
	"github.com/noah-isme/fitness-admin-api/internal/repository"
	appErrors "github.com/noah-isme/fitness-admin-api/pkg/errors"
)

type exceptionStoreStub struct {
	requests     map[string]*models.ExceptionRequest
	lastFilter   models.ExceptionFilter
	active       *models.ExceptionRequest
	lastActiveAt time.Time
}

func newExceptionStoreStub() *exceptionStoreStub {
	return &exceptionStoreStub{requests: make(map[string]*models.ExceptionRequest)}
}

func (s *exceptionStoreStub) Create(ctx context.Context, req *models.ExceptionRequest) error {
	if req.ID == "" {
		req.ID = "exc-" + req.UserID
	}
	req.Status = models.ExceptionStatusPending
	s.requests[req.ID] = req
	return nil
}

func (s *exceptionStoreStub) GetByID(ctx context.Context, id string) (*models.ExceptionRequest, error) {
	if req, ok := s.requests[id]; ok {
		copy := *req
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *exceptionStoreStub) List(ctx context.Context, filter models.ExceptionFilter) ([]models.ExceptionRequest, error) {
	s.lastFilter = filter
	result := make([]models.ExceptionRequest, 0, len(s.requests))
	for _, req := range s.requests {
		result = append(result, *req)
	}
	return result, nil
}

func (s *exceptionStoreStub) UpdateReview(ctx context.Context, params repository.ReviewExceptionParams) error {
	req, ok := s.requests[params.ID]
	if !ok || req.Status != models.ExceptionStatusPending {
		return sql.ErrNoRows
	}
	req.Status = params.Status
	req.ReviewedBy = &params.ReviewedBy
	req.ReviewedAt = &params.ReviewedAt
	req.ReviewNotes = params.ReviewNotes
	req.RejectionReason = params.RejectionReason
	req.AdjustedRunTargetKm = params.AdjustedRunKm
	req.AdjustedSwimTargetKm = params.AdjustedSwimKm
	return nil
}

func (s *exceptionStoreStub) FindActiveForUser(ctx context.Context, userID string, now time.Time) (*models.ExceptionRequest, error) {
	s.lastActiveAt = now
	if s.active != nil && s.active.UserID == userID && !s.active.EndDate.Before(now) {
		copy := *s.active
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *exceptionStoreStub) Stats(ctx context.Context) (*models.ExceptionStats, error) {
	return &models.ExceptionStats{Total: len(s.requests)}, nil
}

type profileStoreStub struct {
	users   map[string]*models.User
	applied []repository.ApplyKPIExceptionParams
	cleared []string
}

func newProfileStoreStub(users ...*models.User) *profileStoreStub {
	stub := &profileStoreStub{users: make(map[string]*models.User)}
	for _, u := range users {
		stub.users[u.ID] = u
	}
	return stub
}

func (s *profileStoreStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *profileStoreStub) ApplyKPIException(ctx context.Context, params repository.ApplyKPIExceptionParams) error {
	s.applied = append(s.applied, params)
	return nil
}

func (s *profileStoreStub) ClearKPIException(ctx context.Context, userID string) error {
	s.cleared = append(s.cleared, userID)
	return nil
}

func (s *profileStoreStub) ListActiveMembers(ctx context.Context) ([]models.User, error) {
	result := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		if u.Role == models.RoleMember && u.Status == models.UserStatusActive {
			result = append(result, *u)
		}
	}
	return result, nil
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type notifierStub struct {
	notes []models.Notification
}

func (n *notifierStub) Notify(ctx context.Context, note models.Notification) error {
	n.notes = append(n.notes, note)
	return nil
}

func testMember(id string) *models.User {
	return &models.User{
		ID:                  id,
		Email:               id + "@corp.example",
		FullName:            "Member " + id,
		Role:                models.RoleMember,
		Status:              models.UserStatusActive,
		MonthlyRunTargetKm:  100,
		MonthlySwimTargetKm: 20,
	}
}

func memberClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleMember}
}

func adminClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleAdmin}
}

func validCreateRequest(userID string) dto.CreateExceptionRequest {
	return dto.CreateExceptionRequest{
		UserID:         userID,
		ExceptionType:  models.ExceptionInjury,
		AdjustmentType: models.AdjustmentReduction,
		Reason:         "knee injury",
		StartDate:      "2026-09-01",
		EndDate:        "2026-09-30",
	}
}

func TestExceptionServiceSubmitDenormalizesSnapshot(t *testing.T) {
	store := newExceptionStoreStub()
	profiles := newProfileStoreStub(testMember("member-1"))
	audit := &auditStub{}
	svc := NewExceptionService(store, profiles, audit, nil)

	record, err := svc.Submit(context.Background(), validCreateRequest("member-1"), memberClaims("member-1"))
	require.NoError(t, err)
	require.Equal(t, models.ExceptionStatusPending, record.Status)
	require.Equal(t, "member-1@corp.example", record.UserEmail)
	require.Equal(t, 100.0, record.OriginalRunTargetKm)
	require.Equal(t, 20.0, record.OriginalSwimTargetKm)
	require.Nil(t, record.AdjustedTargets())
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionExceptionCreate, audit.logs[0].Action)
}

func TestExceptionServiceSubmitPrecomputesWhenRequested(t *testing.T) {
	store := newExceptionStoreStub()
	profiles := newProfileStoreStub(testMember("member-1"))
	svc := NewExceptionService(store, profiles, &auditStub{}, nil)

	req := validCreateRequest("member-1")
	req.Precompute = true
	record, err := svc.Submit(context.Background(), req, adminClaims("admin-1"))
	require.NoError(t, err)
	adjusted := record.AdjustedTargets()
	require.NotNil(t, adjusted)
	require.Equal(t, 50.0, adjusted.Run)
	require.Equal(t, 10.0, adjusted.Swim)
}

func TestExceptionServiceSubmitMemberCannotActForOthers(t *testing.T) {
	store := newExceptionStoreStub()
	profiles := newProfileStoreStub(testMember("member-1"), testMember("member-2"))
	svc := NewExceptionService(store, profiles, &auditStub{}, nil)

	_, err := svc.Submit(context.Background(), validCreateRequest("member-2"), memberClaims("member-1"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExceptionServiceSubmitRejectsInvertedWindow(t *testing.T) {
	store := newExceptionStoreStub()
	profiles := newProfileStoreStub(testMember("member-1"))
	svc := NewExceptionService(store, profiles, &auditStub{}, nil)

	req := validCreateRequest("member-1")
	req.StartDate = "2026-09-30"
	req.EndDate = "2026-09-01"
	_, err := svc.Submit(context.Background(), req, memberClaims("member-1"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExceptionServiceApproveComputesAndPropagates(t *testing.T) {
	store := newExceptionStoreStub()
	profiles := newProfileStoreStub(testMember("member-1"))
	audit := &auditStub{}
	fixedNow := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	svc := NewExceptionService(store, profiles, audit, nil, WithClock(func() time.Time { return fixedNow }))

	submitted, err := svc.Submit(context.Background(), validCreateRequest("member-1"), memberClaims("member-1"))
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), submitted.ID, dto.ApproveExceptionRequest{Notes: "doctor note attached"}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, models.ExceptionStatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedAt)
	require.Equal(t, fixedNow, *approved.ReviewedAt)

	adjusted := approved.AdjustedTargets()
	require.NotNil(t, adjusted)
	require.Equal(t, 50.0, adjusted.Run)
	require.Equal(t, 10.0, adjusted.Swim)

	require.Len(t, profiles.applied, 1)
	require.Equal(t, "member-1", profiles.applied[0].UserID)
	require.Equal(t, 50.0, profiles.applied[0].AdjustedRunKm)
	require.Equal(t, approved.EndDate, profiles.applied[0].Expiry)

	require.Len(t, audit.logs, 2)
	require.Equal(t, models.AuditActionExceptionApprove, audit.logs[1].Action)
}

func TestExceptionServiceApproveIsNotRepeatable(t *testing.T) {
	store := newExceptionStoreStub()
	profiles := newProfileStoreStub(testMember("member-1"))
	svc := NewExceptionService(store, profiles, &auditStub{}, nil)

	submitted, err := svc.Submit(context.Background(), validCreateRequest("member-1"), memberClaims("member-1"))
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), submitted.ID, dto.ApproveExceptionRequest{}, "admin-1")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), submitted.ID, dto.ApproveExceptionRequest{}, "admin-2")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAlreadyProcessed.Code, appErrors.FromError(err).Code)

	_, err = svc.Reject(context.Background(), submitted.ID, dto.RejectExceptionRequest{Reason: "late"}, "admin-2")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAlreadyProcessed.Code, appErrors.FromError(err).Code)
}

func TestExceptionServiceRejectRequiresReasonAndSkipsProfile(t *testing.T) {
	store := newExceptionStoreStub()
	profiles := newProfileStoreStub(testMember("member-1"))
	svc := NewExceptionService(store, profiles, &auditStub{}, nil)

	submitted, err := svc.Submit(context.Background(), validCreateRequest("member-1"), memberClaims("member-1"))
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), submitted.ID, dto.RejectExceptionRequest{Reason: "   "}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	rejected, err := svc.Reject(context.Background(), submitted.ID, dto.RejectExceptionRequest{Reason: "no evidence"}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, models.ExceptionStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	require.Equal(t, "no evidence", *rejected.RejectionReason)
	require.Empty(t, profiles.applied)
}

func TestExceptionServiceListScopesMembersToThemselves(t *testing.T) {
	store := newExceptionStoreStub()
	profiles := newProfileStoreStub(testMember("member-1"))
	svc := NewExceptionService(store, profiles, &auditStub{}, nil)

	_, err := svc.List(context.Background(), dto.ExceptionQuery{UserID: "member-2"}, memberClaims("member-1"))
	require.NoError(t, err)
	require.Equal(t, "member-1", store.lastFilter.UserID)

	_, err = svc.List(context.Background(), dto.ExceptionQuery{UserID: "member-2"}, adminClaims("admin-1"))
	require.NoError(t, err)
	require.Equal(t, "member-2", store.lastFilter.UserID)
}

func TestExceptionServiceActiveForUserWithoutMatch(t *testing.T) {
	store := newExceptionStoreStub()
	svc := NewExceptionService(store, newProfileStoreStub(), &auditStub{}, nil)

	active, err := svc.ActiveForUser(context.Background(), "member-1")
	require.NoError(t, err)
	require.False(t, active.Active)
	require.Nil(t, active.Exception)
}

func TestExceptionServiceGetDerivesExpiredStatus(t *testing.T) {
	store := newExceptionStoreStub()
	profiles := newProfileStoreStub(testMember("member-1"))
	fixedNow := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	svc := NewExceptionService(store, profiles, &auditStub{}, nil, WithClock(func() time.Time { return fixedNow }))

	submitted, err := svc.Submit(context.Background(), validCreateRequest("member-1"), memberClaims("member-1"))
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), submitted.ID, dto.ApproveExceptionRequest{}, "admin-1")
	require.NoError(t, err)

	detail, err := svc.Get(context.Background(), submitted.ID, adminClaims("admin-1"))
	require.NoError(t, err)
	require.Equal(t, models.ExceptionStatusApproved, detail.Status)
	require.Equal(t, models.ExceptionStatusExpired, detail.EffectiveStatus)
}

func TestExceptionServiceGetStaysActiveThroughEndDate(t *testing.T) {
	store := newExceptionStoreStub()
	profiles := newProfileStoreStub(testMember("member-1"))
	clock := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	svc := NewExceptionService(store, profiles, &auditStub{}, nil, WithClock(func() time.Time { return clock }))

	submitted, err := svc.Submit(context.Background(), validCreateRequest("member-1"), memberClaims("member-1"))
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), submitted.ID, dto.ApproveExceptionRequest{}, "admin-1")
	require.NoError(t, err)

	// Midday on the end date itself: still active.
	clock = time.Date(2026, 9, 30, 12, 0, 0, 0, time.UTC)
	detail, err := svc.Get(context.Background(), submitted.ID, adminClaims("admin-1"))
	require.NoError(t, err)
	require.Equal(t, models.ExceptionStatusApproved, detail.EffectiveStatus)

	// The next day it reads as expired.
	clock = time.Date(2026, 10, 1, 0, 0, 1, 0, time.UTC)
	detail, err = svc.Get(context.Background(), submitted.ID, adminClaims("admin-1"))
	require.NoError(t, err)
	require.Equal(t, models.ExceptionStatusExpired, detail.EffectiveStatus)
}

func TestExceptionServiceActiveLookupUsesDayBoundary(t *testing.T) {
	store := newExceptionStoreStub()
	run, swim := 50.0, 10.0
	store.active = &models.ExceptionRequest{
		ID:                   "exc-member-1",
		UserID:               "member-1",
		Status:               models.ExceptionStatusApproved,
		EndDate:              time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
		AdjustedRunTargetKm:  &run,
		AdjustedSwimTargetKm: &swim,
	}
	clock := time.Date(2026, 9, 30, 23, 59, 0, 0, time.UTC)
	svc := NewExceptionService(store, newProfileStoreStub(), &auditStub{}, nil, WithClock(func() time.Time { return clock }))

	active, err := svc.ActiveForUser(context.Background(), "member-1")
	require.NoError(t, err)
	require.True(t, active.Active)
	require.Equal(t, time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC), store.lastActiveAt)
}

func TestExceptionServiceDecisionNotifications(t *testing.T) {
	store := newExceptionStoreStub()
	profiles := newProfileStoreStub(testMember("member-1"))
	notifier := &notifierStub{}
	svc := NewExceptionService(store, profiles, &auditStub{}, nil, WithDecisionNotifier(notifier))

	submitted, err := svc.Submit(context.Background(), validCreateRequest("member-1"), memberClaims("member-1"))
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), submitted.ID, dto.ApproveExceptionRequest{}, "admin-1")
	require.NoError(t, err)

	require.Len(t, notifier.notes, 1)
	require.Equal(t, "member-1", notifier.notes[0].UserID)
	require.Equal(t, models.NotificationExceptionDecision, notifier.notes[0].Category)
}

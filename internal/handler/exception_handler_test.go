package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fitness-admin-api/internal/dto"
	"github.com/noah-isme/fitness-admin-api/internal/middleware"
	"github.com/noah-isme/fitness-admin-api/internal/models"
)

type exceptionServiceMock struct {
	submitted *dto.CreateExceptionRequest
	approveID string
	rejectID  string
}

func (m *exceptionServiceMock) Submit(ctx context.Context, req dto.CreateExceptionRequest, actor *models.JWTClaims) (*models.ExceptionRequest, error) {
	m.submitted = &req
	return &models.ExceptionRequest{ID: "exc-1", UserID: req.UserID, Status: models.ExceptionStatusPending}, nil
}

func (m *exceptionServiceMock) Approve(ctx context.Context, id string, req dto.ApproveExceptionRequest, approverID string) (*models.ExceptionRequest, error) {
	m.approveID = id
	return &models.ExceptionRequest{ID: id, Status: models.ExceptionStatusApproved}, nil
}

func (m *exceptionServiceMock) Reject(ctx context.Context, id string, req dto.RejectExceptionRequest, rejectorID string) (*models.ExceptionRequest, error) {
	m.rejectID = id
	return &models.ExceptionRequest{ID: id, Status: models.ExceptionStatusRejected}, nil
}

func (m *exceptionServiceMock) List(ctx context.Context, query dto.ExceptionQuery, actor *models.JWTClaims) ([]models.ExceptionRequest, error) {
	return []models.ExceptionRequest{}, nil
}

func (m *exceptionServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.ExceptionDetail, error) {
	return &dto.ExceptionDetail{ExceptionRequest: &models.ExceptionRequest{ID: id}}, nil
}

func (m *exceptionServiceMock) ActiveForUser(ctx context.Context, userID string) (*models.ActiveException, error) {
	return &models.ActiveException{Active: false}, nil
}

func (m *exceptionServiceMock) Stats(ctx context.Context) (*models.ExceptionStats, error) {
	return &models.ExceptionStats{}, nil
}

func (m *exceptionServiceMock) Preview(ctx context.Context, req dto.PreviewAdjustmentRequest) (*models.AdjustmentResult, error) {
	return &models.AdjustmentResult{}, nil
}

func testContext(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return w, c
}

func TestExceptionHandlerCreate(t *testing.T) {
	mock := &exceptionServiceMock{}
	h := NewExceptionHandler(mock, nil)
	w, c := testContext(t, http.MethodPost, "/exceptions", dto.CreateExceptionRequest{
		UserID:         "member-1",
		ExceptionType:  models.ExceptionInjury,
		AdjustmentType: models.AdjustmentReduction,
		Reason:         "knee injury",
		StartDate:      "2026-09-01",
		EndDate:        "2026-09-30",
	})
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "member-1", Role: models.RoleMember})

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, mock.submitted)
	require.Equal(t, "member-1", mock.submitted.UserID)
}

func TestExceptionHandlerCreateWithoutClaims(t *testing.T) {
	h := NewExceptionHandler(&exceptionServiceMock{}, nil)
	w, c := testContext(t, http.MethodPost, "/exceptions", dto.CreateExceptionRequest{
		UserID:         "member-1",
		ExceptionType:  models.ExceptionInjury,
		AdjustmentType: models.AdjustmentReduction,
		Reason:         "knee injury",
		StartDate:      "2026-09-01",
		EndDate:        "2026-09-30",
	})

	h.Create(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExceptionHandlerRejectInvalidBody(t *testing.T) {
	h := NewExceptionHandler(&exceptionServiceMock{}, nil)
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/exceptions/exc-1/reject", bytes.NewReader([]byte(`not-json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "exc-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	h.Reject(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExceptionHandlerApproveWithoutBody(t *testing.T) {
	mock := &exceptionServiceMock{}
	h := NewExceptionHandler(mock, nil)
	w, c := testContext(t, http.MethodPost, "/exceptions/exc-1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "exc-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	h.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "exc-1", mock.approveID)
}

type invalidatorStub struct {
	calls int
}

func (s *invalidatorStub) Invalidate(ctx context.Context) {
	s.calls++
}

func TestExceptionHandlerApproveInvalidatesDashboard(t *testing.T) {
	dashboard := &invalidatorStub{}
	h := NewExceptionHandler(&exceptionServiceMock{}, dashboard)
	w, c := testContext(t, http.MethodPost, "/exceptions/exc-1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "exc-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	h.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, dashboard.calls)
}

func TestExceptionHandlerActiveScopesMembers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewExceptionHandler(&exceptionServiceMock{}, nil)
	r := gin.New()
	guard := middleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin), "SELF")
	r.GET("/users/:id/active-exception", func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "member-1", Role: models.RoleMember})
	}, guard, h.Active)

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/users/member-2/active-exception", nil)
	require.NoError(t, err)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req, err = http.NewRequest(http.MethodGet, "/users/member-1/active-exception", nil)
	require.NoError(t, err)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

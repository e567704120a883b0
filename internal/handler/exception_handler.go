package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fitness-admin-api/internal/dto"
	"github.com/noah-isme/fitness-admin-api/internal/models"
	appErrors "github.com/noah-isme/fitness-admin-api/pkg/errors"
	"github.com/noah-isme/fitness-admin-api/pkg/response"
)

type exceptionService interface {
	Submit(ctx context.Context, req dto.CreateExceptionRequest, actor *models.JWTClaims) (*models.ExceptionRequest, error)
	Approve(ctx context.Context, id string, req dto.ApproveExceptionRequest, approverID string) (*models.ExceptionRequest, error)
	Reject(ctx context.Context, id string, req dto.RejectExceptionRequest, rejectorID string) (*models.ExceptionRequest, error)
	List(ctx context.Context, query dto.ExceptionQuery, actor *models.JWTClaims) ([]models.ExceptionRequest, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.ExceptionDetail, error)
	ActiveForUser(ctx context.Context, userID string) (*models.ActiveException, error)
	Stats(ctx context.Context) (*models.ExceptionStats, error)
	Preview(ctx context.Context, req dto.PreviewAdjustmentRequest) (*models.AdjustmentResult, error)
}

// dashboardInvalidator drops cached dashboard payloads after a decision
// changes the numbers the dashboard reports.
type dashboardInvalidator interface {
	Invalidate(ctx context.Context)
}

// ExceptionHandler exposes REST endpoints for the KPI exception workflow.
type ExceptionHandler struct {
	service   exceptionService
	dashboard dashboardInvalidator
}

// NewExceptionHandler constructs the handler.
func NewExceptionHandler(service exceptionService, dashboard dashboardInvalidator) *ExceptionHandler {
	return &ExceptionHandler{service: service, dashboard: dashboard}
}

func invalidateDashboard(c *gin.Context, dashboard dashboardInvalidator) {
	if dashboard != nil {
		dashboard.Invalidate(c.Request.Context())
	}
}

// Create godoc
// @Summary Submit a KPI exception request
// @Tags Exceptions
// @Accept json
// @Produce json
// @Param payload body dto.CreateExceptionRequest true "Exception payload"
// @Success 201 {object} response.Envelope
// @Router /exceptions [post]
func (h *ExceptionHandler) Create(c *gin.Context) {
	var req dto.CreateExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid exception payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.service.Submit(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, record, nil)
}

// List godoc
// @Summary List KPI exception requests
// @Tags Exceptions
// @Produce json
// @Param status query string false "Workflow status"
// @Param user_id query string false "Filter by user"
// @Param type query string false "Exception type"
// @Success 200 {object} response.Envelope
// @Router /exceptions [get]
func (h *ExceptionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.ExceptionQuery{
		UserID: strings.TrimSpace(c.Query("user_id")),
	}
	if raw := c.Query("status"); raw != "" {
		query.Status = models.ExceptionStatus(strings.ToUpper(strings.TrimSpace(raw)))
	}
	if raw := c.Query("type"); raw != "" {
		query.ExceptionType = models.ExceptionType(strings.ToUpper(strings.TrimSpace(raw)))
	}
	query.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	query.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	requests, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Fetch a single exception request
// @Tags Exceptions
// @Produce json
// @Param id path string true "Exception id"
// @Success 200 {object} response.Envelope
// @Router /exceptions/{id} [get]
func (h *ExceptionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Approve godoc
// @Summary Approve a pending exception request
// @Tags Exceptions
// @Accept json
// @Produce json
// @Param id path string true "Exception id"
// @Param payload body dto.ApproveExceptionRequest false "Optional reviewer notes"
// @Success 200 {object} response.Envelope
// @Router /exceptions/{id}/approve [post]
func (h *ExceptionHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ApproveExceptionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval payload"))
			return
		}
	}
	record, err := h.service.Approve(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	invalidateDashboard(c, h.dashboard)
	response.JSON(c, http.StatusOK, record, nil)
}

// Reject godoc
// @Summary Reject a pending exception request
// @Tags Exceptions
// @Accept json
// @Produce json
// @Param id path string true "Exception id"
// @Param payload body dto.RejectExceptionRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /exceptions/{id}/reject [post]
func (h *ExceptionHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RejectExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rejection payload"))
		return
	}
	record, err := h.service.Reject(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	invalidateDashboard(c, h.dashboard)
	response.JSON(c, http.StatusOK, record, nil)
}

// Active godoc
// @Summary Look up a user's active exception
// @Tags Exceptions
// @Produce json
// @Param id path string true "User id"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/active-exception [get]
func (h *ExceptionHandler) Active(c *gin.Context) {
	active, err := h.service.ActiveForUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, active, nil)
}

// Stats godoc
// @Summary Aggregate exception statistics
// @Tags Exceptions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /exceptions/stats [get]
func (h *ExceptionHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Preview godoc
// @Summary Dry-run the target adjustment calculator
// @Tags Exceptions
// @Accept json
// @Produce json
// @Param payload body dto.PreviewAdjustmentRequest true "Preview payload"
// @Success 200 {object} response.Envelope
// @Router /exceptions/preview [post]
func (h *ExceptionHandler) Preview(c *gin.Context) {
	var req dto.PreviewAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid preview payload"))
		return
	}
	result, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

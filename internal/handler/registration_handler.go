package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fitness-admin-api/internal/dto"
	"github.com/noah-isme/fitness-admin-api/internal/models"
	appErrors "github.com/noah-isme/fitness-admin-api/pkg/errors"
	"github.com/noah-isme/fitness-admin-api/pkg/response"
)

type registrationService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error)
	ListPending(ctx context.Context) ([]models.User, error)
	Approve(ctx context.Context, userID, approverID string) (*models.User, error)
	Reject(ctx context.Context, userID, rejectorID string, req dto.RejectRegistrationRequest) (*models.User, error)
}

// RegistrationHandler exposes signup and the admin approval queue.
type RegistrationHandler struct {
	service   registrationService
	dashboard dashboardInvalidator
}

// NewRegistrationHandler constructs the handler.
func NewRegistrationHandler(service registrationService, dashboard dashboardInvalidator) *RegistrationHandler {
	return &RegistrationHandler{service: service, dashboard: dashboard}
}

// Register godoc
// @Summary Register a new member account
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body dto.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Router /auth/register [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid registration payload"))
		return
	}
	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, user, nil)
}

// ListPending godoc
// @Summary List registrations awaiting review
// @Tags Registrations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /registrations/pending [get]
func (h *RegistrationHandler) ListPending(c *gin.Context) {
	users, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, nil)
}

// Approve godoc
// @Summary Approve a pending registration
// @Tags Registrations
// @Produce json
// @Param id path string true "User id"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/approve [post]
func (h *RegistrationHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	user, err := h.service.Approve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	invalidateDashboard(c, h.dashboard)
	response.JSON(c, http.StatusOK, user, nil)
}

// Reject godoc
// @Summary Reject a pending registration
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "User id"
// @Param payload body dto.RejectRegistrationRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/reject [post]
func (h *RegistrationHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RejectRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rejection payload"))
		return
	}
	user, err := h.service.Reject(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	invalidateDashboard(c, h.dashboard)
	response.JSON(c, http.StatusOK, user, nil)
}

package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fitness-admin-api/internal/dto"
	"github.com/noah-isme/fitness-admin-api/internal/models"
	appErrors "github.com/noah-isme/fitness-admin-api/pkg/errors"
	"github.com/noah-isme/fitness-admin-api/pkg/response"
)

type penaltyService interface {
	RecordActuals(ctx context.Context, req dto.UpsertKPIActualsRequest, actorID string) (*models.KPIRecord, error)
	ComputeForUser(ctx context.Context, userID string, year, month int) (*models.PenaltyBreakdown, error)
	MonthlyReport(ctx context.Context, year, month int) (*models.PenaltyReport, error)
	ExportCSV(ctx context.Context, year, month int) ([]byte, error)
	ExportPDF(ctx context.Context, year, month int) ([]byte, error)
}

// PenaltyHandler exposes KPI actuals recording and penalty reporting.
type PenaltyHandler struct {
	service   penaltyService
	dashboard dashboardInvalidator
}

// NewPenaltyHandler constructs the handler.
func NewPenaltyHandler(service penaltyService, dashboard dashboardInvalidator) *PenaltyHandler {
	return &PenaltyHandler{service: service, dashboard: dashboard}
}

// RecordActuals godoc
// @Summary Record a member's distances for a month
// @Tags Penalties
// @Accept json
// @Produce json
// @Param payload body dto.UpsertKPIActualsRequest true "Actuals payload"
// @Success 200 {object} response.Envelope
// @Router /kpi/actuals [put]
func (h *PenaltyHandler) RecordActuals(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpsertKPIActualsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid kpi payload"))
		return
	}
	record, err := h.service.RecordActuals(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	invalidateDashboard(c, h.dashboard)
	response.JSON(c, http.StatusOK, record, nil)
}

// MemberPenalty godoc
// @Summary Compute one member's penalty for a period
// @Tags Penalties
// @Produce json
// @Param id path string true "User id"
// @Param year query int false "Year, defaults to current"
// @Param month query int false "Month, defaults to current"
// @Success 200 {object} response.Envelope
// @Router /penalties/users/{id} [get]
func (h *PenaltyHandler) MemberPenalty(c *gin.Context) {
	year, month, err := periodFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	breakdown, err := h.service.ComputeForUser(c.Request.Context(), c.Param("id"), year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, breakdown, nil)
}

// Report godoc
// @Summary Monthly penalty report across all members
// @Tags Penalties
// @Produce json
// @Param year query int false "Year, defaults to current"
// @Param month query int false "Month, defaults to current"
// @Success 200 {object} response.Envelope
// @Router /penalties/report [get]
func (h *PenaltyHandler) Report(c *gin.Context) {
	year, month, err := periodFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.MonthlyReport(c.Request.Context(), year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Export godoc
// @Summary Export the monthly penalty report
// @Tags Penalties
// @Produce text/csv
// @Param year query int false "Year, defaults to current"
// @Param month query int false "Month, defaults to current"
// @Param format query string false "csv or pdf"
// @Success 200 {file} byte
// @Router /penalties/report/export [get]
func (h *PenaltyHandler) Export(c *gin.Context) {
	year, month, err := periodFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	name := fmt.Sprintf("penalty-report-%04d-%02d", year, month)
	switch c.DefaultQuery("format", "csv") {
	case "pdf":
		data, err := h.service.ExportPDF(c.Request.Context(), year, month)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", name))
		c.Data(http.StatusOK, "application/pdf", data)
	case "csv":
		data, err := h.service.ExportCSV(c.Request.Context(), year, month)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", name))
		c.Data(http.StatusOK, "text/csv", data)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}

func periodFromQuery(c *gin.Context) (int, int, error) {
	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, appErrors.Clone(appErrors.ErrValidation, "year must be an integer")
		}
		year = parsed
	}
	if raw := c.Query("month"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			return 0, 0, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
		}
		month = parsed
	}
	return year, month, nil
}

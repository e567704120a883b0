package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/fitness-admin-api/internal/dto"
	"github.com/noah-isme/fitness-admin-api/internal/models"
	"github.com/noah-isme/fitness-admin-api/pkg/config"
	appErrors "github.com/noah-isme/fitness-admin-api/pkg/errors"
	"github.com/noah-isme/fitness-admin-api/pkg/export"
)

type kpiStore interface {
	Upsert(ctx context.Context, record *models.KPIRecord) error
	GetForUser(ctx context.Context, userID string, year, month int) (*models.KPIRecord, error)
	ListForPeriod(ctx context.Context, year, month int) (map[string]models.KPIRecord, error)
}

type memberDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	ListActiveMembers(ctx context.Context) ([]models.User, error)
	ClearKPIException(ctx context.Context, userID string) error
}

type activeExceptionFinder interface {
	FindActiveForUser(ctx context.Context, userID string, now time.Time) (*models.ExceptionRequest, error)
}

type tableExporter interface {
	Render(data export.Dataset) ([]byte, error)
}

type documentExporter interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// PenaltyService resolves each member's effective monthly targets and
// converts shortfalls against recorded actuals into financial penalties.
type PenaltyService struct {
	kpi        kpiStore
	members    memberDirectory
	exceptions activeExceptionFinder
	audit      auditLogger
	csv        tableExporter
	pdf        documentExporter
	rates      config.PenaltyConfig
	logger     *zap.Logger
	validate   *validator.Validate
	now        func() time.Time
}

// NewPenaltyService constructs the service with the configured rates.
func NewPenaltyService(kpi kpiStore, members memberDirectory, exceptions activeExceptionFinder, audit auditLogger, rates config.PenaltyConfig, logger *zap.Logger) *PenaltyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PenaltyService{
		kpi:        kpi,
		members:    members,
		exceptions: exceptions,
		audit:      audit,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		rates:      rates,
		logger:     logger,
		validate:   validator.New(),
		now:        time.Now,
	}
}

// RecordActuals upserts a member's distances for the period.
func (s *PenaltyService) RecordActuals(ctx context.Context, req dto.UpsertKPIActualsRequest, actorID string) (*models.KPIRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid kpi payload")
	}
	if _, err := s.members.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load user")
	}
	record := &models.KPIRecord{
		UserID:       req.UserID,
		Year:         req.Year,
		Month:        req.Month,
		RunActualKm:  req.RunActualKm,
		SwimActualKm: req.SwimActualKm,
	}
	if err := s.kpi.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store kpi record")
	}
	if s.audit != nil {
		log := &models.AuditLog{
			UserID:     &actorID,
			Action:     models.AuditActionKPIUpsert,
			Resource:   "kpi_record",
			ResourceID: &record.ID,
			NewValues:  marshalAudit(record),
			IPAddress:  "system",
			UserAgent:  "penalty-service",
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to persist audit log", zap.Error(err))
		}
	}
	return record, nil
}

// ComputeForUser resolves the member's effective targets and prices their
// shortfall for the period. A missing actuals record counts as zero
// distance in both disciplines.
func (s *PenaltyService) ComputeForUser(ctx context.Context, userID string, year, month int) (*models.PenaltyBreakdown, error) {
	user, err := s.members.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load user")
	}

	actuals := models.KPITargets{}
	record, err := s.kpi.GetForUser(ctx, userID, year, month)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load kpi record")
	}
	if record != nil {
		actuals = models.KPITargets{Run: record.RunActualKm, Swim: record.SwimActualKm}
	}

	targets, exceptionID := s.effectiveTargets(ctx, user)
	breakdown := s.price(targets, actuals)
	breakdown.ExceptionID = exceptionID
	return &breakdown, nil
}

// MonthlyReport computes penalties across every active member.
func (s *PenaltyService) MonthlyReport(ctx context.Context, year, month int) (*models.PenaltyReport, error) {
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	members, err := s.members.ListActiveMembers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list members")
	}
	records, err := s.kpi.ListForPeriod(ctx, year, month)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load kpi records")
	}

	report := &models.PenaltyReport{
		Year:     year,
		Month:    month,
		Currency: s.rates.Currency,
		Members:  make([]models.MemberPenalty, 0, len(members)),
	}
	for i := range members {
		member := &members[i]
		actuals := models.KPITargets{}
		if record, ok := records[member.ID]; ok {
			actuals = models.KPITargets{Run: record.RunActualKm, Swim: record.SwimActualKm}
		}
		targets, exceptionID := s.effectiveTargets(ctx, member)
		breakdown := s.price(targets, actuals)
		breakdown.ExceptionID = exceptionID
		report.Members = append(report.Members, models.MemberPenalty{
			UserID:   member.ID,
			Email:    member.Email,
			FullName: member.FullName,
			Penalty:  breakdown,
		})
		report.Total = round2(report.Total + breakdown.Total)
	}
	return report, nil
}

// ExportCSV renders the monthly report as CSV bytes.
func (s *PenaltyService) ExportCSV(ctx context.Context, year, month int) ([]byte, error) {
	report, err := s.MonthlyReport(ctx, year, month)
	if err != nil {
		return nil, err
	}
	data, err := s.csv.Render(reportDataset(report))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return data, nil
}

// ExportPDF renders the monthly report as a tabular PDF.
func (s *PenaltyService) ExportPDF(ctx context.Context, year, month int) ([]byte, error) {
	report, err := s.MonthlyReport(ctx, year, month)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Penalty Report %04d-%02d", report.Year, report.Month)
	data, err := s.pdf.Render(reportDataset(report), title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return data, nil
}

// effectiveTargets resolves the targets the member is held to. The profile
// flag is treated as a hint: the approved request table is the source of
// truth, and a stale flag is repaired in place when no active exception
// backs it.
func (s *PenaltyService) effectiveTargets(ctx context.Context, user *models.User) (models.KPITargets, *string) {
	if !user.KPIExceptionActive {
		return user.BaseTargets(), nil
	}
	record, err := s.exceptions.FindActiveForUser(ctx, user.ID, models.StartOfDay(s.now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if clearErr := s.members.ClearKPIException(ctx, user.ID); clearErr != nil {
				s.logger.Warn("failed to clear lapsed exception flag",
					zap.String("user_id", user.ID), zap.Error(clearErr))
			}
			return user.BaseTargets(), nil
		}
		s.logger.Error("active exception lookup failed, falling back to base targets",
			zap.String("user_id", user.ID), zap.Error(err))
		return user.BaseTargets(), nil
	}
	if adjusted := record.AdjustedTargets(); adjusted != nil {
		return *adjusted, &record.ID
	}
	return user.BaseTargets(), nil
}

func (s *PenaltyService) price(targets, actuals models.KPITargets) models.PenaltyBreakdown {
	runShortfall := math.Max(0, targets.Run-actuals.Run)
	swimShortfall := math.Max(0, targets.Swim-actuals.Swim)
	runPenalty := round2(runShortfall * s.rates.RunRatePerKm)
	swimPenalty := round2(swimShortfall * s.rates.SwimRatePerKm)
	return models.PenaltyBreakdown{
		Targets:       targets,
		Actuals:       actuals,
		RunShortfall:  runShortfall,
		SwimShortfall: swimShortfall,
		RunPenalty:    runPenalty,
		SwimPenalty:   swimPenalty,
		Total:         round2(runPenalty + swimPenalty),
	}
}

func reportDataset(report *models.PenaltyReport) export.Dataset {
	headers := []string{"Member", "Email", "Run Target", "Run Actual", "Swim Target", "Swim Actual", "Penalty"}
	rows := make([]map[string]string, 0, len(report.Members))
	for _, member := range report.Members {
		rows = append(rows, map[string]string{
			"Member":      member.FullName,
			"Email":       member.Email,
			"Run Target":  fmt.Sprintf("%.1f", member.Penalty.Targets.Run),
			"Run Actual":  fmt.Sprintf("%.1f", member.Penalty.Actuals.Run),
			"Swim Target": fmt.Sprintf("%.1f", member.Penalty.Targets.Swim),
			"Swim Actual": fmt.Sprintf("%.1f", member.Penalty.Actuals.Swim),
			"Penalty":     fmt.Sprintf("%.2f %s", member.Penalty.Total, report.Currency),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

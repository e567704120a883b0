package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fitness-admin-api/internal/dto"
	"github.com/noah-isme/fitness-admin-api/internal/models"
	"github.com/noah-isme/fitness-admin-api/pkg/config"
	appErrors "github.com/noah-isme/fitness-admin-api/pkg/errors"
)

type exceptionStatsProvider interface {
	Stats(ctx context.Context) (*models.ExceptionStats, error)
}

type registrationCounter interface {
	CountByStatus(ctx context.Context, status models.UserStatus) (int, error)
}

type penaltyReporter interface {
	MonthlyReport(ctx context.Context, year, month int) (*models.PenaltyReport, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type dashboardMetrics interface {
	RecordCacheOperation(hit bool)
	ObserveDBQuery(label string, duration time.Duration)
}

// DashboardService assembles the admin landing page summary. Payloads are
// cached in Redis per period; cache failures degrade to a direct read.
type DashboardService struct {
	exceptions    exceptionStatsProvider
	registrations registrationCounter
	penalties     penaltyReporter
	cache         dashboardCache
	metrics       dashboardMetrics
	cfg           config.DashboardConfig
	logger        *zap.Logger
	now           func() time.Time
}

// NewDashboardService constructs the service.
func NewDashboardService(exceptions exceptionStatsProvider, registrations registrationCounter, penalties penaltyReporter, cache dashboardCache, metrics dashboardMetrics, cfg config.DashboardConfig, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		exceptions:    exceptions,
		registrations: registrations,
		penalties:     penalties,
		cache:         cache,
		metrics:       metrics,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// AdminSummary returns the dashboard payload for the current month.
func (s *DashboardService) AdminSummary(ctx context.Context) (*dto.AdminDashboardResponse, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "dashboard disabled")
	}
	now := s.now().UTC()
	year, month := now.Year(), int(now.Month())
	key := dashboardCacheKey(year, month)

	if s.cache != nil {
		var cached dto.AdminDashboardResponse
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			s.recordCacheHit(true)
			return &cached, nil
		}
		s.recordCacheHit(false)
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	summary, err := s.build(ctx, year, month)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return summary, nil
}

// Invalidate drops all cached dashboard payloads. Called after decisions
// that change what the dashboard reports.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) build(ctx context.Context, year, month int) (*dto.AdminDashboardResponse, error) {
	start := time.Now()
	stats, err := s.exceptions.Stats(ctx)
	if err != nil {
		return nil, err
	}
	s.observeQuery("exception_stats", start)

	start = time.Now()
	pending, err := s.registrations.CountByStatus(ctx, models.UserStatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to count pending registrations")
	}
	s.observeQuery("pending_registrations", start)

	start = time.Now()
	report, err := s.penalties.MonthlyReport(ctx, year, month)
	if err != nil {
		return nil, err
	}
	s.observeQuery("penalty_report", start)
	return &dto.AdminDashboardResponse{
		ExceptionStats:       stats,
		PendingRegistrations: pending,
		PenaltyTotal:         report.Total,
		PenaltyCurrency:      report.Currency,
		Year:                 year,
		Month:                month,
	}, nil
}

func (s *DashboardService) recordCacheHit(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit)
	}
}

func (s *DashboardService) observeQuery(label string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

func dashboardCacheKey(year, month int) string {
	return fmt.Sprintf("dashboard:admin:%04d-%02d", year, month)
}

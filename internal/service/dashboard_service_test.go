package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fitness-admin-api/internal/models"
	"github.com/noah-isme/fitness-admin-api/pkg/config"
	appErrors "github.com/noah-isme/fitness-admin-api/pkg/errors"
)

type statsProviderStub struct {
	stats models.ExceptionStats
}

func (s *statsProviderStub) Stats(ctx context.Context) (*models.ExceptionStats, error) {
	stats := s.stats
	return &stats, nil
}

type registrationCounterStub struct {
	pending int
}

func (s *registrationCounterStub) CountByStatus(ctx context.Context, status models.UserStatus) (int, error) {
	return s.pending, nil
}

type penaltyReporterStub struct {
	calls  int
	report models.PenaltyReport
}

func (s *penaltyReporterStub) MonthlyReport(ctx context.Context, year, month int) (*models.PenaltyReport, error) {
	s.calls++
	report := s.report
	report.Year, report.Month = year, month
	return &report, nil
}

type dashboardCacheStub struct {
	entries map[string][]byte
	deleted []string
}

func newDashboardCacheStub() *dashboardCacheStub {
	return &dashboardCacheStub{entries: map[string][]byte{}}
}

func (c *dashboardCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *dashboardCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *dashboardCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.deleted = append(c.deleted, pattern)
	c.entries = map[string][]byte{}
	return nil
}

type dashboardMetricsStub struct {
	cacheOps []bool
	queries  []string
}

func (m *dashboardMetricsStub) RecordCacheOperation(hit bool) {
	m.cacheOps = append(m.cacheOps, hit)
}

func (m *dashboardMetricsStub) ObserveDBQuery(label string, duration time.Duration) {
	m.queries = append(m.queries, label)
}

func newDashboardFixture(enabled bool, cache dashboardCache) (*DashboardService, *penaltyReporterStub) {
	reporter := &penaltyReporterStub{report: models.PenaltyReport{Currency: "USD", Total: 750}}
	svc := NewDashboardService(
		&statsProviderStub{stats: models.ExceptionStats{Total: 5}},
		&registrationCounterStub{pending: 2},
		reporter,
		cache,
		nil,
		config.DashboardConfig{Enabled: enabled, CacheTTL: time.Minute},
		nil,
	)
	svc.now = func() time.Time { return time.Date(2026, time.September, 10, 12, 0, 0, 0, time.UTC) }
	return svc, reporter
}

func TestDashboardServiceBuildsSummary(t *testing.T) {
	svc, _ := newDashboardFixture(true, nil)

	summary, err := svc.AdminSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, summary.ExceptionStats.Total)
	require.Equal(t, 2, summary.PendingRegistrations)
	require.Equal(t, 750.0, summary.PenaltyTotal)
	require.Equal(t, "USD", summary.PenaltyCurrency)
	require.Equal(t, 2026, summary.Year)
	require.Equal(t, 9, summary.Month)
}

func TestDashboardServiceServesFromCache(t *testing.T) {
	cache := newDashboardCacheStub()
	svc, reporter := newDashboardFixture(true, cache)

	first, err := svc.AdminSummary(context.Background())
	require.NoError(t, err)
	second, err := svc.AdminSummary(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, reporter.calls)
	require.Equal(t, first.PenaltyTotal, second.PenaltyTotal)
	require.Contains(t, cache.entries, "dashboard:admin:2026-09")
}

func TestDashboardServiceDisabled(t *testing.T) {
	svc, _ := newDashboardFixture(false, nil)

	_, err := svc.AdminSummary(context.Background())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDashboardServiceRecordsMetrics(t *testing.T) {
	cache := newDashboardCacheStub()
	svc, _ := newDashboardFixture(true, cache)
	metrics := &dashboardMetricsStub{}
	svc.metrics = metrics

	_, err := svc.AdminSummary(context.Background())
	require.NoError(t, err)
	_, err = svc.AdminSummary(context.Background())
	require.NoError(t, err)

	require.Equal(t, []bool{false, true}, metrics.cacheOps)
	require.Equal(t, []string{"exception_stats", "pending_registrations", "penalty_report"}, metrics.queries)
}

func TestDashboardServiceInvalidateClearsCache(t *testing.T) {
	cache := newDashboardCacheStub()
	svc, reporter := newDashboardFixture(true, cache)

	_, err := svc.AdminSummary(context.Background())
	require.NoError(t, err)
	svc.Invalidate(context.Background())

	_, err = svc.AdminSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"dashboard:*"}, cache.deleted)
	require.Equal(t, 2, reporter.calls)
}

package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fitness-admin-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func exceptionRows(id string, status models.ExceptionStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "user_email", "user_name", "exception_type", "adjustment_type",
		"reason", "evidence", "notes", "start_date", "end_date",
		"original_run_target_km", "original_swim_target_km", "adjusted_run_target_km", "adjusted_swim_target_km",
		"status", "requested_by", "requested_at", "reviewed_by", "reviewed_at", "review_notes", "rejection_reason",
		"month", "year",
	}).AddRow(
		id, "member-1", "member-1@corp.example", "Member One", "INJURY", "REDUCTION",
		"knee injury", nil, nil, time.Now(), time.Now().AddDate(0, 1, 0),
		100.0, 20.0, nil, nil,
		string(status), "member-1", time.Now(), nil, nil, nil, nil,
		9, 2026,
	)
}

func TestExceptionRepositoryCreateStampsDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExceptionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO exception_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.ExceptionRequest{
		UserID:         "member-1",
		UserEmail:      "member-1@corp.example",
		UserName:       "Member One",
		ExceptionType:  models.ExceptionInjury,
		AdjustmentType: models.AdjustmentReduction,
		Reason:         "knee injury",
		StartDate:      time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
		RequestedBy:    "member-1",
		// Status deliberately wrong; Create must force PENDING.
		Status: models.ExceptionStatusApproved,
	}
	require.NoError(t, repo.Create(context.Background(), req))
	require.NotEmpty(t, req.ID)
	require.Equal(t, models.ExceptionStatusPending, req.Status)
	require.False(t, req.RequestedAt.IsZero())
	require.Equal(t, int(req.RequestedAt.Month()), req.Month)
	require.Equal(t, req.RequestedAt.Year(), req.Year)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExceptionRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExceptionRepository(db)
	mock.ExpectQuery("SELECT id, user_id, user_email").
		WithArgs("PENDING", "member-1").
		WillReturnRows(exceptionRows("exc-1", models.ExceptionStatusPending))

	list, err := repo.List(context.Background(), models.ExceptionFilter{
		Status: models.ExceptionStatusPending,
		UserID: "member-1",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "exc-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExceptionRepositoryUpdateReviewGuardsPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExceptionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE exception_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateReview(context.Background(), ReviewExceptionParams{
		ID:         "exc-1",
		Status:     models.ExceptionStatusApproved,
		ReviewedBy: "admin-1",
		ReviewedAt: time.Now().UTC(),
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExceptionRepositoryUpdateReviewApplies(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExceptionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE exception_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	run, swim := 50.0, 10.0
	err := repo.UpdateReview(context.Background(), ReviewExceptionParams{
		ID:             "exc-1",
		Status:         models.ExceptionStatusApproved,
		ReviewedBy:     "admin-1",
		ReviewedAt:     time.Now().UTC(),
		AdjustedRunKm:  &run,
		AdjustedSwimKm: &swim,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExceptionRepositoryFindActiveForUser(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExceptionRepository(db)
	now := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, user_id, user_email").
		WithArgs("member-1", "APPROVED", now).
		WillReturnRows(exceptionRows("exc-1", models.ExceptionStatusApproved))

	found, err := repo.FindActiveForUser(context.Background(), "member-1", now)
	require.NoError(t, err)
	require.Equal(t, "exc-1", found.ID)

	mock.ExpectQuery("SELECT id, user_id, user_email").
		WithArgs("member-2", "APPROVED", now).
		WillReturnError(sql.ErrNoRows)

	_, err = repo.FindActiveForUser(context.Background(), "member-2", now)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExceptionRepositoryStats(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExceptionRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS count FROM exception_requests GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("PENDING", 2).
			AddRow("APPROVED", 3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT exception_type, COUNT(*) AS count FROM exception_requests GROUP BY exception_type")).
		WillReturnRows(sqlmock.NewRows([]string{"exception_type", "count"}).
			AddRow("INJURY", 4).
			AddRow("SICKNESS", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT year, month, COUNT(*) AS count FROM exception_requests GROUP BY year, month")).
		WillReturnRows(sqlmock.NewRows([]string{"year", "month", "count"}).
			AddRow(2026, 9, 5))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, stats.Total)
	require.Equal(t, 2, stats.ByStatus[models.ExceptionStatusPending])
	require.Equal(t, 4, stats.ByType[models.ExceptionInjury])
	require.Len(t, stats.ByPeriod, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

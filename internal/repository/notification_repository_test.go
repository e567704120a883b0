package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fitness-admin-api/internal/models"
)

func TestNotificationRepositoryCreateDefaultsCategory(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	note := &models.Notification{UserID: "member-1", Title: "Hi", Message: "Hello"}
	require.NoError(t, repo.Create(context.Background(), note))
	require.NotEmpty(t, note.ID)
	require.Equal(t, models.NotificationGeneral, note.Category)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryListByUserReturnsTotal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "message", "category", "is_read", "created_at"}).
		AddRow("note-1", "member-1", "Hi", "Hello", "GENERAL", false, time.Now())
	mock.ExpectQuery("(?s)SELECT id, user_id, title, message.+ORDER BY created_at DESC").
		WithArgs("member-1", 20, 0).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notifications WHERE user_id")).
		WithArgs("member-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	notes, total, err := repo.ListByUser(context.Background(), "member-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, 7, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkReadScopedToOwner(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET is_read = TRUE")).
		WithArgs("note-1", "someone-else").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRead(context.Background(), "note-1", "someone-else")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

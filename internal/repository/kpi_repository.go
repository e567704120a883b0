package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fitness-admin-api/internal/models"
)

// KPIRepository persists monthly distance records.
type KPIRepository struct {
	db *sqlx.DB
}

// NewKPIRepository constructs the repository.
func NewKPIRepository(db *sqlx.DB) *KPIRepository {
	return &KPIRepository{db: db}
}

// Upsert inserts or replaces the record for (user, year, month).
func (r *KPIRepository) Upsert(ctx context.Context, record *models.KPIRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO kpi_records (id, user_id, year, month, run_actual_km, swim_actual_km, updated_at)
	VALUES (:id, :user_id, :year, :month, :run_actual_km, :swim_actual_km, :updated_at)
	ON CONFLICT (user_id, year, month) DO UPDATE SET
	 run_actual_km = EXCLUDED.run_actual_km,
	 swim_actual_km = EXCLUDED.swim_actual_km,
	 updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert kpi record: %w", err)
	}
	return nil
}

// GetForUser fetches a member's record for the period.
func (r *KPIRepository) GetForUser(ctx context.Context, userID string, year, month int) (*models.KPIRecord, error) {
	const query = `SELECT id, user_id, year, month, run_actual_km, swim_actual_km, updated_at
	FROM kpi_records WHERE user_id = $1 AND year = $2 AND month = $3`
	var record models.KPIRecord
	if err := r.db.GetContext(ctx, &record, query, userID, year, month); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListForPeriod fetches every record for the period keyed by user id.
func (r *KPIRepository) ListForPeriod(ctx context.Context, year, month int) (map[string]models.KPIRecord, error) {
	const query = `SELECT id, user_id, year, month, run_actual_km, swim_actual_km, updated_at
	FROM kpi_records WHERE year = $1 AND month = $2`
	records := []models.KPIRecord{}
	if err := r.db.SelectContext(ctx, &records, query, year, month); err != nil {
		return nil, fmt.Errorf("list kpi records: %w", err)
	}
	byUser := make(map[string]models.KPIRecord, len(records))
	for _, record := range records {
		byUser[record.UserID] = record
	}
	return byUser, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fitness-admin-api/internal/models"
)

const exceptionColumns = `id, user_id, user_email, user_name, exception_type, adjustment_type,
       reason, evidence, notes, start_date, end_date,
       original_run_target_km, original_swim_target_km, adjusted_run_target_km, adjusted_swim_target_km,
       status, requested_by, requested_at, reviewed_by, reviewed_at, review_notes, rejection_reason,
       month, year`

// ExceptionRepository persists KPI exception requests.
type ExceptionRepository struct {
	db *sqlx.DB
}

// NewExceptionRepository constructs the repository.
func NewExceptionRepository(db *sqlx.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

// Create inserts a new exception request row. The id is generated here and
// requested_at is stamped server-side; a fresh request is always PENDING.
func (r *ExceptionRepository) Create(ctx context.Context, req *models.ExceptionRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = models.ExceptionStatusPending
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	if req.Month == 0 {
		req.Month = int(req.RequestedAt.Month())
	}
	if req.Year == 0 {
		req.Year = req.RequestedAt.Year()
	}
	const query = `INSERT INTO exception_requests
	(id, user_id, user_email, user_name, exception_type, adjustment_type,
	 reason, evidence, notes, start_date, end_date,
	 original_run_target_km, original_swim_target_km, adjusted_run_target_km, adjusted_swim_target_km,
	 status, requested_by, requested_at, month, year)
	VALUES (:id, :user_id, :user_email, :user_name, :exception_type, :adjustment_type,
	 :reason, :evidence, :notes, :start_date, :end_date,
	 :original_run_target_km, :original_swim_target_km, :adjusted_run_target_km, :adjusted_swim_target_km,
	 :status, :requested_by, :requested_at, :month, :year)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create exception request: %w", err)
	}
	return nil
}

// GetByID fetches an exception request by identifier.
func (r *ExceptionRepository) GetByID(ctx context.Context, id string) (*models.ExceptionRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM exception_requests WHERE id = $1`, exceptionColumns)
	var req models.ExceptionRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns exception requests matching the filter, latest first.
func (r *ExceptionRepository) List(ctx context.Context, filter models.ExceptionFilter) ([]models.ExceptionRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 3)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM exception_requests", exceptionColumns))

	conditions := make([]string, 0, 3)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.ExceptionType != "" {
		args = append(args, filter.ExceptionType)
		conditions = append(conditions, fmt.Sprintf("exception_type = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY requested_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	requests := []models.ExceptionRequest{}
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list exception requests: %w", err)
	}
	return requests, nil
}

// ReviewExceptionParams groups mutable columns for review operations.
type ReviewExceptionParams struct {
	ID              string
	Status          models.ExceptionStatus
	ReviewedBy      string
	ReviewedAt      time.Time
	ReviewNotes     *string
	RejectionReason *string
	AdjustedRunKm   *float64
	AdjustedSwimKm  *float64
}

// UpdateReview persists a review outcome. The WHERE clause keeps the
// transition single-shot: only a PENDING row can leave PENDING, so a
// concurrent or repeated review affects zero rows and reports
// sql.ErrNoRows instead of re-running side effects.
func (r *ExceptionRepository) UpdateReview(ctx context.Context, params ReviewExceptionParams) error {
	setParts := []string{
		"status = :status",
		"reviewed_by = :reviewed_by",
		"reviewed_at = :reviewed_at",
	}
	if params.ReviewNotes != nil {
		setParts = append(setParts, "review_notes = :review_notes")
	}
	if params.RejectionReason != nil {
		setParts = append(setParts, "rejection_reason = :rejection_reason")
	}
	if params.AdjustedRunKm != nil {
		setParts = append(setParts, "adjusted_run_target_km = :adjusted_run_target_km")
	}
	if params.AdjustedSwimKm != nil {
		setParts = append(setParts, "adjusted_swim_target_km = :adjusted_swim_target_km")
	}
	query := fmt.Sprintf("UPDATE exception_requests SET %s WHERE id = :id AND status = '%s'",
		strings.Join(setParts, ", "),
		models.ExceptionStatusPending,
	)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":                      params.ID,
		"status":                  params.Status,
		"reviewed_by":             params.ReviewedBy,
		"reviewed_at":             params.ReviewedAt,
		"review_notes":            params.ReviewNotes,
		"rejection_reason":        params.RejectionReason,
		"adjusted_run_target_km":  params.AdjustedRunKm,
		"adjusted_swim_target_km": params.AdjustedSwimKm,
	})
	if err != nil {
		return fmt.Errorf("update exception review: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check exception review rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindActiveForUser returns the user's unexpired approved exception, most
// recently approved first. End dates are calendar dates, so callers pass
// the start of the current day; an exception ending today still matches.
// sql.ErrNoRows signals no active exception.
func (r *ExceptionRepository) FindActiveForUser(ctx context.Context, userID string, now time.Time) (*models.ExceptionRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM exception_requests
	WHERE user_id = $1 AND status = $2 AND end_date >= $3
	ORDER BY reviewed_at DESC LIMIT 1`, exceptionColumns)
	var req models.ExceptionRequest
	if err := r.db.GetContext(ctx, &req, query, userID, models.ExceptionStatusApproved, now); err != nil {
		return nil, err
	}
	return &req, nil
}

// Stats aggregates counts over the entire table. Requests are retained
// indefinitely, so the counts are recomputed with GROUP BY scans each call.
func (r *ExceptionRepository) Stats(ctx context.Context) (*models.ExceptionStats, error) {
	stats := &models.ExceptionStats{
		ByStatus: make(map[models.ExceptionStatus]int),
		ByType:   make(map[models.ExceptionType]int),
	}

	statusRows := []struct {
		Status models.ExceptionStatus `db:"status"`
		Count  int                    `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &statusRows,
		`SELECT status, COUNT(*) AS count FROM exception_requests GROUP BY status`); err != nil {
		return nil, fmt.Errorf("aggregate exception status counts: %w", err)
	}
	for _, row := range statusRows {
		stats.ByStatus[row.Status] = row.Count
		stats.Total += row.Count
	}

	typeRows := []struct {
		ExceptionType models.ExceptionType `db:"exception_type"`
		Count         int                  `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &typeRows,
		`SELECT exception_type, COUNT(*) AS count FROM exception_requests GROUP BY exception_type`); err != nil {
		return nil, fmt.Errorf("aggregate exception type counts: %w", err)
	}
	for _, row := range typeRows {
		stats.ByType[row.ExceptionType] = row.Count
	}

	if err := r.db.SelectContext(ctx, &stats.ByPeriod,
		`SELECT year, month, COUNT(*) AS count FROM exception_requests GROUP BY year, month ORDER BY year DESC, month DESC`); err != nil {
		return nil, fmt.Errorf("aggregate exception period counts: %w", err)
	}

	return stats, nil
}

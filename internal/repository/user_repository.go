package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/fitness-admin-api/internal/models"
)

const userColumns = `id, email, password_hash, full_name, role, status,
       monthly_run_target_km, monthly_swim_target_km,
       adjusted_run_target_km, adjusted_swim_target_km,
       kpi_exception_active, kpi_exception_id, kpi_exception_expiry,
       created_at, updated_at`

// UserRepository persists user profiles and audit logs.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	const query = `INSERT INTO users
	(id, email, password_hash, full_name, role, status,
	 monthly_run_target_km, monthly_swim_target_km, kpi_exception_active, created_at, updated_at)
	VALUES (:id, :email, :password_hash, :full_name, :role, :status,
	 :monthly_run_target_km, :monthly_swim_target_km, :kpi_exception_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID fetches a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail fetches a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListByStatus returns users in a registration state, oldest first so the
// review queue is FIFO.
func (r *UserRepository) ListByStatus(ctx context.Context, status models.UserStatus) ([]models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE status = $1 ORDER BY created_at ASC`, userColumns)
	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, query, status); err != nil {
		return nil, fmt.Errorf("list users by status: %w", err)
	}
	return users, nil
}

// ListByRole returns active users holding the given role.
func (r *UserRepository) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE role = $1 AND status = $2`, userColumns)
	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, query, role, models.UserStatusActive); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return users, nil
}

// ListActiveMembers returns all active members for penalty reporting.
func (r *UserRepository) ListActiveMembers(ctx context.Context) ([]models.User, error) {
	return r.ListByRole(ctx, models.RoleMember)
}

// UpdateStatus moves a user between registration states.
func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	const query = `UPDATE users SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	return requireRowAffected(result)
}

// ApplyKPIExceptionParams carries the profile fields written on approval.
type ApplyKPIExceptionParams struct {
	UserID         string
	ExceptionID    string
	AdjustedRunKm  float64
	AdjustedSwimKm float64
	Expiry         time.Time
}

// ApplyKPIException writes the approved exception's adjusted targets onto
// the user profile as a partial update. This is the only writer of the
// kpi_exception_* columns.
func (r *UserRepository) ApplyKPIException(ctx context.Context, params ApplyKPIExceptionParams) error {
	const query = `UPDATE users SET
	 adjusted_run_target_km = $1,
	 adjusted_swim_target_km = $2,
	 kpi_exception_active = TRUE,
	 kpi_exception_id = $3,
	 kpi_exception_expiry = $4,
	 updated_at = $5
	WHERE id = $6`
	result, err := r.db.ExecContext(ctx, query,
		params.AdjustedRunKm, params.AdjustedSwimKm, params.ExceptionID, params.Expiry,
		time.Now().UTC(), params.UserID)
	if err != nil {
		return fmt.Errorf("apply kpi exception: %w", err)
	}
	return requireRowAffected(result)
}

// ClearKPIException resets the profile exception fields, used by the
// read-repair path once an exception has lapsed.
func (r *UserRepository) ClearKPIException(ctx context.Context, userID string) error {
	const query = `UPDATE users SET
	 adjusted_run_target_km = NULL,
	 adjusted_swim_target_km = NULL,
	 kpi_exception_active = FALSE,
	 kpi_exception_id = NULL,
	 kpi_exception_expiry = NULL,
	 updated_at = $1
	WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("clear kpi exception: %w", err)
	}
	return requireRowAffected(result)
}

// CountByStatus returns the number of users in a registration state.
func (r *UserRepository) CountByStatus(ctx context.Context, status models.UserStatus) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE status = $1`, status); err != nil {
		return 0, fmt.Errorf("count users by status: %w", err)
	}
	return count, nil
}

// CreateAuditLog stores an audit log entry.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
	VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

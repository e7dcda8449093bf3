package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/classtrack/internal/domain"
)

// PostgresSchoolUserRepository implements domain.SchoolUserRepository using PostgreSQL.
// Every query is tenant-scoped; the tenant id always comes from session
// claims, never from request payloads.
type PostgresSchoolUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSchoolUserRepository creates a new school user repository
func NewPostgresSchoolUserRepository(db *sql.DB, logger *slog.Logger) *PostgresSchoolUserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSchoolUserRepository{db: db, logger: logger}
}

const schoolUserColumns = `id, tenant_id, email, name, password_hash, role, created_at, updated_at, is_active`

func scanSchoolUser(row interface{ Scan(...interface{}) error }) (*domain.SchoolUser, error) {
	u := &domain.SchoolUser{}
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt, &u.IsActive)
	return u, err
}

// Create creates a new school user
func (r *PostgresSchoolUserRepository) Create(user *domain.SchoolUser) error {
	query := `
		INSERT INTO school_users (tenant_id, email, name, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(query, user.TenantID, user.Email, user.Name, user.PasswordHash, user.Role, user.IsActive).Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create school user",
			slog.String("tenant_id", user.TenantID),
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create school user: %w", err)
	}
	return nil
}

// GetByID retrieves a school user by ID within a tenant
func (r *PostgresSchoolUserRepository) GetByID(tenantID, id string) (*domain.SchoolUser, error) {
	query := `SELECT ` + schoolUserColumns + ` FROM school_users WHERE tenant_id = $1 AND id = $2`
	u, err := scanSchoolUser(r.db.QueryRow(query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("school user not found")
		}
		return nil, fmt.Errorf("failed to get school user: %w", err)
	}
	return u, nil
}

// GetByEmail retrieves an active school user by email within a tenant
func (r *PostgresSchoolUserRepository) GetByEmail(tenantID, email string) (*domain.SchoolUser, error) {
	query := `SELECT ` + schoolUserColumns + ` FROM school_users WHERE tenant_id = $1 AND email = $2 AND is_active = true`
	u, err := scanSchoolUser(r.db.QueryRow(query, tenantID, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("school user not found")
		}
		return nil, fmt.Errorf("failed to get school user by email: %w", err)
	}
	return u, nil
}

// Update updates an existing school user
func (r *PostgresSchoolUserRepository) Update(user *domain.SchoolUser) error {
	query := `
		UPDATE school_users
		SET email = $1, name = $2, password_hash = $3, role = $4, is_active = $5, updated_at = now()
		WHERE tenant_id = $6 AND id = $7
		RETURNING updated_at
	`
	err := r.db.QueryRow(query, user.Email, user.Name, user.PasswordHash, user.Role, user.IsActive, user.TenantID, user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("school user not found")
		}
		return fmt.Errorf("failed to update school user: %w", err)
	}
	return nil
}

// Delete soft-deletes a school user (sets is_active to false)
func (r *PostgresSchoolUserRepository) Delete(tenantID, id string) error {
	res, err := r.db.Exec(`UPDATE school_users SET is_active = false, updated_at = now() WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete school user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("school user not found")
	}
	return nil
}

// ListByTenant lists all active school users for a tenant
func (r *PostgresSchoolUserRepository) ListByTenant(tenantID string) ([]*domain.SchoolUser, error) {
	query := `SELECT ` + schoolUserColumns + ` FROM school_users WHERE tenant_id = $1 AND is_active = true ORDER BY created_at DESC`
	rows, err := r.db.Query(query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list school users: %w", err)
	}
	defer rows.Close()

	var out []*domain.SchoolUser
	for rows.Next() {
		u, err := scanSchoolUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan school user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/classtrack/internal/domain"
)

// PostgresTeacherRepository implements domain.TeacherRepository using PostgreSQL
type PostgresTeacherRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTeacherRepository creates a new teacher repository
func NewPostgresTeacherRepository(db *sql.DB, logger *slog.Logger) *PostgresTeacherRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTeacherRepository{db: db, logger: logger}
}

const teacherColumns = `id, tenant_id, user_id, email, name, specialty, password_hash, created_at, updated_at, is_active`

func scanTeacher(row interface{ Scan(...interface{}) error }) (*domain.Teacher, error) {
	t := &domain.Teacher{}
	err := row.Scan(&t.ID, &t.TenantID, &t.UserID, &t.Email, &t.Name, &t.Specialty, &t.PasswordHash, &t.CreatedAt, &t.UpdatedAt, &t.IsActive)
	return t, err
}

// Create creates a new teacher
func (r *PostgresTeacherRepository) Create(teacher *domain.Teacher) error {
	query := `
		INSERT INTO teachers (tenant_id, user_id, email, name, specialty, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(query,
		teacher.TenantID, teacher.UserID, teacher.Email, teacher.Name, teacher.Specialty, teacher.PasswordHash, teacher.IsActive,
	).Scan(&teacher.ID, &teacher.CreatedAt, &teacher.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create teacher",
			slog.String("tenant_id", teacher.TenantID),
			slog.String("email", teacher.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create teacher: %w", err)
	}
	return nil
}

// GetByID retrieves a teacher by ID within a tenant
func (r *PostgresTeacherRepository) GetByID(tenantID, id string) (*domain.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE tenant_id = $1 AND id = $2`
	t, err := scanTeacher(r.db.QueryRow(query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("teacher not found")
		}
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	return t, nil
}

// Update updates an existing teacher
func (r *PostgresTeacherRepository) Update(teacher *domain.Teacher) error {
	query := `
		UPDATE teachers
		SET email = $1, name = $2, specialty = $3, is_active = $4, updated_at = now()
		WHERE tenant_id = $5 AND id = $6
		RETURNING updated_at
	`
	err := r.db.QueryRow(query, teacher.Email, teacher.Name, teacher.Specialty, teacher.IsActive, teacher.TenantID, teacher.ID).Scan(&teacher.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("teacher not found")
		}
		return fmt.Errorf("failed to update teacher: %w", err)
	}
	return nil
}

// UpdatePassword replaces a teacher's password hash after a reset
func (r *PostgresTeacherRepository) UpdatePassword(tenantID, id, passwordHash string) error {
	res, err := r.db.Exec(`UPDATE teachers SET password_hash = $1, updated_at = now() WHERE tenant_id = $2 AND id = $3`, passwordHash, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to update teacher password: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("teacher not found")
	}
	return nil
}

// Delete soft-deletes a teacher (sets is_active to false)
func (r *PostgresTeacherRepository) Delete(tenantID, id string) error {
	res, err := r.db.Exec(`UPDATE teachers SET is_active = false, updated_at = now() WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete teacher: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("teacher not found")
	}
	return nil
}

// ListByTenant lists all active teachers for a tenant
func (r *PostgresTeacherRepository) ListByTenant(tenantID string) ([]*domain.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE tenant_id = $1 AND is_active = true ORDER BY name`
	rows, err := r.db.Query(query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teachers: %w", err)
	}
	defer rows.Close()

	var out []*domain.Teacher
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan teacher: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

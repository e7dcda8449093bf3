package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/classtrack/internal/domain"
)

// PostgresClassRepository implements domain.ClassRepository using PostgreSQL
type PostgresClassRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresClassRepository creates a new class repository
func NewPostgresClassRepository(db *sql.DB, logger *slog.Logger) *PostgresClassRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresClassRepository{db: db, logger: logger}
}

// student_count is derived at read time from active students only.
const classColumns = `c.id, c.tenant_id, c.name, c.grade_level, c.section, c.academic_year, c.room,
	(SELECT COUNT(*) FROM students s WHERE s.class_id = c.id AND s.is_active = true),
	c.created_at, c.updated_at, c.is_active`

func scanClass(row interface{ Scan(...interface{}) error }) (*domain.ClassRoom, error) {
	c := &domain.ClassRoom{}
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.GradeLevel, &c.Section, &c.AcademicYear, &c.Room,
		&c.StudentCount, &c.CreatedAt, &c.UpdatedAt, &c.IsActive)
	return c, err
}

// Create creates a new class
func (r *PostgresClassRepository) Create(class *domain.ClassRoom) error {
	query := `
		INSERT INTO classes (tenant_id, name, grade_level, section, academic_year, room, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(query,
		class.TenantID, class.Name, class.GradeLevel, class.Section, class.AcademicYear, class.Room, class.IsActive,
	).Scan(&class.ID, &class.CreatedAt, &class.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create class",
			slog.String("tenant_id", class.TenantID),
			slog.String("name", class.Name),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create class: %w", err)
	}
	return nil
}

// GetByID retrieves a class by ID within a tenant
func (r *PostgresClassRepository) GetByID(tenantID, id string) (*domain.ClassRoom, error) {
	query := `SELECT ` + classColumns + ` FROM classes c WHERE c.tenant_id = $1 AND c.id = $2`
	c, err := scanClass(r.db.QueryRow(query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("class not found")
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	return c, nil
}

// Update updates an existing class
func (r *PostgresClassRepository) Update(class *domain.ClassRoom) error {
	query := `
		UPDATE classes
		SET name = $1, grade_level = $2, section = $3, academic_year = $4, room = $5, is_active = $6, updated_at = now()
		WHERE tenant_id = $7 AND id = $8
		RETURNING updated_at
	`
	err := r.db.QueryRow(query,
		class.Name, class.GradeLevel, class.Section, class.AcademicYear, class.Room, class.IsActive, class.TenantID, class.ID,
	).Scan(&class.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("class not found")
		}
		return fmt.Errorf("failed to update class: %w", err)
	}
	return nil
}

// Delete soft-deletes a class (sets is_active to false)
func (r *PostgresClassRepository) Delete(tenantID, id string) error {
	res, err := r.db.Exec(`UPDATE classes SET is_active = false, updated_at = now() WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete class: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("class not found")
	}
	return nil
}

// ListByTenant lists all active classes for a tenant
func (r *PostgresClassRepository) ListByTenant(tenantID string) ([]*domain.ClassRoom, error) {
	query := `SELECT ` + classColumns + ` FROM classes c WHERE c.tenant_id = $1 AND c.is_active = true ORDER BY c.grade_level, c.name`
	rows, err := r.db.Query(query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	defer rows.Close()

	var out []*domain.ClassRoom
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/classtrack/internal/domain"
)

// PostgresStudentRepository implements domain.StudentRepository using PostgreSQL
type PostgresStudentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStudentRepository creates a new student repository
func NewPostgresStudentRepository(db *sql.DB, logger *slog.Logger) *PostgresStudentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStudentRepository{db: db, logger: logger}
}

const studentColumns = `id, tenant_id, first_name, last_name, admission_number, COALESCE(class_id::text, ''), created_at, updated_at, is_active`

func scanStudent(row interface{ Scan(...interface{}) error }) (*domain.Student, error) {
	s := &domain.Student{}
	err := row.Scan(&s.ID, &s.TenantID, &s.FirstName, &s.LastName, &s.AdmissionNumber, &s.ClassID, &s.CreatedAt, &s.UpdatedAt, &s.IsActive)
	return s, err
}

func nullableID(id string) interface{} {
	if id == "" {
		return nil
	}
	return id
}

// Create creates a new student
func (r *PostgresStudentRepository) Create(student *domain.Student) error {
	query := `
		INSERT INTO students (tenant_id, first_name, last_name, admission_number, class_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(query,
		student.TenantID, student.FirstName, student.LastName, student.AdmissionNumber, nullableID(student.ClassID), student.IsActive,
	).Scan(&student.ID, &student.CreatedAt, &student.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create student",
			slog.String("tenant_id", student.TenantID),
			slog.String("admission_number", student.AdmissionNumber),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

// GetByID retrieves a student by ID within a tenant
func (r *PostgresStudentRepository) GetByID(tenantID, id string) (*domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE tenant_id = $1 AND id = $2`
	s, err := scanStudent(r.db.QueryRow(query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("student not found")
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return s, nil
}

// Update updates an existing student
func (r *PostgresStudentRepository) Update(student *domain.Student) error {
	query := `
		UPDATE students
		SET first_name = $1, last_name = $2, admission_number = $3, class_id = $4, is_active = $5, updated_at = now()
		WHERE tenant_id = $6 AND id = $7
		RETURNING updated_at
	`
	err := r.db.QueryRow(query,
		student.FirstName, student.LastName, student.AdmissionNumber, nullableID(student.ClassID), student.IsActive, student.TenantID, student.ID,
	).Scan(&student.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("student not found")
		}
		return fmt.Errorf("failed to update student: %w", err)
	}
	return nil
}

// Delete soft-deletes a student (sets is_active to false)
func (r *PostgresStudentRepository) Delete(tenantID, id string) error {
	res, err := r.db.Exec(`UPDATE students SET is_active = false, updated_at = now() WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("student not found")
	}
	return nil
}

// ListByTenant lists all active students for a tenant
func (r *PostgresStudentRepository) ListByTenant(tenantID string) ([]*domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE tenant_id = $1 AND is_active = true ORDER BY last_name, first_name`
	return r.list(query, tenantID)
}

// ListByClass lists the active roster for a class
func (r *PostgresStudentRepository) ListByClass(tenantID, classID string) ([]*domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE tenant_id = $1 AND class_id = $2 AND is_active = true ORDER BY last_name, first_name`
	return r.list(query, tenantID, classID)
}

func (r *PostgresStudentRepository) list(query string, args ...interface{}) ([]*domain.Student, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var out []*domain.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

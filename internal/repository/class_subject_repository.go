package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/classtrack/internal/domain"
)

// PostgresClassSubjectRepository implements domain.ClassSubjectRepository
// using PostgreSQL. The (tenant_id, class_id, subject_id) pair is unique;
// Upsert replaces the assigned teacher rather than duplicating the row.
type PostgresClassSubjectRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresClassSubjectRepository creates a new class-subject repository
func NewPostgresClassSubjectRepository(db *sql.DB, logger *slog.Logger) *PostgresClassSubjectRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresClassSubjectRepository{db: db, logger: logger}
}

const classSubjectColumns = `id, tenant_id, class_id, subject_id, teacher_id, created_at, updated_at`

func scanClassSubject(row interface{ Scan(...interface{}) error }) (*domain.ClassSubject, error) {
	cs := &domain.ClassSubject{}
	err := row.Scan(&cs.ID, &cs.TenantID, &cs.ClassID, &cs.SubjectID, &cs.TeacherID, &cs.CreatedAt, &cs.UpdatedAt)
	return cs, err
}

// Upsert creates the assignment or, when the (class, subject) pair
// already has one, swaps the teacher in place.
func (r *PostgresClassSubjectRepository) Upsert(assignment *domain.ClassSubject) error {
	query := `
		INSERT INTO class_subjects (tenant_id, class_id, subject_id, teacher_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, class_id, subject_id)
		DO UPDATE SET teacher_id = EXCLUDED.teacher_id, updated_at = now()
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(query, assignment.TenantID, assignment.ClassID, assignment.SubjectID, assignment.TeacherID).Scan(
		&assignment.ID, &assignment.CreatedAt, &assignment.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to upsert class-subject assignment",
			slog.String("tenant_id", assignment.TenantID),
			slog.String("class_id", assignment.ClassID),
			slog.String("subject_id", assignment.SubjectID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to assign subject: %w", err)
	}
	return nil
}

// GetByID retrieves an assignment by ID within a tenant
func (r *PostgresClassSubjectRepository) GetByID(tenantID, id string) (*domain.ClassSubject, error) {
	query := `SELECT ` + classSubjectColumns + ` FROM class_subjects WHERE tenant_id = $1 AND id = $2`
	cs, err := scanClassSubject(r.db.QueryRow(query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("assignment not found")
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return cs, nil
}

// Delete hard-removes an assignment
func (r *PostgresClassSubjectRepository) Delete(tenantID, id string) error {
	res, err := r.db.Exec(`DELETE FROM class_subjects WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("assignment not found")
	}
	return nil
}

// ListByTenant lists all assignments for a tenant
func (r *PostgresClassSubjectRepository) ListByTenant(tenantID string) ([]*domain.ClassSubject, error) {
	query := `SELECT ` + classSubjectColumns + ` FROM class_subjects WHERE tenant_id = $1 ORDER BY created_at DESC`
	return r.list(query, tenantID)
}

// ListByClass lists the subject assignments for one class
func (r *PostgresClassSubjectRepository) ListByClass(tenantID, classID string) ([]*domain.ClassSubject, error) {
	query := `SELECT ` + classSubjectColumns + ` FROM class_subjects WHERE tenant_id = $1 AND class_id = $2 ORDER BY created_at DESC`
	return r.list(query, tenantID, classID)
}

func (r *PostgresClassSubjectRepository) list(query string, args ...interface{}) ([]*domain.ClassSubject, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var out []*domain.ClassSubject
	for rows.Next() {
		cs, err := scanClassSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

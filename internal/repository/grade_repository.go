package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yourorg/classtrack/internal/domain"
)

// PostgresGradeRepository implements domain.GradeRepository using PostgreSQL
type PostgresGradeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresGradeRepository creates a new grade repository
func NewPostgresGradeRepository(db *sql.DB, logger *slog.Logger) *PostgresGradeRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresGradeRepository{db: db, logger: logger}
}

const gradeColumns = `id, tenant_id, student_id, class_id, subject_id, grade_type_id, COALESCE(term_id::text, ''),
	title, score, max_score, percentage, letter_grade, assessment_date, teacher_notes, student_feedback,
	is_published, created_at, updated_at`

func scanGrade(row interface{ Scan(...interface{}) error }) (*domain.Grade, error) {
	g := &domain.Grade{}
	err := row.Scan(&g.ID, &g.TenantID, &g.StudentID, &g.ClassID, &g.SubjectID, &g.GradeTypeID, &g.TermID,
		&g.Title, &g.Score, &g.MaxScore, &g.Percentage, &g.LetterGrade, &g.AssessmentDate, &g.TeacherNotes,
		&g.StudentFeedback, &g.IsPublished, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// Create creates a new grade row. Derived fields must already be set by
// the service; the repository stores what it is given.
func (r *PostgresGradeRepository) Create(grade *domain.Grade) error {
	query := `
		INSERT INTO grades (tenant_id, student_id, class_id, subject_id, grade_type_id, term_id,
			title, score, max_score, percentage, letter_grade, assessment_date, teacher_notes, student_feedback, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(query,
		grade.TenantID, grade.StudentID, grade.ClassID, grade.SubjectID, grade.GradeTypeID, nullableID(grade.TermID),
		grade.Title, grade.Score, grade.MaxScore, grade.Percentage, grade.LetterGrade, grade.AssessmentDate,
		grade.TeacherNotes, grade.StudentFeedback, grade.IsPublished,
	).Scan(&grade.ID, &grade.CreatedAt, &grade.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create grade",
			slog.String("tenant_id", grade.TenantID),
			slog.String("student_id", grade.StudentID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create grade: %w", err)
	}
	return nil
}

// GetByID retrieves a grade by ID within a tenant
func (r *PostgresGradeRepository) GetByID(tenantID, id string) (*domain.Grade, error) {
	query := `SELECT ` + gradeColumns + ` FROM grades WHERE tenant_id = $1 AND id = $2`
	g, err := scanGrade(r.db.QueryRow(query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("grade not found")
		}
		return nil, fmt.Errorf("failed to get grade: %w", err)
	}
	return g, nil
}

// Update rewrites the mutable fields of a grade
func (r *PostgresGradeRepository) Update(grade *domain.Grade) error {
	query := `
		UPDATE grades
		SET grade_type_id = $1, term_id = $2, title = $3, score = $4, max_score = $5, percentage = $6,
			letter_grade = $7, assessment_date = $8, teacher_notes = $9, student_feedback = $10, updated_at = now()
		WHERE tenant_id = $11 AND id = $12
		RETURNING updated_at
	`
	err := r.db.QueryRow(query,
		grade.GradeTypeID, nullableID(grade.TermID), grade.Title, grade.Score, grade.MaxScore, grade.Percentage,
		grade.LetterGrade, grade.AssessmentDate, grade.TeacherNotes, grade.StudentFeedback, grade.TenantID, grade.ID,
	).Scan(&grade.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("grade not found")
		}
		return fmt.Errorf("failed to update grade: %w", err)
	}
	return nil
}

// SetPublished flips the publish flag; a dedicated transition rather
// than a generic field update.
func (r *PostgresGradeRepository) SetPublished(tenantID, id string, published bool) error {
	res, err := r.db.Exec(`UPDATE grades SET is_published = $1, updated_at = now() WHERE tenant_id = $2 AND id = $3`, published, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to update publish state: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("grade not found")
	}
	return nil
}

// Delete hard-removes a grade
func (r *PostgresGradeRepository) Delete(tenantID, id string) error {
	res, err := r.db.Exec(`DELETE FROM grades WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete grade: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("grade not found")
	}
	return nil
}

// List returns grades for a tenant narrowed by the filter
func (r *PostgresGradeRepository) List(tenantID string, filter domain.GradeFilter) ([]*domain.Grade, error) {
	conditions := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}

	add := func(column, value string) {
		if value != "" {
			args = append(args, value)
			conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	add("student_id", filter.StudentID)
	add("class_id", filter.ClassID)
	add("subject_id", filter.SubjectID)
	add("grade_type_id", filter.GradeTypeID)
	add("term_id", filter.TermID)
	if filter.Published != nil {
		args = append(args, *filter.Published)
		conditions = append(conditions, fmt.Sprintf("is_published = $%d", len(args)))
	}

	query := `SELECT ` + gradeColumns + ` FROM grades WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY assessment_date DESC, created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list grades: %w", err)
	}
	defer rows.Close()

	var out []*domain.Grade
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grade: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/classtrack/internal/domain"
)

// PostgresSubjectRepository implements domain.SubjectRepository using PostgreSQL
type PostgresSubjectRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSubjectRepository creates a new subject repository
func NewPostgresSubjectRepository(db *sql.DB, logger *slog.Logger) *PostgresSubjectRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSubjectRepository{db: db, logger: logger}
}

const subjectColumns = `id, tenant_id, name, code, created_at, updated_at, is_active`

func scanSubject(row interface{ Scan(...interface{}) error }) (*domain.Subject, error) {
	s := &domain.Subject{}
	err := row.Scan(&s.ID, &s.TenantID, &s.Name, &s.Code, &s.CreatedAt, &s.UpdatedAt, &s.IsActive)
	return s, err
}

// Create creates a new subject
func (r *PostgresSubjectRepository) Create(subject *domain.Subject) error {
	query := `
		INSERT INTO subjects (tenant_id, name, code, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(query, subject.TenantID, subject.Name, subject.Code, subject.IsActive).Scan(
		&subject.ID, &subject.CreatedAt, &subject.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create subject",
			slog.String("tenant_id", subject.TenantID),
			slog.String("code", subject.Code),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create subject: %w", err)
	}
	return nil
}

// GetByID retrieves a subject by ID within a tenant
func (r *PostgresSubjectRepository) GetByID(tenantID, id string) (*domain.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE tenant_id = $1 AND id = $2`
	s, err := scanSubject(r.db.QueryRow(query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("subject not found")
		}
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}
	return s, nil
}

// Update updates an existing subject
func (r *PostgresSubjectRepository) Update(subject *domain.Subject) error {
	query := `
		UPDATE subjects
		SET name = $1, code = $2, is_active = $3, updated_at = now()
		WHERE tenant_id = $4 AND id = $5
		RETURNING updated_at
	`
	err := r.db.QueryRow(query, subject.Name, subject.Code, subject.IsActive, subject.TenantID, subject.ID).Scan(&subject.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("subject not found")
		}
		return fmt.Errorf("failed to update subject: %w", err)
	}
	return nil
}

// Delete soft-deletes a subject (sets is_active to false)
func (r *PostgresSubjectRepository) Delete(tenantID, id string) error {
	res, err := r.db.Exec(`UPDATE subjects SET is_active = false, updated_at = now() WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete subject: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("subject not found")
	}
	return nil
}

// ListByTenant lists all active subjects for a tenant
func (r *PostgresSubjectRepository) ListByTenant(tenantID string) ([]*domain.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE tenant_id = $1 AND is_active = true ORDER BY name`
	rows, err := r.db.Query(query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer rows.Close()

	var out []*domain.Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

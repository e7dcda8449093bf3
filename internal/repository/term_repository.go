package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/classtrack/internal/domain"
)

// PostgresTermRepository implements domain.TermRepository using PostgreSQL
type PostgresTermRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTermRepository creates a new term repository
func NewPostgresTermRepository(db *sql.DB, logger *slog.Logger) *PostgresTermRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTermRepository{db: db, logger: logger}
}

const termColumns = `id, tenant_id, name, academic_year, start_date, end_date, is_current, created_at, updated_at, is_active`

func scanTerm(row interface{ Scan(...interface{}) error }) (*domain.Term, error) {
	t := &domain.Term{}
	err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.AcademicYear, &t.StartDate, &t.EndDate, &t.IsCurrent, &t.CreatedAt, &t.UpdatedAt, &t.IsActive)
	return t, err
}

// Create creates a new term
func (r *PostgresTermRepository) Create(term *domain.Term) error {
	query := `
		INSERT INTO terms (tenant_id, name, academic_year, start_date, end_date, is_current, is_active)
		VALUES ($1, $2, $3, $4, $5, false, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(query,
		term.TenantID, term.Name, term.AcademicYear, term.StartDate, term.EndDate, term.IsActive,
	).Scan(&term.ID, &term.CreatedAt, &term.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create term",
			slog.String("tenant_id", term.TenantID),
			slog.String("name", term.Name),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create term: %w", err)
	}
	return nil
}

// GetByID retrieves a term by ID within a tenant
func (r *PostgresTermRepository) GetByID(tenantID, id string) (*domain.Term, error) {
	query := `SELECT ` + termColumns + ` FROM terms WHERE tenant_id = $1 AND id = $2`
	t, err := scanTerm(r.db.QueryRow(query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("term not found")
		}
		return nil, fmt.Errorf("failed to get term: %w", err)
	}
	return t, nil
}

// Update updates an existing term. IsCurrent is not touched here;
// SetCurrent owns that transition.
func (r *PostgresTermRepository) Update(term *domain.Term) error {
	query := `
		UPDATE terms
		SET name = $1, academic_year = $2, start_date = $3, end_date = $4, is_active = $5, updated_at = now()
		WHERE tenant_id = $6 AND id = $7
		RETURNING updated_at
	`
	err := r.db.QueryRow(query,
		term.Name, term.AcademicYear, term.StartDate, term.EndDate, term.IsActive, term.TenantID, term.ID,
	).Scan(&term.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("term not found")
		}
		return fmt.Errorf("failed to update term: %w", err)
	}
	return nil
}

// SetCurrent marks one term current and clears the flag on every other
// term of the tenant in the same transaction, so at most one term is
// current at any time. Setting the already-current term is a no-op.
func (r *PostgresTermRepository) SetCurrent(tenantID, id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE terms SET is_current = true, updated_at = now() WHERE tenant_id = $1 AND id = $2 AND is_active = true`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to set current term: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("term not found")
	}

	if _, err := tx.Exec(`UPDATE terms SET is_current = false, updated_at = now() WHERE tenant_id = $1 AND id <> $2 AND is_current = true`, tenantID, id); err != nil {
		return fmt.Errorf("failed to clear current terms: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit current term change: %w", err)
	}
	return nil
}

// Delete soft-deletes a term (sets is_active to false)
func (r *PostgresTermRepository) Delete(tenantID, id string) error {
	res, err := r.db.Exec(`UPDATE terms SET is_active = false, is_current = false, updated_at = now() WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete term: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("term not found")
	}
	return nil
}

// ListByTenant lists all active terms for a tenant, newest first
func (r *PostgresTermRepository) ListByTenant(tenantID string) ([]*domain.Term, error) {
	query := `SELECT ` + termColumns + ` FROM terms WHERE tenant_id = $1 AND is_active = true ORDER BY start_date DESC`
	rows, err := r.db.Query(query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list terms: %w", err)
	}
	defer rows.Close()

	var out []*domain.Term
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/classtrack/internal/domain"
)

// PostgresGradeTypeRepository implements domain.GradeTypeRepository using PostgreSQL
type PostgresGradeTypeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresGradeTypeRepository creates a new grade type repository
func NewPostgresGradeTypeRepository(db *sql.DB, logger *slog.Logger) *PostgresGradeTypeRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresGradeTypeRepository{db: db, logger: logger}
}

const gradeTypeColumns = `id, tenant_id, name, weight, max_score, created_at, updated_at, is_active`

func scanGradeType(row interface{ Scan(...interface{}) error }) (*domain.GradeType, error) {
	gt := &domain.GradeType{}
	var weight sql.NullFloat64
	err := row.Scan(&gt.ID, &gt.TenantID, &gt.Name, &weight, &gt.MaxScore, &gt.CreatedAt, &gt.UpdatedAt, &gt.IsActive)
	if err != nil {
		return nil, err
	}
	if weight.Valid {
		gt.Weight = &weight.Float64
	}
	return gt, nil
}

func nullableWeight(w *float64) interface{} {
	if w == nil {
		return nil
	}
	return *w
}

// Create creates a new grade type
func (r *PostgresGradeTypeRepository) Create(gt *domain.GradeType) error {
	query := `
		INSERT INTO grade_types (tenant_id, name, weight, max_score, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(query, gt.TenantID, gt.Name, nullableWeight(gt.Weight), gt.MaxScore, gt.IsActive).Scan(
		&gt.ID, &gt.CreatedAt, &gt.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create grade type",
			slog.String("tenant_id", gt.TenantID),
			slog.String("name", gt.Name),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create grade type: %w", err)
	}
	return nil
}

// GetByID retrieves a grade type by ID within a tenant
func (r *PostgresGradeTypeRepository) GetByID(tenantID, id string) (*domain.GradeType, error) {
	query := `SELECT ` + gradeTypeColumns + ` FROM grade_types WHERE tenant_id = $1 AND id = $2`
	gt, err := scanGradeType(r.db.QueryRow(query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("grade type not found")
		}
		return nil, fmt.Errorf("failed to get grade type: %w", err)
	}
	return gt, nil
}

// Update updates an existing grade type
func (r *PostgresGradeTypeRepository) Update(gt *domain.GradeType) error {
	query := `
		UPDATE grade_types
		SET name = $1, weight = $2, max_score = $3, is_active = $4, updated_at = now()
		WHERE tenant_id = $5 AND id = $6
		RETURNING updated_at
	`
	err := r.db.QueryRow(query, gt.Name, nullableWeight(gt.Weight), gt.MaxScore, gt.IsActive, gt.TenantID, gt.ID).Scan(&gt.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("grade type not found")
		}
		return fmt.Errorf("failed to update grade type: %w", err)
	}
	return nil
}

// Delete soft-deletes a grade type (sets is_active to false)
func (r *PostgresGradeTypeRepository) Delete(tenantID, id string) error {
	res, err := r.db.Exec(`UPDATE grade_types SET is_active = false, updated_at = now() WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete grade type: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("grade type not found")
	}
	return nil
}

// ListByTenant lists all active grade types for a tenant
func (r *PostgresGradeTypeRepository) ListByTenant(tenantID string) ([]*domain.GradeType, error) {
	query := `SELECT ` + gradeTypeColumns + ` FROM grade_types WHERE tenant_id = $1 AND is_active = true ORDER BY name`
	rows, err := r.db.Query(query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grade types: %w", err)
	}
	defer rows.Close()

	var out []*domain.GradeType
	for rows.Next() {
		gt, err := scanGradeType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grade type: %w", err)
		}
		out = append(out, gt)
	}
	return out, rows.Err()
}

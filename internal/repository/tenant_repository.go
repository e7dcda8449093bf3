package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/classtrack/internal/domain"
)

// PostgresTenantRepository implements domain.TenantRepository using PostgreSQL
type PostgresTenantRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTenantRepository creates a new tenant repository
func NewPostgresTenantRepository(db *sql.DB, logger *slog.Logger) *PostgresTenantRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTenantRepository{db: db, logger: logger}
}

const tenantColumns = `id, name, slug, status, subscription_plan, settings, created_at, updated_at`

func scanTenant(row interface{ Scan(...interface{}) error }) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	var settings []byte
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Status, &t.SubscriptionPlan, &settings, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &t.Settings); err != nil {
			return nil, fmt.Errorf("failed to decode tenant settings: %w", err)
		}
	}
	return t, nil
}

// Create creates a new tenant
func (r *PostgresTenantRepository) Create(tenant *domain.Tenant) error {
	settings, err := json.Marshal(tenant.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode tenant settings: %w", err)
	}

	query := `
		INSERT INTO tenants (name, slug, status, subscription_plan, settings)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err = r.db.QueryRow(query, tenant.Name, tenant.Slug, tenant.Status, tenant.SubscriptionPlan, settings).Scan(
		&tenant.ID,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create tenant",
			slog.String("slug", tenant.Slug),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by ID
func (r *PostgresTenantRepository) GetByID(id string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	t, err := scanTenant(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant not found")
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return t, nil
}

// GetBySlug retrieves a tenant by its slug, used at portal login
func (r *PostgresTenantRepository) GetBySlug(slug string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`
	t, err := scanTenant(r.db.QueryRow(query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant not found")
		}
		return nil, fmt.Errorf("failed to get tenant by slug: %w", err)
	}
	return t, nil
}

// UpdateStatus updates a tenant's lifecycle status
func (r *PostgresTenantRepository) UpdateStatus(id, status string) error {
	return r.exec(`UPDATE tenants SET status = $1, updated_at = now() WHERE id = $2`, status, id)
}

// UpdatePlan updates a tenant's subscription plan
func (r *PostgresTenantRepository) UpdatePlan(id, plan string) error {
	return r.exec(`UPDATE tenants SET subscription_plan = $1, updated_at = now() WHERE id = $2`, plan, id)
}

// Delete marks a tenant inactive; tenant rows are never hard-removed
func (r *PostgresTenantRepository) Delete(id string) error {
	return r.exec(`UPDATE tenants SET status = 'inactive', updated_at = now() WHERE id = $1`, id)
}

func (r *PostgresTenantRepository) exec(query string, args ...interface{}) error {
	res, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("tenant not found")
	}
	return nil
}

// List returns all tenants, newest first
func (r *PostgresTenantRepository) List() ([]*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at DESC`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var out []*domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

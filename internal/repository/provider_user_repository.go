package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/classtrack/internal/domain"
)

// PostgresProviderUserRepository implements domain.ProviderUserRepository using PostgreSQL
type PostgresProviderUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresProviderUserRepository creates a new provider user repository
func NewPostgresProviderUserRepository(db *sql.DB, logger *slog.Logger) *PostgresProviderUserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProviderUserRepository{db: db, logger: logger}
}

const providerUserColumns = `id, email, name, password_hash, role, created_at, updated_at, is_active`

func scanProviderUser(row interface{ Scan(...interface{}) error }) (*domain.ProviderUser, error) {
	u := &domain.ProviderUser{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt, &u.IsActive)
	return u, err
}

// Create creates a new provider user
func (r *PostgresProviderUserRepository) Create(user *domain.ProviderUser) error {
	query := `
		INSERT INTO provider_users (email, name, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(query, user.Email, user.Name, user.PasswordHash, user.Role, user.IsActive).Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create provider user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create provider user: %w", err)
	}
	return nil
}

// GetByID retrieves a provider user by ID
func (r *PostgresProviderUserRepository) GetByID(id string) (*domain.ProviderUser, error) {
	query := `SELECT ` + providerUserColumns + ` FROM provider_users WHERE id = $1`
	u, err := scanProviderUser(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("provider user not found")
		}
		return nil, fmt.Errorf("failed to get provider user: %w", err)
	}
	return u, nil
}

// GetByEmail retrieves an active provider user by email
func (r *PostgresProviderUserRepository) GetByEmail(email string) (*domain.ProviderUser, error) {
	query := `SELECT ` + providerUserColumns + ` FROM provider_users WHERE email = $1 AND is_active = true`
	u, err := scanProviderUser(r.db.QueryRow(query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("provider user not found")
		}
		return nil, fmt.Errorf("failed to get provider user by email: %w", err)
	}
	return u, nil
}

// Update updates an existing provider user
func (r *PostgresProviderUserRepository) Update(user *domain.ProviderUser) error {
	query := `
		UPDATE provider_users
		SET email = $1, name = $2, password_hash = $3, role = $4, is_active = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`
	err := r.db.QueryRow(query, user.Email, user.Name, user.PasswordHash, user.Role, user.IsActive, user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("provider user not found")
		}
		return fmt.Errorf("failed to update provider user: %w", err)
	}
	return nil
}

// Delete soft-deletes a provider user (sets is_active to false)
func (r *PostgresProviderUserRepository) Delete(id string) error {
	res, err := r.db.Exec(`UPDATE provider_users SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete provider user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("provider user not found")
	}
	return nil
}

// List returns all active provider users
func (r *PostgresProviderUserRepository) List() ([]*domain.ProviderUser, error) {
	query := `SELECT ` + providerUserColumns + ` FROM provider_users WHERE is_active = true ORDER BY created_at DESC`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider users: %w", err)
	}
	defer rows.Close()

	var out []*domain.ProviderUser
	for rows.Next() {
		u, err := scanProviderUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yourorg/classtrack/internal/domain"
	"github.com/yourorg/classtrack/internal/security/audit"
	"github.com/yourorg/classtrack/internal/security/auth"
)

// ProviderUserService manages platform staff accounts.
type ProviderUserService struct {
	users  domain.ProviderUserRepository
	audit  *audit.Logger
	logger *slog.Logger
}

// NewProviderUserService creates a new provider user service
func NewProviderUserService(users domain.ProviderUserRepository, auditLogger *audit.Logger, logger *slog.Logger) *ProviderUserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProviderUserService{users: users, audit: auditLogger, logger: logger}
}

// ProviderUserWithPassword returns a created staff account with its
// one-time password.
type ProviderUserWithPassword struct {
	User         *domain.ProviderUser `json:"user"`
	TempPassword string               `json:"tempPassword"`
}

// CreateUser creates a staff account with a one-time password
func (s *ProviderUserService) CreateUser(ctx context.Context, actorID string, user *domain.ProviderUser) (*ProviderUserWithPassword, error) {
	if user.Name == "" || user.Email == "" {
		return nil, errors.New("name and email are required")
	}
	switch user.Role {
	case "admin", "support":
	default:
		return nil, errors.New("role must be admin or support")
	}

	password, hash, err := auth.NewTempPassword()
	if err != nil {
		s.logger.Error("failed to generate staff password", slog.String("error", err.Error()))
		return nil, errors.New("failed to create user")
	}
	user.PasswordHash = hash
	user.IsActive = true
	if err := s.users.Create(user); err != nil {
		s.logger.Error("failed to create provider user", slog.String("email", user.Email), slog.String("error", err.Error()))
		return nil, errors.New("an account with this email already exists")
	}

	s.audit.LogAction(ctx, auth.DomainProvider, "", actorID, "create", "provider_user", user.ID, "succeeded", "")
	return &ProviderUserWithPassword{User: user, TempPassword: password}, nil
}

// UpdateUser rewrites a staff account's profile fields
func (s *ProviderUserService) UpdateUser(ctx context.Context, actorID, id string, update *domain.ProviderUser) (*domain.ProviderUser, error) {
	existing, err := s.users.GetByID(id)
	if err != nil {
		return nil, errors.New("user not found")
	}
	switch update.Role {
	case "admin", "support":
	default:
		return nil, errors.New("role must be admin or support")
	}
	existing.Name = update.Name
	existing.Role = update.Role
	if err := s.users.Update(existing); err != nil {
		return nil, errors.New("failed to update user")
	}
	s.audit.LogAction(ctx, auth.DomainProvider, "", actorID, "update", "provider_user", id, "succeeded", "")
	return existing, nil
}

// DeleteUser deactivates a staff account. Self-deletion is refused so an
// admin cannot lock the console from under themselves.
func (s *ProviderUserService) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return errors.New("cannot delete your own account")
	}
	if err := s.users.Delete(id); err != nil {
		return errors.New("user not found")
	}
	s.audit.LogAction(ctx, auth.DomainProvider, "", actorID, "delete", "provider_user", id, "succeeded", "")
	return nil
}

// ListUsers lists active staff accounts
func (s *ProviderUserService) ListUsers() ([]*domain.ProviderUser, error) {
	return s.users.List()
}

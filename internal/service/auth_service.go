package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yourorg/classtrack/internal/domain"
	"github.com/yourorg/classtrack/internal/observability/metrics"
	"github.com/yourorg/classtrack/internal/security/auth"
)

// SessionRegistry is the slice of session store behavior the auth
// service needs. Satisfied by *SessionStore.
type SessionRegistry interface {
	Open(ctx context.Context, domain, sessionID, userID string) error
	Revoke(ctx context.Context, domain, sessionID string) error
}

// AuthService handles authentication for both identity domains. Provider
// logins resolve platform staff; school logins resolve a tenant by slug
// first, then a portal user within that tenant.
type AuthService struct {
	providerUsers domain.ProviderUserRepository
	schoolUsers   domain.SchoolUserRepository
	tenants       domain.TenantRepository
	providerTM    *auth.TokenManager
	schoolTM      *auth.TokenManager
	sessions      SessionRegistry
	tokenTTL      time.Duration
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	providerUsers domain.ProviderUserRepository,
	schoolUsers domain.SchoolUserRepository,
	tenants domain.TenantRepository,
	providerTM, schoolTM *auth.TokenManager,
	sessions SessionRegistry,
	tokenTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		providerUsers: providerUsers,
		schoolUsers:   schoolUsers,
		tenants:       tenants,
		providerTM:    providerTM,
		schoolTM:      schoolTM,
		sessions:      sessions,
		tokenTTL:      tokenTTL,
		logger:        logger,
	}
}

// Profile is the user shape returned to clients; password hashes never
// leave the service.
type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	TenantID string `json:"tenantId,omitempty"`
}

// LoginResult represents a successful login
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Profile   `json:"user"`
}

// LoginSchool authenticates a portal user against the tenant selected by
// slug. Inactive and suspended tenants refuse login outright.
func (s *AuthService) LoginSchool(ctx context.Context, email, password, slug string) (*LoginResult, error) {
	if email == "" || password == "" || slug == "" {
		return nil, errors.New("email, password, and school are required")
	}

	tenant, err := s.tenants.GetBySlug(slug)
	if err != nil {
		s.logger.Info("school login with unknown slug", slog.String("slug", slug))
		metrics.ObserveLogin(auth.DomainSchool, "failure")
		return nil, errors.New("invalid credentials")
	}
	if tenant.Status != domain.TenantActive {
		s.logger.Info("school login against non-active tenant",
			slog.String("tenant_id", tenant.ID),
			slog.String("status", tenant.Status),
		)
		metrics.ObserveLogin(auth.DomainSchool, "failure")
		return nil, errors.New("this school is not currently active")
	}

	user, err := s.schoolUsers.GetByEmail(tenant.ID, email)
	if err != nil || !auth.CheckPassword(user.PasswordHash, password) {
		s.logger.Info("school login failed", slog.String("email", email), slog.String("tenant_id", tenant.ID))
		metrics.ObserveLogin(auth.DomainSchool, "failure")
		return nil, errors.New("invalid credentials")
	}

	token, sessionID, err := s.schoolTM.GenerateToken(tenant.ID, user.ID, user.Email, user.Role, s.tokenTTL)
	if err != nil {
		s.logger.Error("failed to mint school token", slog.String("error", err.Error()))
		return nil, errors.New("failed to log in")
	}
	if err := s.sessions.Open(ctx, auth.DomainSchool, sessionID, user.ID); err != nil {
		s.logger.Error("failed to record school session", slog.String("error", err.Error()))
		return nil, errors.New("failed to log in")
	}

	metrics.ObserveLogin(auth.DomainSchool, "success")
	s.logger.Info("school user logged in",
		slog.String("user_id", user.ID),
		slog.String("tenant_id", tenant.ID),
	)

	return &LoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokenTTL),
		User: Profile{
			ID:       user.ID,
			Email:    user.Email,
			Name:     user.Name,
			Role:     user.Role,
			TenantID: tenant.ID,
		},
	}, nil
}

// LoginProvider authenticates platform staff
func (s *AuthService) LoginProvider(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	user, err := s.providerUsers.GetByEmail(email)
	if err != nil || !auth.CheckPassword(user.PasswordHash, password) {
		s.logger.Info("provider login failed", slog.String("email", email))
		metrics.ObserveLogin(auth.DomainProvider, "failure")
		return nil, errors.New("invalid credentials")
	}

	token, sessionID, err := s.providerTM.GenerateToken("", user.ID, user.Email, user.Role, s.tokenTTL)
	if err != nil {
		s.logger.Error("failed to mint provider token", slog.String("error", err.Error()))
		return nil, errors.New("failed to log in")
	}
	if err := s.sessions.Open(ctx, auth.DomainProvider, sessionID, user.ID); err != nil {
		s.logger.Error("failed to record provider session", slog.String("error", err.Error()))
		return nil, errors.New("failed to log in")
	}

	metrics.ObserveLogin(auth.DomainProvider, "success")
	s.logger.Info("provider user logged in", slog.String("user_id", user.ID))

	return &LoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokenTTL),
		User: Profile{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  user.Role,
		},
	}, nil
}

// Logout revokes the session behind the presented claims
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	return s.sessions.Revoke(ctx, claims.Domain, claims.ID)
}

// Me returns the live profile for the presented claims. A failure here
// means the account vanished or was disabled after the token was minted.
func (s *AuthService) Me(claims *auth.Claims) (*Profile, error) {
	switch claims.Domain {
	case auth.DomainProvider:
		user, err := s.providerUsers.GetByID(claims.UserID)
		if err != nil || !user.IsActive {
			return nil, errors.New("account not available")
		}
		return &Profile{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}, nil
	case auth.DomainSchool:
		user, err := s.schoolUsers.GetByID(claims.TenantID, claims.UserID)
		if err != nil || !user.IsActive {
			return nil, errors.New("account not available")
		}
		return &Profile{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role, TenantID: user.TenantID}, nil
	default:
		return nil, errors.New("unknown identity domain")
	}
}

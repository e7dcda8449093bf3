package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"

	"github.com/yourorg/classtrack/internal/domain"
	"github.com/yourorg/classtrack/internal/security/audit"
	"github.com/yourorg/classtrack/internal/security/auth"
	"github.com/yourorg/classtrack/pkg/config"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// TenantService manages tenant schools from the provider console.
// Creating a tenant also provisions its first portal admin so the school
// can log in immediately.
type TenantService struct {
	tenants     domain.TenantRepository
	schoolUsers domain.SchoolUserRepository
	plans       map[string]config.Plan
	audit       *audit.Logger
	logger      *slog.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(
	tenants domain.TenantRepository,
	schoolUsers domain.SchoolUserRepository,
	plans map[string]config.Plan,
	auditLogger *audit.Logger,
	logger *slog.Logger,
) *TenantService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantService{
		tenants:     tenants,
		schoolUsers: schoolUsers,
		plans:       plans,
		audit:       auditLogger,
		logger:      logger,
	}
}

// CreateTenantRequest carries a new school plus its initial admin account.
type CreateTenantRequest struct {
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Plan       string `json:"plan"`
	AdminName  string `json:"adminName"`
	AdminEmail string `json:"adminEmail"`
}

// CreateTenantResult returns the created tenant and the admin's one-time
// password, surfaced exactly once.
type CreateTenantResult struct {
	Tenant        *domain.Tenant `json:"tenant"`
	AdminEmail    string         `json:"adminEmail"`
	AdminPassword string         `json:"adminPassword"`
}

// CreateTenant provisions a tenant and its first portal admin
func (s *TenantService) CreateTenant(ctx context.Context, actorID string, req CreateTenantRequest) (*CreateTenantResult, error) {
	if req.Name == "" || req.Slug == "" {
		return nil, errors.New("name and slug are required")
	}
	if !slugPattern.MatchString(req.Slug) {
		return nil, errors.New("slug must be lowercase letters, digits, and hyphens")
	}
	if req.AdminName == "" || req.AdminEmail == "" {
		return nil, errors.New("an initial admin name and email are required")
	}
	plan := req.Plan
	if plan == "" {
		plan = domain.PlanFree
	}
	if _, ok := s.plans[plan]; !ok {
		return nil, errors.New("unknown subscription plan")
	}

	tenant := &domain.Tenant{
		Name:             req.Name,
		Slug:             req.Slug,
		Status:           domain.TenantActive,
		SubscriptionPlan: plan,
		Settings:         map[string]string{},
	}
	if err := s.tenants.Create(tenant); err != nil {
		s.logger.Error("failed to create tenant", slog.String("slug", req.Slug), slog.String("error", err.Error()))
		return nil, errors.New("failed to create school, the slug may be taken")
	}

	password, hash, err := auth.NewTempPassword()
	if err != nil {
		s.logger.Error("failed to generate admin password", slog.String("error", err.Error()))
		return nil, errors.New("failed to provision school admin")
	}
	admin := &domain.SchoolUser{
		TenantID:     tenant.ID,
		Email:        req.AdminEmail,
		Name:         req.AdminName,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}
	if err := s.schoolUsers.Create(admin); err != nil {
		s.logger.Error("failed to create initial admin",
			slog.String("tenant_id", tenant.ID),
			slog.String("error", err.Error()),
		)
		return nil, errors.New("failed to provision school admin")
	}

	s.audit.LogAction(ctx, auth.DomainProvider, tenant.ID, actorID, "create", "tenant", tenant.ID, "succeeded", tenant.Slug)
	s.logger.Info("tenant created",
		slog.String("tenant_id", tenant.ID),
		slog.String("slug", tenant.Slug),
		slog.String("plan", plan),
	)

	return &CreateTenantResult{Tenant: tenant, AdminEmail: admin.Email, AdminPassword: password}, nil
}

// GetTenant retrieves a tenant by ID
func (s *TenantService) GetTenant(id string) (*domain.Tenant, error) {
	tenant, err := s.tenants.GetByID(id)
	if err != nil {
		return nil, errors.New("school not found")
	}
	return tenant, nil
}

// ListTenants lists all tenants
func (s *TenantService) ListTenants() ([]*domain.Tenant, error) {
	return s.tenants.List()
}

// UpdateStatus transitions a tenant between active, inactive, and
// suspended. Suspension locks out portal logins immediately; existing
// sessions lapse at their token expiry.
func (s *TenantService) UpdateStatus(ctx context.Context, actorID, id, status string) error {
	switch status {
	case domain.TenantActive, domain.TenantInactive, domain.TenantSuspended:
	default:
		return errors.New("invalid status")
	}
	if err := s.tenants.UpdateStatus(id, status); err != nil {
		return errors.New("school not found")
	}
	s.audit.LogAction(ctx, auth.DomainProvider, id, actorID, "update_status", "tenant", id, "succeeded", status)
	return nil
}

// UpdatePlan changes a tenant's subscription plan
func (s *TenantService) UpdatePlan(ctx context.Context, actorID, id, plan string) error {
	if _, ok := s.plans[plan]; !ok {
		return errors.New("unknown subscription plan")
	}
	if err := s.tenants.UpdatePlan(id, plan); err != nil {
		return errors.New("school not found")
	}
	s.audit.LogAction(ctx, auth.DomainProvider, id, actorID, "update_plan", "tenant", id, "succeeded", plan)
	return nil
}

// DeleteTenant deactivates a tenant. Data is retained; the school simply
// cannot log in until reactivated.
func (s *TenantService) DeleteTenant(ctx context.Context, actorID, id string) error {
	if err := s.tenants.Delete(id); err != nil {
		return errors.New("school not found")
	}
	s.audit.LogAction(ctx, auth.DomainProvider, id, actorID, "delete", "tenant", id, "succeeded", "")
	return nil
}

// Plans returns the subscription tiers on offer
func (s *TenantService) Plans() map[string]config.Plan {
	return s.plans
}

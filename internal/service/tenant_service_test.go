package service

import (
	"context"
	"testing"

	"github.com/yourorg/classtrack/internal/domain"
	"github.com/yourorg/classtrack/internal/security/audit"
	"github.com/yourorg/classtrack/internal/security/auth"
	"github.com/yourorg/classtrack/pkg/config"
)

func newTenantFixture(t *testing.T) (*TenantService, *memTenantRepo, *memSchoolUserRepo) {
	t.Helper()
	tenants := newMemTenantRepo()
	schoolUsers := newMemSchoolUserRepo()
	plans := map[string]config.Plan{
		"free":    {Name: "Free"},
		"basic":   {Name: "Basic"},
		"premium": {Name: "Premium"},
	}
	svc := NewTenantService(tenants, schoolUsers, plans, audit.NewLogger(nil, nil), nil)
	return svc, tenants, schoolUsers
}

func TestCreateTenantProvisionsAdmin(t *testing.T) {
	svc, _, schoolUsers := newTenantFixture(t)

	result, err := svc.CreateTenant(context.Background(), "provider-user-1", CreateTenantRequest{
		Name:       "Hillcrest Academy",
		Slug:       "hillcrest",
		Plan:       domain.PlanBasic,
		AdminName:  "Head Teacher",
		AdminEmail: "head@hillcrest.example",
	})
	if err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
	if result.Tenant.Status != domain.TenantActive {
		t.Errorf("expected new tenant active, got %s", result.Tenant.Status)
	}
	if result.AdminPassword == "" {
		t.Fatal("expected a one-time admin password")
	}

	// The admin can authenticate with the surfaced password.
	admin, err := schoolUsers.GetByEmail(result.Tenant.ID, "head@hillcrest.example")
	if err != nil {
		t.Fatalf("admin not provisioned: %v", err)
	}
	if admin.Role != domain.RoleAdmin {
		t.Errorf("expected role admin, got %s", admin.Role)
	}
	if !auth.CheckPassword(admin.PasswordHash, result.AdminPassword) {
		t.Error("one-time password does not match stored hash")
	}
}

func TestCreateTenantValidation(t *testing.T) {
	svc, _, _ := newTenantFixture(t)

	cases := []struct {
		name string
		req  CreateTenantRequest
	}{
		{"missing name", CreateTenantRequest{Slug: "x", AdminName: "A", AdminEmail: "a@x.example"}},
		{"bad slug", CreateTenantRequest{Name: "X", Slug: "Bad Slug!", AdminName: "A", AdminEmail: "a@x.example"}},
		{"unknown plan", CreateTenantRequest{Name: "X", Slug: "x", Plan: "platinum", AdminName: "A", AdminEmail: "a@x.example"}},
		{"missing admin", CreateTenantRequest{Name: "X", Slug: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateTenant(context.Background(), "actor", tc.req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreateTenantDuplicateSlug(t *testing.T) {
	svc, _, _ := newTenantFixture(t)

	req := CreateTenantRequest{Name: "Hillcrest", Slug: "hillcrest", AdminName: "A", AdminEmail: "a@hillcrest.example"}
	if _, err := svc.CreateTenant(context.Background(), "actor", req); err != nil {
		t.Fatalf("first create: %v", err)
	}
	req.AdminEmail = "b@hillcrest.example"
	if _, err := svc.CreateTenant(context.Background(), "actor", req); err == nil {
		t.Error("expected duplicate slug to be rejected")
	}
}

func TestUpdateStatus(t *testing.T) {
	svc, tenants, _ := newTenantFixture(t)
	result, err := svc.CreateTenant(context.Background(), "actor", CreateTenantRequest{
		Name: "Hillcrest", Slug: "hillcrest", AdminName: "A", AdminEmail: "a@hillcrest.example",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.UpdateStatus(context.Background(), "actor", result.Tenant.ID, domain.TenantSuspended); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	got, _ := tenants.GetByID(result.Tenant.ID)
	if got.Status != domain.TenantSuspended {
		t.Errorf("expected suspended, got %s", got.Status)
	}

	if err := svc.UpdateStatus(context.Background(), "actor", result.Tenant.ID, "vaporized"); err == nil {
		t.Error("expected invalid status to be rejected")
	}
}

func TestUpdatePlan(t *testing.T) {
	svc, tenants, _ := newTenantFixture(t)
	result, err := svc.CreateTenant(context.Background(), "actor", CreateTenantRequest{
		Name: "Hillcrest", Slug: "hillcrest", AdminName: "A", AdminEmail: "a@hillcrest.example",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.UpdatePlan(context.Background(), "actor", result.Tenant.ID, domain.PlanPremium); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	got, _ := tenants.GetByID(result.Tenant.ID)
	if got.SubscriptionPlan != domain.PlanPremium {
		t.Errorf("expected premium, got %s", got.SubscriptionPlan)
	}

	if err := svc.UpdatePlan(context.Background(), "actor", result.Tenant.ID, "platinum"); err == nil {
		t.Error("expected unknown plan to be rejected")
	}
}

package domain

import "time"

// Tenant status values mirrored by the provider console.
const (
	TenantActive    = "active"
	TenantInactive  = "inactive"
	TenantSuspended = "suspended"
)

// Subscription plan identifiers.
const (
	PlanFree    = "free"
	PlanBasic   = "basic"
	PlanPremium = "premium"
)

// Tenant represents a school/customer organization on the platform.
type Tenant struct {
	ID               string // UUID
	Name             string
	Slug             string // Unique URL-safe identifier, used at portal login
	Status           string // active | inactive | suspended
	SubscriptionPlan string // free | basic | premium
	Settings         map[string]string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TenantRepository defines data access for tenants
type TenantRepository interface {
	Create(tenant *Tenant) error
	GetByID(id string) (*Tenant, error)
	GetBySlug(slug string) (*Tenant, error)
	UpdateStatus(id, status string) error
	UpdatePlan(id, plan string) error
	Delete(id string) error
	List() ([]*Tenant, error)
}

// ProviderUser represents platform staff operating the provider console.
type ProviderUser struct {
	ID           string // UUID
	Email        string // Unique email address
	Name         string
	PasswordHash string // Bcrypt hashed password (not returned in API)
	Role         string // admin | support
	CreatedAt    time.Time
	UpdatedAt    time.Time
	IsActive     bool
}

// ProviderUserRepository defines data access for provider users
type ProviderUserRepository interface {
	Create(user *ProviderUser) error
	GetByID(id string) (*ProviderUser, error)
	GetByEmail(email string) (*ProviderUser, error)
	Update(user *ProviderUser) error
	Delete(id string) error
	List() ([]*ProviderUser, error)
}

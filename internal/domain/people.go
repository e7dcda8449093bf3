package domain

import "time"

// School user roles within a tenant.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStaff   = "staff"
)

// SchoolUser represents a portal account belonging to one tenant.
type SchoolUser struct {
	ID           string // UUID
	TenantID     string
	Email        string // Unique within the tenant
	Name         string
	PasswordHash string
	Role         string // admin | teacher | staff
	CreatedAt    time.Time
	UpdatedAt    time.Time
	IsActive     bool
}

// SchoolUserRepository defines data access for school users
type SchoolUserRepository interface {
	Create(user *SchoolUser) error
	GetByID(tenantID, id string) (*SchoolUser, error)
	GetByEmail(tenantID, email string) (*SchoolUser, error)
	Update(user *SchoolUser) error
	Delete(tenantID, id string) error
	ListByTenant(tenantID string) ([]*SchoolUser, error)
}

// Teacher is a tenant-scoped staff record. A freshly created or
// password-reset teacher gets a one-time temp password surfaced exactly
// once; only its hash is stored.
type Teacher struct {
	ID           string
	TenantID     string
	UserID       string // Linked SchoolUser account
	Email        string
	Name         string
	Specialty    string // Primary subject area, free text
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	IsActive     bool
}

// TeacherRepository defines data access for teachers
type TeacherRepository interface {
	Create(teacher *Teacher) error
	GetByID(tenantID, id string) (*Teacher, error)
	Update(teacher *Teacher) error
	UpdatePassword(tenantID, id, passwordHash string) error
	Delete(tenantID, id string) error
	ListByTenant(tenantID string) ([]*Teacher, error)
}

// Student is a tenant-scoped student record, soft-disabled via IsActive.
type Student struct {
	ID              string
	TenantID        string
	FirstName       string
	LastName        string
	AdmissionNumber string
	ClassID         string // Empty when not yet placed in a class
	CreatedAt       time.Time
	UpdatedAt       time.Time
	IsActive        bool
}

// StudentRepository defines data access for students
type StudentRepository interface {
	Create(student *Student) error
	GetByID(tenantID, id string) (*Student, error)
	Update(student *Student) error
	Delete(tenantID, id string) error
	ListByTenant(tenantID string) ([]*Student, error)
	ListByClass(tenantID, classID string) ([]*Student, error)
}

package security

import (
	"fmt"
	"log/slog"
)

// Role represents a user role within either identity domain
type Role string

const (
	// Provider console roles
	RoleProviderAdmin   Role = "admin"
	RoleProviderSupport Role = "support"

	// School portal roles
	RoleSchoolAdmin Role = "admin"
	RoleTeacher     Role = "teacher"
	RoleStaff       Role = "staff"
)

// Permission represents an action permission
type Permission string

const (
	PermManagePeople     Permission = "manage_people" // students, teachers, school users
	PermManageClasses    Permission = "manage_classes"
	PermManageSubjects   Permission = "manage_subjects"
	PermAssignSubjects   Permission = "assign_subjects" // class-subject-teacher links
	PermManageGradeTypes Permission = "manage_grade_types"
	PermManageTerms      Permission = "manage_terms"
	PermEnterGrades      Permission = "enter_grades"
	PermPublishGrades    Permission = "publish_grades"
	PermViewGrades       Permission = "view_grades"

	PermManageTenants       Permission = "manage_tenants"
	PermManageProviderUsers Permission = "manage_provider_users"
	PermViewActivity        Permission = "view_activity"
)

// SchoolRolePermissions maps portal roles to their permissions
var SchoolRolePermissions = map[Role][]Permission{
	RoleSchoolAdmin: {
		PermManagePeople,
		PermManageClasses,
		PermManageSubjects,
		PermAssignSubjects,
		PermManageGradeTypes,
		PermManageTerms,
		PermEnterGrades,
		PermPublishGrades,
		PermViewGrades,
	},
	RoleTeacher: {
		PermEnterGrades,
		PermPublishGrades,
		PermViewGrades,
	},
	RoleStaff: {
		PermViewGrades,
	},
}

// ProviderRolePermissions maps console roles to their permissions
var ProviderRolePermissions = map[Role][]Permission{
	RoleProviderAdmin: {
		PermManageTenants,
		PermManageProviderUsers,
		PermViewActivity,
	},
	RoleProviderSupport: {
		PermViewActivity,
	},
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{logger: logger}
}

func hasPermission(table map[Role][]Permission, role Role, permission Permission) bool {
	for _, p := range table[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// SchoolRoleCan checks a portal role against a permission
func (as *AuthorizationService) SchoolRoleCan(role Role, permission Permission) bool {
	return hasPermission(SchoolRolePermissions, role, permission)
}

// ProviderRoleCan checks a console role against a permission
func (as *AuthorizationService) ProviderRoleCan(role Role, permission Permission) bool {
	return hasPermission(ProviderRolePermissions, role, permission)
}

// ValidateSchoolPermission validates a portal role against a permission
func (as *AuthorizationService) ValidateSchoolPermission(role Role, permission Permission) error {
	if !as.SchoolRoleCan(role, permission) {
		as.logger.Warn("permission denied",
			slog.String("role", string(role)),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("permission denied: %s role cannot %s", role, permission)
	}
	return nil
}

// ValidateTenantAccess checks that a session belongs to the tenant it is
// touching. Portal handlers derive the tenant from the session claims, so
// this only trips when a resource row crosses tenants.
func (as *AuthorizationService) ValidateTenantAccess(sessionTenantID, resourceTenantID string) error {
	if sessionTenantID != resourceTenantID {
		as.logger.Warn("tenant access denied",
			slog.String("session_tenant", sessionTenantID),
			slog.String("resource_tenant", resourceTenantID),
		)
		return fmt.Errorf("access denied: invalid tenant")
	}
	return nil
}

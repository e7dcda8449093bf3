package handler

import (
	"net/http"

	"github.com/yourorg/classtrack/internal/security"
	"github.com/yourorg/classtrack/internal/security/middleware"
)

// schoolActor resolves the tenant and user behind a portal request and
// checks the role against a permission. The tenant always comes from the
// session claims, never from the request.
func schoolActor(w http.ResponseWriter, r *http.Request, authz *security.AuthorizationService, perm security.Permission) (tenantID, actorID string, ok bool) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil || claims.TenantID == "" {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return "", "", false
	}
	if err := authz.ValidateSchoolPermission(security.Role(claims.Role), perm); err != nil {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return "", "", false
	}
	return claims.TenantID, claims.UserID, true
}

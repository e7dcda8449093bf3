package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/classtrack/internal/security"
	"github.com/yourorg/classtrack/internal/security/middleware"
	"github.com/yourorg/classtrack/internal/service"
)

// TenantHandler serves the provider console tenant surface.
type TenantHandler struct {
	tenantService *service.TenantService
	authz         *security.AuthorizationService
	logger        *slog.Logger
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenantService *service.TenantService, authz *security.AuthorizationService, logger *slog.Logger) *TenantHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantHandler{tenantService: tenantService, authz: authz, logger: logger}
}

func (h *TenantHandler) requireManage(w http.ResponseWriter, r *http.Request) (actorID string, ok bool) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return "", false
	}
	if !h.authz.ProviderRoleCan(security.Role(claims.Role), security.PermManageTenants) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return "", false
	}
	return claims.UserID, true
}

// List handles GET /provider/tenants
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	tenants, err := h.tenantService.ListTenants()
	if err != nil {
		h.logger.Error("failed to list tenants", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list schools")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tenants": tenants})
}

// Create handles POST /provider/tenants
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireManage(w, r)
	if !ok {
		return
	}
	var req service.CreateTenantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.tenantService.CreateTenant(r.Context(), actorID, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Get handles GET /provider/tenants/{id}
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	tenant, err := h.tenantService.GetTenant(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// UpdateStatus handles PATCH /provider/tenants/{id}/status
func (h *TenantHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireManage(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.tenantService.UpdateStatus(r.Context(), actorID, r.PathValue("id"), req.Status); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

// UpdatePlan handles PATCH /provider/tenants/{id}/plan
func (h *TenantHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireManage(w, r)
	if !ok {
		return
	}
	var req struct {
		Plan string `json:"plan"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.tenantService.UpdatePlan(r.Context(), actorID, r.PathValue("id"), req.Plan); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"plan": req.Plan})
}

// Delete handles DELETE /provider/tenants/{id}
func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireManage(w, r)
	if !ok {
		return
	}
	if err := h.tenantService.DeleteTenant(r.Context(), actorID, r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Plans handles GET /provider/plans
func (h *TenantHandler) Plans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"plans": h.tenantService.Plans()})
}

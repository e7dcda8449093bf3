package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/classtrack/internal/domain"
	"github.com/yourorg/classtrack/internal/gradecalc"
	"github.com/yourorg/classtrack/internal/security"
	"github.com/yourorg/classtrack/internal/service"
)

// GradeTypeHandler serves weighted assessment categories. List responses
// include the advisory total-weight check so the portal can surface a
// warning when weights do not sum to 1.0.
type GradeTypeHandler struct {
	school *service.SchoolService
	authz  *security.AuthorizationService
	logger *slog.Logger
}

// NewGradeTypeHandler creates a new grade type handler
func NewGradeTypeHandler(school *service.SchoolService, authz *security.AuthorizationService, logger *slog.Logger) *GradeTypeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GradeTypeHandler{school: school, authz: authz, logger: logger}
}

type gradeTypeRequest struct {
	Name     string   `json:"name"`
	Weight   *float64 `json:"weight"`
	MaxScore int      `json:"maxScore"`
}

// List handles GET /portal/grade-types
func (h *GradeTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := schoolActor(w, r, h.authz, security.PermViewGrades)
	if !ok {
		return
	}
	types, err := h.school.ListGradeTypes(tenantID)
	if err != nil {
		h.logger.Error("failed to list grade types", slog.String("tenant_id", tenantID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list grade types")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"gradeTypes":      types,
		"totalWeight":     gradecalc.TotalWeight(types),
		"weightsBalanced": gradecalc.WeightsBalanced(types),
	})
}

// Create handles POST /portal/grade-types
func (h *GradeTypeHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManageGradeTypes)
	if !ok {
		return
	}
	var req gradeTypeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	gt, err := h.school.CreateGradeType(r.Context(), tenantID, actorID, &domain.GradeType{
		Name:     req.Name,
		Weight:   req.Weight,
		MaxScore: req.MaxScore,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, gt)
}

// Update handles PUT /portal/grade-types/{id}
func (h *GradeTypeHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManageGradeTypes)
	if !ok {
		return
	}
	var req gradeTypeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	gt, err := h.school.UpdateGradeType(r.Context(), tenantID, actorID, r.PathValue("id"), &domain.GradeType{
		Name:     req.Name,
		Weight:   req.Weight,
		MaxScore: req.MaxScore,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, gt)
}

// Delete handles DELETE /portal/grade-types/{id}
func (h *GradeTypeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManageGradeTypes)
	if !ok {
		return
	}
	if err := h.school.DeleteGradeType(r.Context(), tenantID, actorID, r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

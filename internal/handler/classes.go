package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/classtrack/internal/domain"
	"github.com/yourorg/classtrack/internal/security"
	"github.com/yourorg/classtrack/internal/service"
)

// ClassHandler serves the portal class directory, including the class
// roster used by bulk grade entry.
type ClassHandler struct {
	school *service.SchoolService
	authz  *security.AuthorizationService
	logger *slog.Logger
}

// NewClassHandler creates a new class handler
func NewClassHandler(school *service.SchoolService, authz *security.AuthorizationService, logger *slog.Logger) *ClassHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassHandler{school: school, authz: authz, logger: logger}
}

type classRequest struct {
	Name         string `json:"name"`
	GradeLevel   string `json:"gradeLevel"`
	Section      string `json:"section"`
	AcademicYear string `json:"academicYear"`
	Room         string `json:"room"`
}

// List handles GET /portal/classes
func (h *ClassHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := schoolActor(w, r, h.authz, security.PermViewGrades)
	if !ok {
		return
	}
	classes, err := h.school.ListClasses(tenantID)
	if err != nil {
		h.logger.Error("failed to list classes", slog.String("tenant_id", tenantID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list classes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"classes": classes})
}

// Create handles POST /portal/classes
func (h *ClassHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManageClasses)
	if !ok {
		return
	}
	var req classRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	class, err := h.school.CreateClass(r.Context(), tenantID, actorID, &domain.ClassRoom{
		Name:         req.Name,
		GradeLevel:   req.GradeLevel,
		Section:      req.Section,
		AcademicYear: req.AcademicYear,
		Room:         req.Room,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, class)
}

// Get handles GET /portal/classes/{id}
func (h *ClassHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := schoolActor(w, r, h.authz, security.PermViewGrades)
	if !ok {
		return
	}
	class, err := h.school.GetClass(tenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, class)
}

// Update handles PUT /portal/classes/{id}
func (h *ClassHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManageClasses)
	if !ok {
		return
	}
	var req classRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	class, err := h.school.UpdateClass(r.Context(), tenantID, actorID, r.PathValue("id"), &domain.ClassRoom{
		Name:         req.Name,
		GradeLevel:   req.GradeLevel,
		Section:      req.Section,
		AcademicYear: req.AcademicYear,
		Room:         req.Room,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, class)
}

// Roster handles GET /portal/classes/{id}/students
func (h *ClassHandler) Roster(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := schoolActor(w, r, h.authz, security.PermViewGrades)
	if !ok {
		return
	}
	students, err := h.school.ClassRoster(tenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"students": students})
}

// Delete handles DELETE /portal/classes/{id}
func (h *ClassHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManageClasses)
	if !ok {
		return
	}
	if err := h.school.DeleteClass(r.Context(), tenantID, actorID, r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

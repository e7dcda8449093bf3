package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/classtrack/internal/domain"
	"github.com/yourorg/classtrack/internal/security"
	"github.com/yourorg/classtrack/internal/service"
)

// TeacherHandler serves the portal teacher directory. Creation and
// password resets surface a one-time password in the response; it is
// never retrievable afterwards.
type TeacherHandler struct {
	school *service.SchoolService
	authz  *security.AuthorizationService
	logger *slog.Logger
}

// NewTeacherHandler creates a new teacher handler
func NewTeacherHandler(school *service.SchoolService, authz *security.AuthorizationService, logger *slog.Logger) *TeacherHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TeacherHandler{school: school, authz: authz, logger: logger}
}

type teacherRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Specialty string `json:"specialty"`
}

// List handles GET /portal/teachers
func (h *TeacherHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := schoolActor(w, r, h.authz, security.PermViewGrades)
	if !ok {
		return
	}
	teachers, err := h.school.ListTeachers(tenantID)
	if err != nil {
		h.logger.Error("failed to list teachers", slog.String("tenant_id", tenantID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list teachers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"teachers": teachers})
}

// Create handles POST /portal/teachers
func (h *TeacherHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManagePeople)
	if !ok {
		return
	}
	var req teacherRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.school.CreateTeacher(r.Context(), tenantID, actorID, &domain.Teacher{
		Name:      req.Name,
		Email:     req.Email,
		Specialty: req.Specialty,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Get handles GET /portal/teachers/{id}
func (h *TeacherHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := schoolActor(w, r, h.authz, security.PermViewGrades)
	if !ok {
		return
	}
	teacher, err := h.school.GetTeacher(tenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, teacher)
}

// Update handles PUT /portal/teachers/{id}
func (h *TeacherHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManagePeople)
	if !ok {
		return
	}
	var req teacherRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	teacher, err := h.school.UpdateTeacher(r.Context(), tenantID, actorID, r.PathValue("id"), &domain.Teacher{
		Name:      req.Name,
		Specialty: req.Specialty,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, teacher)
}

// ResetPassword handles POST /portal/teachers/{id}/reset-password
func (h *TeacherHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManagePeople)
	if !ok {
		return
	}
	result, err := h.school.ResetTeacherPassword(r.Context(), tenantID, actorID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Delete handles DELETE /portal/teachers/{id}
func (h *TeacherHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManagePeople)
	if !ok {
		return
	}
	if err := h.school.DeleteTeacher(r.Context(), tenantID, actorID, r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

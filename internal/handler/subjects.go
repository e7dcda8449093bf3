package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/classtrack/internal/domain"
	"github.com/yourorg/classtrack/internal/security"
	"github.com/yourorg/classtrack/internal/service"
)

// SubjectHandler serves the portal subject directory and class-subject
// teacher assignments.
type SubjectHandler struct {
	school *service.SchoolService
	authz  *security.AuthorizationService
	logger *slog.Logger
}

// NewSubjectHandler creates a new subject handler
func NewSubjectHandler(school *service.SchoolService, authz *security.AuthorizationService, logger *slog.Logger) *SubjectHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubjectHandler{school: school, authz: authz, logger: logger}
}

// List handles GET /portal/subjects
func (h *SubjectHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := schoolActor(w, r, h.authz, security.PermViewGrades)
	if !ok {
		return
	}
	subjects, err := h.school.ListSubjects(tenantID)
	if err != nil {
		h.logger.Error("failed to list subjects", slog.String("tenant_id", tenantID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list subjects")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subjects": subjects})
}

// Create handles POST /portal/subjects
func (h *SubjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManageSubjects)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	subject, err := h.school.CreateSubject(r.Context(), tenantID, actorID, &domain.Subject{Name: req.Name, Code: req.Code})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, subject)
}

// Update handles PUT /portal/subjects/{id}
func (h *SubjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManageSubjects)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	subject, err := h.school.UpdateSubject(r.Context(), tenantID, actorID, r.PathValue("id"), &domain.Subject{Name: req.Name, Code: req.Code})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, subject)
}

// Delete handles DELETE /portal/subjects/{id}
func (h *SubjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManageSubjects)
	if !ok {
		return
	}
	if err := h.school.DeleteSubject(r.Context(), tenantID, actorID, r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAssignments handles GET /portal/class-subjects?classId=
func (h *SubjectHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := schoolActor(w, r, h.authz, security.PermViewGrades)
	if !ok {
		return
	}
	assignments, err := h.school.ListAssignments(tenantID, r.URL.Query().Get("classId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list assignments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"assignments": assignments})
}

// Assign handles POST /portal/class-subjects. Re-assigning an existing
// (class, subject) pair replaces the teacher.
func (h *SubjectHandler) Assign(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermAssignSubjects)
	if !ok {
		return
	}
	var req struct {
		ClassID   string `json:"classId"`
		SubjectID string `json:"subjectId"`
		TeacherID string `json:"teacherId"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	assignment, err := h.school.AssignSubject(r.Context(), tenantID, actorID, &domain.ClassSubject{
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, assignment)
}

// Unassign handles DELETE /portal/class-subjects/{id}
func (h *SubjectHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermAssignSubjects)
	if !ok {
		return
	}
	if err := h.school.UnassignSubject(r.Context(), tenantID, actorID, r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

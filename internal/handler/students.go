package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/classtrack/internal/domain"
	"github.com/yourorg/classtrack/internal/security"
	"github.com/yourorg/classtrack/internal/service"
)

// StudentHandler serves the portal student directory.
type StudentHandler struct {
	school *service.SchoolService
	authz  *security.AuthorizationService
	logger *slog.Logger
}

// NewStudentHandler creates a new student handler
func NewStudentHandler(school *service.SchoolService, authz *security.AuthorizationService, logger *slog.Logger) *StudentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StudentHandler{school: school, authz: authz, logger: logger}
}

type studentRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	AdmissionNumber string `json:"admissionNumber"`
	ClassID         string `json:"classId"`
}

// List handles GET /portal/students
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := schoolActor(w, r, h.authz, security.PermViewGrades)
	if !ok {
		return
	}
	students, err := h.school.ListStudents(tenantID)
	if err != nil {
		h.logger.Error("failed to list students", slog.String("tenant_id", tenantID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list students")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"students": students})
}

// Create handles POST /portal/students
func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManagePeople)
	if !ok {
		return
	}
	var req studentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	student, err := h.school.CreateStudent(r.Context(), tenantID, actorID, &domain.Student{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		AdmissionNumber: req.AdmissionNumber,
		ClassID:         req.ClassID,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, student)
}

// Get handles GET /portal/students/{id}
func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := schoolActor(w, r, h.authz, security.PermViewGrades)
	if !ok {
		return
	}
	student, err := h.school.GetStudent(tenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, student)
}

// Update handles PUT /portal/students/{id}
func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManagePeople)
	if !ok {
		return
	}
	var req studentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	student, err := h.school.UpdateStudent(r.Context(), tenantID, actorID, r.PathValue("id"), &domain.Student{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		AdmissionNumber: req.AdmissionNumber,
		ClassID:         req.ClassID,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, student)
}

// Delete handles DELETE /portal/students/{id}
func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManagePeople)
	if !ok {
		return
	}
	if err := h.school.DeleteStudent(r.Context(), tenantID, actorID, r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

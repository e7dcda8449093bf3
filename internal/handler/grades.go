package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/classtrack/internal/domain"
	"github.com/yourorg/classtrack/internal/security"
	"github.com/yourorg/classtrack/internal/security/middleware"
	"github.com/yourorg/classtrack/internal/service"
)

// GradeHandler serves grade CRUD, publishing, bulk entry, and class
// summaries. Percentage and letter grade are always server-derived; any
// values a client sends for them are discarded.
type GradeHandler struct {
	grades *service.GradeService
	authz  *security.AuthorizationService
	logger *slog.Logger
}

// NewGradeHandler creates a new grade handler
func NewGradeHandler(grades *service.GradeService, authz *security.AuthorizationService, logger *slog.Logger) *GradeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GradeHandler{grades: grades, authz: authz, logger: logger}
}

func filterFromQuery(r *http.Request) domain.GradeFilter {
	q := r.URL.Query()
	f := domain.GradeFilter{
		StudentID:   q.Get("studentId"),
		ClassID:     q.Get("classId"),
		SubjectID:   q.Get("subjectId"),
		GradeTypeID: q.Get("gradeTypeId"),
		TermID:      q.Get("termId"),
	}
	switch q.Get("published") {
	case "true":
		v := true
		f.Published = &v
	case "false":
		v := false
		f.Published = &v
	}
	return f
}

// List handles GET /portal/grades. Roles without the grade-entry
// permission see only published grades with teacher notes stripped.
func (h *GradeHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := schoolActor(w, r, h.authz, security.PermViewGrades)
	if !ok {
		return
	}
	claims := middleware.GetClaimsFromContext(r.Context())
	filter := filterFromQuery(r)

	restricted := !h.authz.SchoolRoleCan(security.Role(claims.Role), security.PermEnterGrades)
	if restricted {
		published := true
		filter.Published = &published
	}

	grades, err := h.grades.ListGrades(tenantID, filter)
	if err != nil {
		h.logger.Error("failed to list grades", slog.String("tenant_id", tenantID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list grades")
		return
	}
	if restricted {
		for _, g := range grades {
			g.TeacherNotes = ""
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"grades": grades})
}

// Create handles POST /portal/grades
func (h *GradeHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermEnterGrades)
	if !ok {
		return
	}
	var req service.GradeInput
	if !decodeJSON(w, r, &req) {
		return
	}
	grade, err := h.grades.CreateGrade(r.Context(), tenantID, actorID, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, grade)
}

// Get handles GET /portal/grades/{id}
func (h *GradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := schoolActor(w, r, h.authz, security.PermViewGrades)
	if !ok {
		return
	}
	grade, err := h.grades.GetGrade(tenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	claims := middleware.GetClaimsFromContext(r.Context())
	if !h.authz.SchoolRoleCan(security.Role(claims.Role), security.PermEnterGrades) {
		if !grade.IsPublished {
			writeError(w, http.StatusNotFound, "grade not found")
			return
		}
		grade.TeacherNotes = ""
	}
	writeJSON(w, http.StatusOK, grade)
}

// Update handles PUT /portal/grades/{id}
func (h *GradeHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermEnterGrades)
	if !ok {
		return
	}
	var req service.GradeInput
	if !decodeJSON(w, r, &req) {
		return
	}
	grade, err := h.grades.UpdateGrade(r.Context(), tenantID, actorID, r.PathValue("id"), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, grade)
}

// Delete handles DELETE /portal/grades/{id}
func (h *GradeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermEnterGrades)
	if !ok {
		return
	}
	if err := h.grades.DeleteGrade(r.Context(), tenantID, actorID, r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Publish handles POST /portal/grades/{id}/publish
func (h *GradeHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, true)
}

// Unpublish handles POST /portal/grades/{id}/unpublish
func (h *GradeHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, false)
}

func (h *GradeHandler) setPublished(w http.ResponseWriter, r *http.Request, published bool) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermPublishGrades)
	if !ok {
		return
	}
	if err := h.grades.SetPublished(r.Context(), tenantID, actorID, r.PathValue("id"), published); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isPublished": published})
}

// Bulk handles POST /portal/grades/bulk. Partial success returns 200
// with per-row failures; only an empty or structurally invalid batch is
// rejected outright.
func (h *GradeHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermEnterGrades)
	if !ok {
		return
	}
	var req service.BulkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.grades.BulkCreate(r.Context(), tenantID, actorID, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Summary handles GET /portal/grades/summary?classId=&subjectId=&termId=
func (h *GradeHandler) Summary(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := schoolActor(w, r, h.authz, security.PermViewGrades)
	if !ok {
		return
	}
	q := r.URL.Query()
	if q.Get("classId") == "" || q.Get("subjectId") == "" {
		writeError(w, http.StatusBadRequest, "classId and subjectId are required")
		return
	}
	summary, err := h.grades.Summarize(tenantID, q.Get("classId"), q.Get("subjectId"), q.Get("termId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

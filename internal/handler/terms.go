package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/classtrack/internal/domain"
	"github.com/yourorg/classtrack/internal/security"
	"github.com/yourorg/classtrack/internal/service"
)

// TermHandler serves academic terms. At most one term per tenant is
// current; SetCurrent swaps the flag atomically.
type TermHandler struct {
	school *service.SchoolService
	authz  *security.AuthorizationService
	logger *slog.Logger
}

// NewTermHandler creates a new term handler
func NewTermHandler(school *service.SchoolService, authz *security.AuthorizationService, logger *slog.Logger) *TermHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TermHandler{school: school, authz: authz, logger: logger}
}

type termRequest struct {
	Name         string    `json:"name"`
	AcademicYear string    `json:"academicYear"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
}

// List handles GET /portal/terms
func (h *TermHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := schoolActor(w, r, h.authz, security.PermViewGrades)
	if !ok {
		return
	}
	terms, err := h.school.ListTerms(tenantID)
	if err != nil {
		h.logger.Error("failed to list terms", slog.String("tenant_id", tenantID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list terms")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"terms": terms})
}

// Create handles POST /portal/terms
func (h *TermHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManageTerms)
	if !ok {
		return
	}
	var req termRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	term, err := h.school.CreateTerm(r.Context(), tenantID, actorID, &domain.Term{
		Name:         req.Name,
		AcademicYear: req.AcademicYear,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, term)
}

// Update handles PUT /portal/terms/{id}
func (h *TermHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManageTerms)
	if !ok {
		return
	}
	var req termRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	term, err := h.school.UpdateTerm(r.Context(), tenantID, actorID, r.PathValue("id"), &domain.Term{
		Name:         req.Name,
		AcademicYear: req.AcademicYear,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, term)
}

// SetCurrent handles POST /portal/terms/{id}/set-current
func (h *TermHandler) SetCurrent(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManageTerms)
	if !ok {
		return
	}
	if err := h.school.SetCurrentTerm(r.Context(), tenantID, actorID, r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "current"})
}

// Delete handles DELETE /portal/terms/{id}
func (h *TermHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID, ok := schoolActor(w, r, h.authz, security.PermManageTerms)
	if !ok {
		return
	}
	if err := h.school.DeleteTerm(r.Context(), tenantID, actorID, r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

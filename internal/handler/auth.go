package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/classtrack/internal/security/audit"
	"github.com/yourorg/classtrack/internal/security/middleware"
	"github.com/yourorg/classtrack/internal/service"
)

// AuthHandler serves both login surfaces: /auth/* for the school portal
// and /provider-auth/* for the provider console.
type AuthHandler struct {
	authService *service.AuthService
	audit       *audit.Logger
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, auditLogger *audit.Logger, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{authService: authService, audit: auditLogger, logger: logger}
}

// SchoolLoginRequest carries portal credentials plus the school slug.
type SchoolLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	School   string `json:"slug"`
}

// ProviderLoginRequest carries console credentials.
type ProviderLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SchoolLogin handles POST /auth/login
func (h *AuthHandler) SchoolLogin(w http.ResponseWriter, r *http.Request) {
	var req SchoolLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.LoginSchool(r.Context(), req.Email, req.Password, req.School)
	if err != nil {
		h.audit.LogLogin(r.Context(), "school", "", "", "failed")
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	h.audit.LogLogin(r.Context(), "school", result.User.TenantID, result.User.ID, "succeeded")
	writeJSON(w, http.StatusOK, result)
}

// ProviderLogin handles POST /provider-auth/login
func (h *AuthHandler) ProviderLogin(w http.ResponseWriter, r *http.Request) {
	var req ProviderLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.LoginProvider(r.Context(), req.Email, req.Password)
	if err != nil {
		h.audit.LogLogin(r.Context(), "provider", "", "", "failed")
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	h.audit.LogLogin(r.Context(), "provider", "", result.User.ID, "succeeded")
	writeJSON(w, http.StatusOK, result)
}

// Logout handles POST /auth/logout and POST /provider-auth/logout. The
// middleware already validated the token; revoking the session record is
// what makes the token dead ahead of its expiry.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	if err := h.authService.Logout(r.Context(), claims); err != nil {
		h.logger.Warn("logout failed", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me handles GET /auth/me and GET /provider-auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	profile, err := h.authService.Me(claims)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/classtrack/internal/domain"
	"github.com/yourorg/classtrack/internal/security"
	"github.com/yourorg/classtrack/internal/security/middleware"
	"github.com/yourorg/classtrack/internal/service"
)

// ProviderUserHandler serves platform staff management.
type ProviderUserHandler struct {
	userService *service.ProviderUserService
	authz       *security.AuthorizationService
	logger      *slog.Logger
}

// NewProviderUserHandler creates a new provider user handler
func NewProviderUserHandler(userService *service.ProviderUserService, authz *security.AuthorizationService, logger *slog.Logger) *ProviderUserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProviderUserHandler{userService: userService, authz: authz, logger: logger}
}

func (h *ProviderUserHandler) requireManage(w http.ResponseWriter, r *http.Request) (actorID string, ok bool) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return "", false
	}
	if !h.authz.ProviderRoleCan(security.Role(claims.Role), security.PermManageProviderUsers) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return "", false
	}
	return claims.UserID, true
}

type providerUserView struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

func toProviderUserView(u *domain.ProviderUser) providerUserView {
	return providerUserView{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, IsActive: u.IsActive}
}

// List handles GET /provider/users
func (h *ProviderUserHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireManage(w, r); !ok {
		return
	}
	users, err := h.userService.ListUsers()
	if err != nil {
		h.logger.Error("failed to list provider users", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	views := make([]providerUserView, 0, len(users))
	for _, u := range users {
		views = append(views, toProviderUserView(u))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": views})
}

// Create handles POST /provider/users
func (h *ProviderUserHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireManage(w, r)
	if !ok {
		return
	}
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  string `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.userService.CreateUser(r.Context(), actorID, &domain.ProviderUser{
		Email: req.Email, Name: req.Name, Role: req.Role,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user":         toProviderUserView(result.User),
		"tempPassword": result.TempPassword,
	})
}

// Update handles PUT /provider/users/{id}
func (h *ProviderUserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireManage(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.userService.UpdateUser(r.Context(), actorID, r.PathValue("id"), &domain.ProviderUser{
		Name: req.Name, Role: req.Role,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toProviderUserView(user))
}

// Delete handles DELETE /provider/users/{id}
func (h *ProviderUserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireManage(w, r)
	if !ok {
		return
	}
	if err := h.userService.DeleteUser(r.Context(), actorID, r.PathValue("id")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

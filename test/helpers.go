package test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yourorg/classtrack/internal/domain"
	"github.com/yourorg/classtrack/internal/handler"
	"github.com/yourorg/classtrack/internal/security"
	"github.com/yourorg/classtrack/internal/security/audit"
	"github.com/yourorg/classtrack/internal/security/auth"
	"github.com/yourorg/classtrack/internal/security/middleware"
	"github.com/yourorg/classtrack/internal/service"
)

// Seeded test credentials.
const (
	SchoolSlug       = "northside"
	TeacherEmail     = "amy@northside.test"
	TeacherPassword  = "teacher-pw"
	ProviderEmail    = "ops@classtrack.test"
	ProviderPassword = "provider-pw"
)

// TestServerHelper mounts the production route table plus the auth
// middleware over in-memory auth fixtures, so tests exercise the same
// request path the deployed server does without Postgres or Redis.
type TestServerHelper struct {
	Server   *httptest.Server
	Sessions *StubSessions
}

// StubSessions is an in-memory stand-in for the Redis session registry.
type StubSessions struct {
	open map[string]bool
}

func (s *StubSessions) key(domain, sessionID string) string { return domain + ":" + sessionID }

func (s *StubSessions) Open(ctx context.Context, domain, sessionID, userID string) error {
	s.open[s.key(domain, sessionID)] = true
	return nil
}

func (s *StubSessions) Revoke(ctx context.Context, domain, sessionID string) error {
	delete(s.open, s.key(domain, sessionID))
	return nil
}

func (s *StubSessions) Active(ctx context.Context, domain, sessionID string) bool {
	return s.open[s.key(domain, sessionID)]
}

type stubTenantRepo struct{ tenants map[string]*domain.Tenant }

func (r *stubTenantRepo) Create(t *domain.Tenant) error { r.tenants[t.ID] = t; return nil }
func (r *stubTenantRepo) GetByID(id string) (*domain.Tenant, error) {
	if t, ok := r.tenants[id]; ok {
		return t, nil
	}
	return nil, errors.New("tenant not found")
}
func (r *stubTenantRepo) GetBySlug(slug string) (*domain.Tenant, error) {
	for _, t := range r.tenants {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, errors.New("tenant not found")
}
func (r *stubTenantRepo) UpdateStatus(id, status string) error { return nil }
func (r *stubTenantRepo) UpdatePlan(id, plan string) error     { return nil }
func (r *stubTenantRepo) Delete(id string) error               { return nil }
func (r *stubTenantRepo) List() ([]*domain.Tenant, error)      { return nil, nil }

type stubSchoolUserRepo struct{ users []*domain.SchoolUser }

func (r *stubSchoolUserRepo) Create(u *domain.SchoolUser) error { r.users = append(r.users, u); return nil }
func (r *stubSchoolUserRepo) GetByID(tenantID, id string) (*domain.SchoolUser, error) {
	for _, u := range r.users {
		if u.TenantID == tenantID && u.ID == id {
			return u, nil
		}
	}
	return nil, errors.New("user not found")
}
func (r *stubSchoolUserRepo) GetByEmail(tenantID, email string) (*domain.SchoolUser, error) {
	for _, u := range r.users {
		if u.TenantID == tenantID && u.Email == email {
			return u, nil
		}
	}
	return nil, errors.New("user not found")
}
func (r *stubSchoolUserRepo) Update(u *domain.SchoolUser) error          { return nil }
func (r *stubSchoolUserRepo) Delete(tenantID, id string) error           { return nil }
func (r *stubSchoolUserRepo) ListByTenant(string) ([]*domain.SchoolUser, error) { return nil, nil }

type stubProviderUserRepo struct{ users []*domain.ProviderUser }

func (r *stubProviderUserRepo) Create(u *domain.ProviderUser) error { r.users = append(r.users, u); return nil }
func (r *stubProviderUserRepo) GetByID(id string) (*domain.ProviderUser, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, errors.New("user not found")
}
func (r *stubProviderUserRepo) GetByEmail(email string) (*domain.ProviderUser, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.New("user not found")
}
func (r *stubProviderUserRepo) Update(u *domain.ProviderUser) error     { return nil }
func (r *stubProviderUserRepo) Delete(id string) error                  { return nil }
func (r *stubProviderUserRepo) List() ([]*domain.ProviderUser, error)   { return nil, nil }

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return hash
}

// NewTestServer builds a server with one active school, one teacher and
// one provider admin seeded.
func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{Level: slog.LevelError}))

	tenants := &stubTenantRepo{tenants: map[string]*domain.Tenant{
		"tenant-1": {
			ID:               "tenant-1",
			Name:             "Northside High",
			Slug:             SchoolSlug,
			Status:           domain.TenantActive,
			SubscriptionPlan: domain.PlanFree,
		},
	}}
	schoolUsers := &stubSchoolUserRepo{users: []*domain.SchoolUser{{
		ID:           "user-1",
		TenantID:     "tenant-1",
		Email:        TeacherEmail,
		Name:         "Amy",
		PasswordHash: mustHash(t, TeacherPassword),
		Role:         domain.RoleTeacher,
		IsActive:     true,
	}}}
	providerUsers := &stubProviderUserRepo{users: []*domain.ProviderUser{{
		ID:           "prov-1",
		Email:        ProviderEmail,
		Name:         "Ops",
		PasswordHash: mustHash(t, ProviderPassword),
		Role:         "admin",
		IsActive:     true,
	}}}

	schoolTM := auth.NewTokenManager("school-test-secret", auth.DomainSchool)
	providerTM := auth.NewTokenManager("provider-test-secret", auth.DomainProvider)
	sessions := &StubSessions{open: make(map[string]bool)}
	auditLogger := audit.NewLogger(logger, nil)
	authz := security.NewAuthorizationService(logger)

	authService := service.NewAuthService(providerUsers, schoolUsers, tenants, providerTM, schoolTM, sessions, time.Hour, logger)

	mux := handler.NewRouter(handler.RouterDeps{
		Auth:          handler.NewAuthHandler(authService, auditLogger, logger),
		Tenants:       handler.NewTenantHandler(nil, authz, logger),
		ProviderUsers: handler.NewProviderUserHandler(nil, authz, logger),
		Students:      handler.NewStudentHandler(nil, authz, logger),
		Teachers:      handler.NewTeacherHandler(nil, authz, logger),
		Classes:       handler.NewClassHandler(nil, authz, logger),
		Subjects:      handler.NewSubjectHandler(nil, authz, logger),
		GradeTypes:    handler.NewGradeTypeHandler(nil, authz, logger),
		Terms:         handler.NewTermHandler(nil, authz, logger),
		Grades:        handler.NewGradeHandler(nil, authz, logger),
		Activity:      handler.NewActivityHandler(nil, authz, nil, logger),
		Readiness: []handler.Pinger{handler.PingerFunc(func(ctx context.Context) error {
			return nil
		})},
	})

	root := middleware.AuthMiddleware(schoolTM, providerTM, sessions, logger)(mux)
	server := httptest.NewServer(root)
	t.Cleanup(server.Close)

	return &TestServerHelper{Server: server, Sessions: sessions}
}

// testLogWriter forwards server logs to the test output.
type testLogWriter struct{ t *testing.T }

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func (h *TestServerHelper) URL() string { return h.Server.URL }

// PostJSON sends a JSON body with an optional bearer token.
func (h *TestServerHelper) PostJSON(t *testing.T, path, token string, payload interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to encode payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, h.URL()+path, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// Get sends a GET with an optional bearer token.
func (h *TestServerHelper) Get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.URL()+path, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// LoginSchool logs the seeded teacher in and returns the token.
func (h *TestServerHelper) LoginSchool(t *testing.T) string {
	t.Helper()
	resp := h.PostJSON(t, "/auth/login", "", map[string]string{
		"email":    TeacherEmail,
		"password": TeacherPassword,
		"slug":     SchoolSlug,
	})
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusOK)

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	return result.Token
}

// LoginProvider logs the seeded provider admin in and returns the token.
func (h *TestServerHelper) LoginProvider(t *testing.T) string {
	t.Helper()
	resp := h.PostJSON(t, "/provider-auth/login", "", map[string]string{
		"email":    ProviderEmail,
		"password": ProviderPassword,
	})
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusOK)

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	return result.Token
}

// AssertStatusCode fails the test when the status differs.
func AssertStatusCode(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Errorf("expected status %d, got %d", want, resp.StatusCode)
	}
}

// AssertContentType fails the test when the Content-Type prefix differs.
func AssertContentType(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	got := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(got, want) {
		t.Errorf("expected content type %q, got %q", want, got)
	}
}

package test

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

// TestHealthEndpoint verifies health check endpoint
func TestHealthEndpoint(t *testing.T) {
	server := NewTestServer(t)

	resp := server.Get(t, "/healthz", "")
	defer resp.Body.Close()

	AssertStatusCode(t, resp, http.StatusOK)

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("Expected 'ok', got '%s'", string(body))
	}
}

// TestReadinessEndpoint verifies readiness check endpoint
func TestReadinessEndpoint(t *testing.T) {
	server := NewTestServer(t)

	resp := server.Get(t, "/readyz", "")
	defer resp.Body.Close()

	AssertStatusCode(t, resp, http.StatusOK)

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ready" {
		t.Errorf("Expected 'ready', got '%s'", string(body))
	}
}

// TestMetricsEndpoint verifies Prometheus metrics endpoint
func TestMetricsEndpoint(t *testing.T) {
	server := NewTestServer(t)

	resp := server.Get(t, "/metrics", "")
	defer resp.Body.Close()

	AssertStatusCode(t, resp, http.StatusOK)
	AssertContentType(t, resp, "text/plain")
}

func TestPortalRequiresAuth(t *testing.T) {
	server := NewTestServer(t)

	resp := server.Get(t, "/portal/students", "")
	defer resp.Body.Close()

	AssertStatusCode(t, resp, http.StatusUnauthorized)
}

func TestSchoolLoginAndMe(t *testing.T) {
	server := NewTestServer(t)
	token := server.LoginSchool(t)

	resp := server.Get(t, "/auth/me", token)
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusOK)

	var profile struct {
		Email    string `json:"email"`
		TenantID string `json:"tenantId"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}
	if profile.Email != TeacherEmail {
		t.Errorf("expected email %s, got %s", TeacherEmail, profile.Email)
	}
	if profile.TenantID != "tenant-1" {
		t.Errorf("expected tenant-1, got %s", profile.TenantID)
	}
}

func TestSchoolLoginWrongPassword(t *testing.T) {
	server := NewTestServer(t)

	resp := server.PostJSON(t, "/auth/login", "", map[string]string{
		"email":    TeacherEmail,
		"password": "wrong",
		"slug":     SchoolSlug,
	})
	defer resp.Body.Close()

	AssertStatusCode(t, resp, http.StatusUnauthorized)
}

// A provider token must not open portal routes: the path picks the
// school token manager, which rejects tokens signed for the other
// domain.
func TestProviderTokenRejectedOnPortal(t *testing.T) {
	server := NewTestServer(t)
	token := server.LoginProvider(t)

	resp := server.Get(t, "/portal/students", token)
	defer resp.Body.Close()

	AssertStatusCode(t, resp, http.StatusUnauthorized)
}

func TestSchoolTokenRejectedOnProviderRoutes(t *testing.T) {
	server := NewTestServer(t)
	token := server.LoginSchool(t)

	resp := server.Get(t, "/provider/tenants", token)
	defer resp.Body.Close()

	AssertStatusCode(t, resp, http.StatusUnauthorized)
}

// Logging out revokes the server-side session, so the same token stops
// working even though its JWT expiry is still in the future.
func TestLogoutRevokesToken(t *testing.T) {
	server := NewTestServer(t)
	token := server.LoginSchool(t)

	resp := server.PostJSON(t, "/auth/logout", token, map[string]string{})
	resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusOK)

	resp = server.Get(t, "/auth/me", token)
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusUnauthorized)
}

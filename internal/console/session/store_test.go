package session

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

// fakeDoer counts requests and serves canned responses per path.
type fakeDoer struct {
	calls     int
	lastBody  string
	responses map[string]fakeResponse
}

type fakeResponse struct {
	status int
	body   string
}

func (d *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	d.calls++
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		d.lastBody = string(b)
	}
	resp, ok := d.responses[req.URL.Path]
	if !ok {
		resp = fakeResponse{status: http.StatusNotFound, body: `{"error":"not found"}`}
	}
	return &http.Response{
		StatusCode: resp.status,
		Body:       io.NopCloser(strings.NewReader(resp.body)),
		Header:     make(http.Header),
	}, nil
}

const loginBody = `{"token":"tok-1","expiresAt":"2026-01-02T00:00:00Z","user":{"id":"u1","email":"amy@school.test","name":"Amy","role":"teacher","tenantId":"t1"}}`

func TestLoginPersistsAndRehydrates(t *testing.T) {
	keys := NewMemKeystore()
	doer := &fakeDoer{responses: map[string]fakeResponse{
		"/auth/login": {status: http.StatusOK, body: loginBody},
	}}
	store := NewStore(DomainSchool, keys, doer, "http://api.test", "", nil)

	err := store.Login(context.Background(), Credentials{Email: "amy@school.test", Password: "pw", School: "northside"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !store.LoggedIn() {
		t.Fatal("expected logged in after login")
	}
	if got := store.Profile().TenantID; got != "t1" {
		t.Errorf("expected tenant t1 in profile, got %q", got)
	}

	// A fresh store over the same keystore picks the session up without
	// any network call.
	before := doer.calls
	restored := NewStore(DomainSchool, keys, doer, "http://api.test", "", nil)
	if doer.calls != before {
		t.Errorf("rehydration made %d network calls", doer.calls-before)
	}
	if !restored.LoggedIn() {
		t.Fatal("expected rehydrated store to be logged in")
	}
	if restored.Token() != "tok-1" {
		t.Errorf("expected rehydrated token tok-1, got %q", restored.Token())
	}
}

// The server expects the tenant selector under the "slug" key.
func TestLoginSendsTenantSlug(t *testing.T) {
	doer := &fakeDoer{responses: map[string]fakeResponse{
		"/auth/login": {status: http.StatusOK, body: loginBody},
	}}
	store := NewStore(DomainSchool, NewMemKeystore(), doer, "http://api.test", "", nil)

	if err := store.Login(context.Background(), Credentials{Email: "amy@school.test", Password: "pw", School: "northside"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !strings.Contains(doer.lastBody, `"slug":"northside"`) {
		t.Errorf("expected slug in login payload, got %s", doer.lastBody)
	}
}

func TestLoginFailureSurfacesServerMessage(t *testing.T) {
	doer := &fakeDoer{responses: map[string]fakeResponse{
		"/auth/login": {status: http.StatusUnauthorized, body: `{"error":"invalid credentials"}`},
	}}
	store := NewStore(DomainSchool, NewMemKeystore(), doer, "http://api.test", "", nil)

	err := store.Login(context.Background(), Credentials{Email: "amy@school.test", Password: "wrong", School: "northside"})
	if err == nil {
		t.Fatal("expected error for rejected login")
	}
	if err.Error() != "invalid credentials" {
		t.Errorf("expected server message, got %q", err.Error())
	}
	if store.LoggedIn() {
		t.Error("expected store to stay logged out")
	}
}

func TestDemoLoginSkipsNetwork(t *testing.T) {
	doer := &fakeDoer{responses: map[string]fakeResponse{}}
	store := NewStore(DomainProvider, NewMemKeystore(), doer, "http://api.test", "demo@classtrack.app", nil)

	err := store.Login(context.Background(), Credentials{Email: "demo@classtrack.app", Password: "anything"})
	if err != nil {
		t.Fatalf("demo login failed: %v", err)
	}
	if doer.calls != 0 {
		t.Errorf("demo login made %d network calls, want 0", doer.calls)
	}
	if !store.LoggedIn() {
		t.Fatal("expected demo session")
	}
	if store.Profile().Email != "demo@classtrack.app" {
		t.Errorf("unexpected demo profile email %q", store.Profile().Email)
	}
}

func TestDemoLoginFlagOff(t *testing.T) {
	t.Setenv("FLAG_DEMO_LOGIN", "off")
	doer := &fakeDoer{responses: map[string]fakeResponse{}}
	store := NewStore(DomainProvider, NewMemKeystore(), doer, "http://api.test", "demo@classtrack.app", nil)

	err := store.Login(context.Background(), Credentials{Email: "demo@classtrack.app", Password: "anything"})
	if err == nil {
		t.Fatal("expected real login attempt to fail against fake server")
	}
	if doer.calls != 1 {
		t.Errorf("expected the bypass to be disabled, got %d calls", doer.calls)
	}
}

func TestRefreshFailureForcesLogout(t *testing.T) {
	keys := NewMemKeystore()
	doer := &fakeDoer{responses: map[string]fakeResponse{
		"/auth/login": {status: http.StatusOK, body: loginBody},
		"/auth/me":    {status: http.StatusUnauthorized, body: `{"error":"session expired"}`},
	}}
	store := NewStore(DomainSchool, keys, doer, "http://api.test", "", nil)
	if err := store.Login(context.Background(), Credentials{Email: "amy@school.test", Password: "pw", School: "northside"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := store.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh to fail")
	}
	if store.LoggedIn() {
		t.Error("expected forced logout after failed refresh")
	}
	if _, ok := keys.Get("school_token"); ok {
		t.Error("expected token removed from keystore")
	}
}

func TestLogoutTouchesOnlyOwnDomain(t *testing.T) {
	keys := NewMemKeystore()
	doer := &fakeDoer{responses: map[string]fakeResponse{
		"/auth/login":          {status: http.StatusOK, body: loginBody},
		"/provider-auth/login": {status: http.StatusOK, body: `{"token":"tok-p","user":{"id":"p1","email":"ops@classtrack.app","role":"admin"}}`},
		"/auth/logout":         {status: http.StatusOK, body: `{"status":"logged out"}`},
	}}
	school := NewStore(DomainSchool, keys, doer, "http://api.test", "", nil)
	provider := NewStore(DomainProvider, keys, doer, "http://api.test", "", nil)

	if err := school.Login(context.Background(), Credentials{Email: "amy@school.test", Password: "pw", School: "northside"}); err != nil {
		t.Fatalf("school login failed: %v", err)
	}
	if err := provider.Login(context.Background(), Credentials{Email: "ops@classtrack.app", Password: "pw"}); err != nil {
		t.Fatalf("provider login failed: %v", err)
	}

	school.Logout(context.Background())

	if school.LoggedIn() {
		t.Error("expected school session cleared")
	}
	if !provider.LoggedIn() {
		t.Error("expected provider session untouched")
	}
}

// Package session holds the console's client-side authentication state.
// The provider console and the school portal each get their own Store, so
// an expired school session never disturbs the provider session and vice
// versa.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/yourorg/classtrack/internal/featureflags"
)

// Domain names the identity domain a store belongs to.
type Domain string

const (
	DomainProvider Domain = "provider"
	DomainSchool   Domain = "school"
)

// Profile mirrors the user shape the server returns on login and /me.
type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	TenantID string `json:"tenantId,omitempty"`
}

// Credentials carries a login request. School is the tenant slug and only
// applies to the school domain.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	School   string `json:"slug,omitempty"`
}

type loginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Profile   `json:"user"`
}

// Doer is the minimal HTTP client a store needs, satisfied by
// *http.Client and by counting fakes in tests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Store holds one domain's session. Construction rehydrates from the
// keystore without checking the token against the server; a stale token
// surfaces on the first authenticated request instead.
type Store struct {
	domain    Domain
	keys      Keystore
	client    Doer
	baseURL   string
	demoEmail string
	logger    *slog.Logger

	mu      sync.RWMutex
	token   string
	profile *Profile
}

// NewStore creates a session store for one domain. demoEmail enables the
// offline demo login bypass on the provider domain; empty disables it.
func NewStore(domain Domain, keys Keystore, client Doer, baseURL, demoEmail string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		domain:    domain,
		keys:      keys,
		client:    client,
		baseURL:   baseURL,
		demoEmail: demoEmail,
		logger:    logger,
	}
	s.rehydrate()
	return s
}

func (s *Store) tokenKey() string { return string(s.domain) + "_token" }
func (s *Store) userKey() string  { return string(s.domain) + "_user" }

func (s *Store) rehydrate() {
	token, ok := s.keys.Get(s.tokenKey())
	if !ok || token == "" {
		return
	}
	raw, ok := s.keys.Get(s.userKey())
	if !ok {
		return
	}
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Warn("discarding corrupt stored session", slog.String("domain", string(s.domain)))
		s.keys.Delete(s.tokenKey())
		s.keys.Delete(s.userKey())
		return
	}
	s.token = token
	s.profile = &p
}

// Domain returns the identity domain this store serves.
func (s *Store) Domain() Domain { return s.domain }

// Token returns the current token, empty when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// LoggedIn reports whether a session is held locally. It says nothing
// about server-side validity.
func (s *Store) LoggedIn() bool {
	return s.Token() != ""
}

// Profile returns the cached profile, nil when logged out.
func (s *Store) Profile() *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

func (s *Store) loginPath() string {
	if s.domain == DomainSchool {
		return "/auth/login"
	}
	return "/provider-auth/login"
}

func (s *Store) logoutPath() string {
	if s.domain == DomainSchool {
		return "/auth/logout"
	}
	return "/provider-auth/logout"
}

func (s *Store) mePath() string {
	if s.domain == DomainSchool {
		return "/auth/me"
	}
	return "/provider-auth/me"
}

// Login authenticates against this store's domain and persists the
// session. A provider login with the configured demo email fabricates a
// local session without touching the network, unless FLAG_DEMO_LOGIN
// turns the bypass off.
func (s *Store) Login(ctx context.Context, creds Credentials) error {
	if s.domain == DomainProvider && s.demoEmail != "" && creds.Email == s.demoEmail &&
		featureflags.EnabledDefault("demo_login", true) {
		return s.adopt("demo-token", &Profile{
			ID:    "demo",
			Email: s.demoEmail,
			Name:  "Demo User",
			Role:  "admin",
		})
	}

	body, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode login request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+s.loginPath(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s", errorMessage(resp.Body, "login failed"))
	}

	var result loginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}
	return s.adopt(result.Token, &result.User)
}

func (s *Store) adopt(token string, profile *Profile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := s.keys.Set(s.tokenKey(), token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	if err := s.keys.Set(s.userKey(), string(raw)); err != nil {
		return fmt.Errorf("failed to persist profile: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.profile = profile
	s.mu.Unlock()

	s.logger.Debug("session opened", slog.String("domain", string(s.domain)))
	return nil
}

// Logout revokes the server-side session best-effort, then clears local
// state. Only this store's domain is touched.
func (s *Store) Logout(ctx context.Context) {
	token := s.Token()
	if token != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+s.logoutPath(), nil)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+token)
			if resp, err := s.client.Do(req); err == nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			} else {
				s.logger.Debug("logout request failed", slog.String("error", err.Error()))
			}
		}
	}
	s.ForceLogout()
}

// ForceLogout clears the local session without a network call. The
// gateway uses it when the server answers 401.
func (s *Store) ForceLogout() {
	s.keys.Delete(s.tokenKey())
	s.keys.Delete(s.userKey())

	s.mu.Lock()
	s.token = ""
	s.profile = nil
	s.mu.Unlock()
}

// Refresh revalidates the session against /me and updates the cached
// profile. Any failure forces a logout of this domain.
func (s *Store) Refresh(ctx context.Context) error {
	token := s.Token()
	if token == "" {
		return fmt.Errorf("not logged in")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+s.mePath(), nil)
	if err != nil {
		return fmt.Errorf("failed to build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		s.ForceLogout()
		return fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.ForceLogout()
		return fmt.Errorf("%s", errorMessage(resp.Body, "session expired"))
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		s.ForceLogout()
		return fmt.Errorf("failed to decode profile: %w", err)
	}

	raw, _ := json.Marshal(&p)
	s.keys.Set(s.userKey(), string(raw))

	s.mu.Lock()
	s.profile = &p
	s.mu.Unlock()
	return nil
}

// errorMessage extracts the server's JSON error field, falling back to a
// generic message.
func errorMessage(body io.Reader, fallback string) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return fallback
}

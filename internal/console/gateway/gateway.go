// Package gateway is the console's single outbound HTTP client. Every
// API call flows through it so token selection and 401 recovery behave
// the same regardless of which screen issued the request.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/classtrack/internal/console/session"
)

// Login routes the gateway redirects to after a forced logout.
const (
	ProviderLoginRoute = "/provider/login"
	SchoolLoginRoute   = "/school/login"
)

// Navigator is how the gateway redirects after a forced logout. The CLI
// and tests provide lightweight implementations.
type Navigator interface {
	NavigateTo(route string)
	CurrentRoute() string
}

// Gateway attaches the right domain's token per request and handles 401
// by logging out only the domain whose token was rejected.
type Gateway struct {
	baseURL  string
	client   session.Doer
	provider *session.Store
	school   *session.Store
	nav      Navigator
	logger   *slog.Logger
}

// New creates a gateway. When client is nil an otel-instrumented
// http.Client is used.
func New(baseURL string, provider, school *session.Store, nav Navigator, client session.Doer, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Gateway{
		baseURL:  baseURL,
		client:   client,
		provider: provider,
		school:   school,
		nav:      nav,
		logger:   logger,
	}
}

// pick selects the store whose token authenticates a path. Portal and
// school-auth paths prefer the school session and fall back to the
// provider session; everything else is provider territory.
func (g *Gateway) pick(path string) *session.Store {
	if strings.HasPrefix(path, "/portal") || strings.HasPrefix(path, "/auth") {
		if g.school.LoggedIn() {
			return g.school
		}
		return g.provider
	}
	return g.provider
}

func (g *Gateway) loginRoute(store *session.Store) string {
	if store.Domain() == session.DomainSchool {
		return SchoolLoginRoute
	}
	return ProviderLoginRoute
}

// Do performs one API request. body is JSON-encoded when non-nil; out is
// decoded from a 2xx response when non-nil. A 401 forces a logout of the
// domain whose token was sent and navigates to that domain's login route
// unless the console is already there.
func (g *Gateway) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	store := g.pick(path)
	if token := store.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug("request failed", slog.String("path", path), slog.String("error", err.Error()))
		return fmt.Errorf("request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		g.logger.Info("session rejected, forcing logout", slog.String("domain", string(store.Domain())))
		store.ForceLogout()
		login := g.loginRoute(store)
		if g.nav.CurrentRoute() != login {
			g.nav.NavigateTo(login)
		}
		return fmt.Errorf("session expired")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s", errorMessage(resp.Body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return nil
}

// Get is shorthand for Do with no request body.
func (g *Gateway) Get(ctx context.Context, path string, out interface{}) error {
	return g.Do(ctx, http.MethodGet, path, nil, out)
}

// Post is shorthand for a JSON POST.
func (g *Gateway) Post(ctx context.Context, path string, body, out interface{}) error {
	return g.Do(ctx, http.MethodPost, path, body, out)
}

func errorMessage(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return "request failed"
}

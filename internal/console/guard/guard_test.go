package guard

import "testing"

type fakeSession struct{ loggedIn bool }

func (s *fakeSession) LoggedIn() bool { return s.loggedIn }

type fakeNav struct {
	route string
	moves []string
}

func (n *fakeNav) NavigateTo(route string) {
	n.route = route
	n.moves = append(n.moves, route)
}

func (n *fakeNav) CurrentRoute() string { return n.route }

func TestRequireAuthRedirectsAnonymous(t *testing.T) {
	nav := &fakeNav{route: "/school/grades"}
	g := New(&fakeSession{loggedIn: false}, nav, "/school/login", "/school/home")

	if g.RequireAuth() {
		t.Error("expected anonymous visitor to be blocked")
	}
	if nav.route != "/school/login" {
		t.Errorf("expected redirect to login, got %s", nav.route)
	}
}

func TestRequireAuthPassesAuthenticated(t *testing.T) {
	nav := &fakeNav{route: "/school/grades"}
	g := New(&fakeSession{loggedIn: true}, nav, "/school/login", "/school/home")

	if !g.RequireAuth() {
		t.Error("expected authenticated visitor to pass")
	}
	if len(nav.moves) != 0 {
		t.Errorf("expected no navigation, got %v", nav.moves)
	}
}

func TestRedirectIfAuthedMovesOffLoginPage(t *testing.T) {
	nav := &fakeNav{route: "/school/login"}
	g := New(&fakeSession{loggedIn: true}, nav, "/school/login", "/school/home")

	if g.RedirectIfAuthed() {
		t.Error("expected authenticated visitor to be moved off the login page")
	}
	if nav.route != "/school/home" {
		t.Errorf("expected redirect home, got %s", nav.route)
	}
}

func TestRedirectIfAuthedLetsAnonymousStay(t *testing.T) {
	nav := &fakeNav{route: "/school/login"}
	g := New(&fakeSession{loggedIn: false}, nav, "/school/login", "/school/home")

	if !g.RedirectIfAuthed() {
		t.Error("expected anonymous visitor to stay on the login page")
	}
}

func TestGuardsAreIndependentPerDomain(t *testing.T) {
	nav := &fakeNav{route: "/provider/tenants"}
	providerSession := &fakeSession{loggedIn: true}
	schoolSession := &fakeSession{loggedIn: false}

	provider := New(providerSession, nav, "/provider/login", "/provider/home")
	school := New(schoolSession, nav, "/school/login", "/school/home")

	if !provider.RequireAuth() {
		t.Error("expected provider guard to pass on its own session")
	}
	if school.RequireAuth() {
		t.Error("expected school guard to block despite provider session")
	}
	if nav.route != "/school/login" {
		t.Errorf("expected school login redirect, got %s", nav.route)
	}
}

// Package guard implements the console's route guards. Each guard
// consults exactly one domain's session, so the provider console and the
// school portal gate independently.
package guard

// Session is the slice of a session store a guard needs.
type Session interface {
	LoggedIn() bool
}

// Navigator redirects the console between routes.
type Navigator interface {
	NavigateTo(route string)
	CurrentRoute() string
}

// Guard protects one domain's route tree.
type Guard struct {
	session    Session
	nav        Navigator
	loginRoute string
	homeRoute  string
}

// New creates a guard for one domain.
func New(session Session, nav Navigator, loginRoute, homeRoute string) *Guard {
	return &Guard{session: session, nav: nav, loginRoute: loginRoute, homeRoute: homeRoute}
}

// RequireAuth gates a protected route. Unauthenticated visitors are
// redirected to this domain's login route. Returns true when the visitor
// may proceed.
func (g *Guard) RequireAuth() bool {
	if g.session.LoggedIn() {
		return true
	}
	if g.nav.CurrentRoute() != g.loginRoute {
		g.nav.NavigateTo(g.loginRoute)
	}
	return false
}

// RedirectIfAuthed gates a public route such as the login page. Visitors
// who already hold a session are sent to the domain home. Returns true
// when the visitor may stay.
func (g *Guard) RedirectIfAuthed() bool {
	if !g.session.LoggedIn() {
		return true
	}
	if g.nav.CurrentRoute() != g.homeRoute {
		g.nav.NavigateTo(g.homeRoute)
	}
	return false
}

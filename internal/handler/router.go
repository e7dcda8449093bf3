package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is the readiness probe dependency, satisfied by the Redis client
// and the database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a plain function to the Pinger interface.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Auth          *AuthHandler
	Tenants       *TenantHandler
	ProviderUsers *ProviderUserHandler
	Students      *StudentHandler
	Teachers      *TeacherHandler
	Classes       *ClassHandler
	Subjects      *SubjectHandler
	GradeTypes    *GradeTypeHandler
	Terms         *TermHandler
	Grades        *GradeHandler
	Activity      *ActivityHandler
	Readiness     []Pinger
}

// NewRouter assembles the full route table. Kept out of main so the
// integration tests can mount the exact production routes.
func NewRouter(deps RouterDeps) *http.ServeMux {
	mux := http.NewServeMux()

	// School portal auth
	mux.HandleFunc("POST /auth/login", deps.Auth.SchoolLogin)
	mux.HandleFunc("POST /auth/logout", deps.Auth.Logout)
	mux.HandleFunc("GET /auth/me", deps.Auth.Me)

	// Provider console auth
	mux.HandleFunc("POST /provider-auth/login", deps.Auth.ProviderLogin)
	mux.HandleFunc("POST /provider-auth/logout", deps.Auth.Logout)
	mux.HandleFunc("GET /provider-auth/me", deps.Auth.Me)

	// Provider console
	mux.HandleFunc("GET /provider/tenants", deps.Tenants.List)
	mux.HandleFunc("POST /provider/tenants", deps.Tenants.Create)
	mux.HandleFunc("GET /provider/tenants/{id}", deps.Tenants.Get)
	mux.HandleFunc("PATCH /provider/tenants/{id}/status", deps.Tenants.UpdateStatus)
	mux.HandleFunc("PATCH /provider/tenants/{id}/plan", deps.Tenants.UpdatePlan)
	mux.HandleFunc("DELETE /provider/tenants/{id}", deps.Tenants.Delete)
	mux.HandleFunc("GET /provider/plans", deps.Tenants.Plans)
	mux.HandleFunc("GET /provider/users", deps.ProviderUsers.List)
	mux.HandleFunc("POST /provider/users", deps.ProviderUsers.Create)
	mux.HandleFunc("PUT /provider/users/{id}", deps.ProviderUsers.Update)
	mux.HandleFunc("DELETE /provider/users/{id}", deps.ProviderUsers.Delete)
	mux.HandleFunc("GET /provider/activity", deps.Activity.Recent)
	mux.Handle("GET /ws/activity", deps.Activity)

	// School portal directory
	mux.HandleFunc("GET /portal/students", deps.Students.List)
	mux.HandleFunc("POST /portal/students", deps.Students.Create)
	mux.HandleFunc("GET /portal/students/{id}", deps.Students.Get)
	mux.HandleFunc("PUT /portal/students/{id}", deps.Students.Update)
	mux.HandleFunc("DELETE /portal/students/{id}", deps.Students.Delete)

	mux.HandleFunc("GET /portal/teachers", deps.Teachers.List)
	mux.HandleFunc("POST /portal/teachers", deps.Teachers.Create)
	mux.HandleFunc("GET /portal/teachers/{id}", deps.Teachers.Get)
	mux.HandleFunc("PUT /portal/teachers/{id}", deps.Teachers.Update)
	mux.HandleFunc("POST /portal/teachers/{id}/reset-password", deps.Teachers.ResetPassword)
	mux.HandleFunc("DELETE /portal/teachers/{id}", deps.Teachers.Delete)

	mux.HandleFunc("GET /portal/classes", deps.Classes.List)
	mux.HandleFunc("POST /portal/classes", deps.Classes.Create)
	mux.HandleFunc("GET /portal/classes/{id}", deps.Classes.Get)
	mux.HandleFunc("PUT /portal/classes/{id}", deps.Classes.Update)
	mux.HandleFunc("GET /portal/classes/{id}/students", deps.Classes.Roster)
	mux.HandleFunc("DELETE /portal/classes/{id}", deps.Classes.Delete)

	mux.HandleFunc("GET /portal/subjects", deps.Subjects.List)
	mux.HandleFunc("POST /portal/subjects", deps.Subjects.Create)
	mux.HandleFunc("PUT /portal/subjects/{id}", deps.Subjects.Update)
	mux.HandleFunc("DELETE /portal/subjects/{id}", deps.Subjects.Delete)
	mux.HandleFunc("GET /portal/class-subjects", deps.Subjects.ListAssignments)
	mux.HandleFunc("POST /portal/class-subjects", deps.Subjects.Assign)
	mux.HandleFunc("DELETE /portal/class-subjects/{id}", deps.Subjects.Unassign)

	mux.HandleFunc("GET /portal/grade-types", deps.GradeTypes.List)
	mux.HandleFunc("POST /portal/grade-types", deps.GradeTypes.Create)
	mux.HandleFunc("PUT /portal/grade-types/{id}", deps.GradeTypes.Update)
	mux.HandleFunc("DELETE /portal/grade-types/{id}", deps.GradeTypes.Delete)

	mux.HandleFunc("GET /portal/terms", deps.Terms.List)
	mux.HandleFunc("POST /portal/terms", deps.Terms.Create)
	mux.HandleFunc("PUT /portal/terms/{id}", deps.Terms.Update)
	mux.HandleFunc("POST /portal/terms/{id}/set-current", deps.Terms.SetCurrent)
	mux.HandleFunc("DELETE /portal/terms/{id}", deps.Terms.Delete)

	// Grades. The literal bulk and summary patterns are more specific
	// than the {id} wildcards, so ServeMux routes them first regardless
	// of registration order.
	mux.HandleFunc("GET /portal/grades", deps.Grades.List)
	mux.HandleFunc("POST /portal/grades", deps.Grades.Create)
	mux.HandleFunc("POST /portal/grades/bulk", deps.Grades.Bulk)
	mux.HandleFunc("GET /portal/grades/summary", deps.Grades.Summary)
	mux.HandleFunc("GET /portal/grades/{id}", deps.Grades.Get)
	mux.HandleFunc("PUT /portal/grades/{id}", deps.Grades.Update)
	mux.HandleFunc("DELETE /portal/grades/{id}", deps.Grades.Delete)
	mux.HandleFunc("POST /portal/grades/{id}/publish", deps.Grades.Publish)
	mux.HandleFunc("POST /portal/grades/{id}/unpublish", deps.Grades.Unpublish)

	// Ops endpoints, public
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, p := range deps.Readiness {
			if err := p.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("not ready"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	return mux
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/classtrack/internal/console/bulkentry"
	"github.com/yourorg/classtrack/internal/console/gateway"
	"github.com/yourorg/classtrack/internal/console/guard"
	"github.com/yourorg/classtrack/internal/console/session"
)

// console bundles the client core the commands operate on.
type console struct {
	provider *session.Store
	school   *session.Store
	gw       *gateway.Gateway
	nav      *cliNavigator
}

// cliNavigator satisfies the Navigator interfaces. A terminal has no
// routes to switch between, so navigation just tells the user where the
// console would have sent them.
type cliNavigator struct {
	route string
}

func (n *cliNavigator) NavigateTo(route string) {
	n.route = route
	fmt.Fprintf(os.Stderr, "(redirected to %s)\n", route)
}

func (n *cliNavigator) CurrentRoute() string { return n.route }

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	c, err := newConsole()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "provider":
		c.handleAuth(c.provider, args)
	case "school":
		c.handleAuth(c.school, args)
	case "tenant":
		c.handleTenant(args)
	case "plans":
		c.listPlans()
	case "users":
		c.handleUsers(args)
	case "portal":
		c.handlePortal(args)
	case "grades":
		c.handleGrades(args)
	case "activity":
		c.listActivity()
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func newConsole() (*console, error) {
	keys, err := session.NewFileKeystore(os.Getenv("CLASSTRACK_CONFIG_DIR"))
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	base := getAPIURL()

	provider := session.NewStore(session.DomainProvider, keys, client, base, getDemoEmail(), logger)
	school := session.NewStore(session.DomainSchool, keys, client, base, "", logger)
	nav := &cliNavigator{}
	gw := gateway.New(base, provider, school, nav, client, logger)

	return &console{provider: provider, school: school, gw: gw, nav: nav}, nil
}

// Auth commands, shared between the two domains.

func (c *console) handleAuth(store *session.Store, args []string) {
	if len(args) < 1 {
		fmt.Printf("Usage: classtrack %s <login|logout|whoami>\n", store.Domain())
		return
	}

	switch args[0] {
	case "login":
		c.login(store, args[1:])
	case "logout":
		store.Logout(context.Background())
		fmt.Println("✓ Logged out")
	case "whoami":
		c.whoami(store)
	default:
		fmt.Printf("unknown %s command: %s\n", store.Domain(), args[0])
	}
}

func (c *console) login(store *session.Store, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	school := fs.String("school", "", "school slug (school domain only)")
	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}
	if store.Domain() == session.DomainSchool && *school == "" {
		fmt.Println("Error: -school is required for school login")
		return
	}

	err := store.Login(context.Background(), session.Credentials{
		Email:    *email,
		Password: *password,
		School:   *school,
	})
	if err != nil {
		fmt.Printf("✗ Login failed: %v\n", err)
		return
	}
	fmt.Printf("✓ Logged in as: %s\n", *email)
}

func (c *console) whoami(store *session.Store) {
	g := guard.New(store, c.nav, loginRoute(store), homeRoute(store))
	if !g.RequireAuth() {
		fmt.Println("Not logged in")
		return
	}
	if err := store.Refresh(context.Background()); err != nil {
		fmt.Printf("✗ Session invalid: %v\n", err)
		return
	}
	p := store.Profile()
	fmt.Printf("✓ %s <%s> role=%s", p.Name, p.Email, p.Role)
	if p.TenantID != "" {
		fmt.Printf(" school=%s", p.TenantID)
	}
	fmt.Println()
}

func loginRoute(store *session.Store) string {
	if store.Domain() == session.DomainSchool {
		return gateway.SchoolLoginRoute
	}
	return gateway.ProviderLoginRoute
}

func homeRoute(store *session.Store) string {
	if store.Domain() == session.DomainSchool {
		return "/portal/grades"
	}
	return "/provider/tenants"
}

// Tenant commands (provider console).

func (c *console) handleTenant(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: classtrack tenant <list|create|status|plan|delete>")
		return
	}

	switch args[0] {
	case "list":
		c.listTenants()
	case "create":
		c.createTenant(args[1:])
	case "status":
		c.setTenantStatus(args[1:])
	case "plan":
		c.setTenantPlan(args[1:])
	case "delete":
		c.deleteTenant(args[1:])
	default:
		fmt.Printf("unknown tenant command: %s\n", args[0])
	}
}

func (c *console) listTenants() {
	var out struct {
		Tenants []struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Slug   string `json:"slug"`
			Plan   string `json:"plan"`
			Status string `json:"status"`
		} `json:"tenants"`
	}
	if err := c.gw.Get(context.Background(), "/provider/tenants", &out); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSLUG\tPLAN\tSTATUS")
	for _, t := range out.Tenants {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Slug, t.Plan, t.Status)
	}
	w.Flush()
}

func (c *console) createTenant(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "school name")
	slug := fs.String("slug", "", "login slug")
	plan := fs.String("plan", "free", "subscription plan")
	adminName := fs.String("admin-name", "", "initial admin name")
	adminEmail := fs.String("admin-email", "", "initial admin email")
	fs.Parse(args)

	if *name == "" || *slug == "" || *adminName == "" || *adminEmail == "" {
		fmt.Println("Error: name, slug, admin-name and admin-email are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"name":       *name,
		"slug":       *slug,
		"plan":       *plan,
		"adminName":  *adminName,
		"adminEmail": *adminEmail,
	}
	var out struct {
		Tenant struct {
			ID string `json:"id"`
		} `json:"tenant"`
		AdminPassword string `json:"adminPassword"`
	}
	if err := c.gw.Post(context.Background(), "/provider/tenants", payload, &out); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	fmt.Printf("✓ School created: %s\n", out.Tenant.ID)
	fmt.Printf("  Admin one-time password: %s\n", out.AdminPassword)
	fmt.Println("  Shown once only. Pass it to the school admin now.")
}

func (c *console) setTenantStatus(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: classtrack tenant status <tenant-id> <active|inactive|suspended>")
		return
	}
	path := "/provider/tenants/" + args[0] + "/status"
	if err := c.gw.Do(context.Background(), http.MethodPatch, path, map[string]string{"status": args[1]}, nil); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	fmt.Printf("✓ Status set to %s\n", args[1])
}

func (c *console) setTenantPlan(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: classtrack tenant plan <tenant-id> <plan>")
		return
	}
	path := "/provider/tenants/" + args[0] + "/plan"
	if err := c.gw.Do(context.Background(), http.MethodPatch, path, map[string]string{"plan": args[1]}, nil); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	fmt.Printf("✓ Plan set to %s\n", args[1])
}

func (c *console) deleteTenant(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: classtrack tenant delete <tenant-id>")
		return
	}
	if err := c.gw.Do(context.Background(), http.MethodDelete, "/provider/tenants/"+args[0], nil, nil); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	fmt.Println("✓ School deactivated (data retained)")
}

func (c *console) listPlans() {
	var out struct {
		Plans map[string]struct {
			Name string `json:"Name"`
		} `json:"plans"`
	}
	if err := c.gw.Get(context.Background(), "/provider/plans", &out); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLAN\tDESCRIPTION")
	for key, p := range out.Plans {
		fmt.Fprintf(w, "%s\t%s\n", key, p.Name)
	}
	w.Flush()
}

// Provider staff commands.

func (c *console) handleUsers(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: classtrack users <list|create|delete>")
		return
	}

	switch args[0] {
	case "list":
		c.listUsers()
	case "create":
		c.createUser(args[1:])
	case "delete":
		c.deleteUser(args[1:])
	default:
		fmt.Printf("unknown users command: %s\n", args[0])
	}
}

func (c *console) listUsers() {
	var out struct {
		Users []struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Name  string `json:"name"`
			Role  string `json:"role"`
		} `json:"users"`
	}
	if err := c.gw.Get(context.Background(), "/provider/users", &out); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE")
	for _, u := range out.Users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Name, u.Role)
	}
	w.Flush()
}

func (c *console) createUser(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	email := fs.String("email", "", "email")
	name := fs.String("name", "", "display name")
	role := fs.String("role", "support", "admin or support")
	fs.Parse(args)

	if *email == "" || *name == "" {
		fmt.Println("Error: email and name are required")
		fs.PrintDefaults()
		return
	}

	var out struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		TempPassword string `json:"tempPassword"`
	}
	payload := map[string]string{"email": *email, "name": *name, "role": *role}
	if err := c.gw.Post(context.Background(), "/provider/users", payload, &out); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	fmt.Printf("✓ User created: %s\n", out.User.ID)
	fmt.Printf("  One-time password: %s\n", out.TempPassword)
}

func (c *console) deleteUser(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: classtrack users delete <user-id>")
		return
	}
	if err := c.gw.Do(context.Background(), http.MethodDelete, "/provider/users/"+args[0], nil, nil); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	fmt.Println("✓ User removed")
}

// Portal listing commands (school domain).

func (c *console) handlePortal(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: classtrack portal <students|roster|terms|grade-types>")
		return
	}

	switch args[0] {
	case "students":
		c.listStudents()
	case "roster":
		c.listRoster(args[1:])
	case "terms":
		c.listTerms()
	case "grade-types":
		c.listGradeTypes()
	default:
		fmt.Printf("unknown portal command: %s\n", args[0])
	}
}

type studentRow struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	ClassID   string `json:"classId"`
}

func printStudents(students []studentRow) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCLASS")
	for _, s := range students {
		fmt.Fprintf(w, "%s\t%s %s\t%s\n", s.ID, s.FirstName, s.LastName, s.ClassID)
	}
	w.Flush()
}

func (c *console) listStudents() {
	var out struct {
		Students []studentRow `json:"students"`
	}
	if err := c.gw.Get(context.Background(), "/portal/students", &out); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	printStudents(out.Students)
}

func (c *console) listRoster(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: classtrack portal roster <class-id>")
		return
	}
	var out struct {
		Students []studentRow `json:"students"`
	}
	if err := c.gw.Get(context.Background(), "/portal/classes/"+args[0]+"/students", &out); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	printStudents(out.Students)
}

func (c *console) listTerms() {
	var out struct {
		Terms []struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			IsCurrent bool   `json:"isCurrent"`
		} `json:"terms"`
	}
	if err := c.gw.Get(context.Background(), "/portal/terms", &out); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCURRENT")
	for _, t := range out.Terms {
		current := ""
		if t.IsCurrent {
			current = "✓"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, current)
	}
	w.Flush()
}

func (c *console) listGradeTypes() {
	var out struct {
		GradeTypes []struct {
			ID     string   `json:"id"`
			Name   string   `json:"name"`
			Weight *float64 `json:"weight"`
		} `json:"gradeTypes"`
		TotalWeight     float64 `json:"totalWeight"`
		WeightsBalanced bool    `json:"weightsBalanced"`
	}
	if err := c.gw.Get(context.Background(), "/portal/grade-types", &out); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tWEIGHT")
	for _, gt := range out.GradeTypes {
		weight := "-"
		if gt.Weight != nil {
			weight = strconv.FormatFloat(*gt.Weight, 'f', -1, 64)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", gt.ID, gt.Name, weight)
	}
	w.Flush()
	if !out.WeightsBalanced {
		fmt.Printf("⚠ Weights sum to %.2f, not 1.0. Averages may mislead.\n", out.TotalWeight)
	}
}

// Grade commands.

func (c *console) handleGrades(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: classtrack grades <bulk|list>")
		return
	}

	switch args[0] {
	case "bulk":
		c.bulkGrades(args[1:])
	case "list":
		c.listGrades(args[1:])
	default:
		fmt.Printf("unknown grades command: %s\n", args[0])
	}
}

func (c *console) listGrades(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	classID := fs.String("class", "", "filter by class")
	studentID := fs.String("student", "", "filter by student")
	fs.Parse(args)

	path := "/portal/grades"
	var params []string
	if *classID != "" {
		params = append(params, "classId="+*classID)
	}
	if *studentID != "" {
		params = append(params, "studentId="+*studentID)
	}
	if len(params) > 0 {
		path += "?" + strings.Join(params, "&")
	}

	var out struct {
		Grades []struct {
			ID          string  `json:"id"`
			StudentID   string  `json:"studentId"`
			Title       string  `json:"title"`
			Score       float64 `json:"score"`
			MaxScore    int     `json:"maxScore"`
			Percentage  float64 `json:"percentage"`
			LetterGrade string  `json:"letterGrade"`
			IsPublished bool    `json:"isPublished"`
		} `json:"grades"`
	}
	if err := c.gw.Get(context.Background(), path, &out); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTUDENT\tTITLE\tSCORE\tPCT\tLETTER\tPUBLISHED")
	for _, g := range out.Grades {
		published := ""
		if g.IsPublished {
			published = "✓"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f/%d\t%.1f%%\t%s\t%s\n",
			g.ID, g.StudentID, g.Title, g.Score, g.MaxScore, g.Percentage, g.LetterGrade, published)
	}
	w.Flush()
}

// gatewaySubmitter adapts the gateway to the bulk entry machine.
type gatewaySubmitter struct {
	gw *gateway.Gateway
}

func (s *gatewaySubmitter) SubmitGrades(ctx context.Context, req bulkentry.Request) (*bulkentry.Result, error) {
	var result bulkentry.Result
	if err := s.gw.Post(ctx, "/portal/grades/bulk", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// bulkGrades drives the bulk entry machine from the command line. Scores
// arrive as trailing student-id=score arguments; blank scores are simply
// omitted.
func (c *console) bulkGrades(args []string) {
	fs := flag.NewFlagSet("bulk", flag.ExitOnError)
	classID := fs.String("class", "", "class ID")
	subjectID := fs.String("subject", "", "subject ID")
	gradeTypeID := fs.String("type", "", "grade type ID")
	termID := fs.String("term", "", "term ID")
	title := fs.String("title", "", "assessment title")
	maxScore := fs.Int("max", 100, "maximum score")
	date := fs.String("date", "", "assessment date (YYYY-MM-DD, default today)")
	fs.Parse(args)

	if *classID == "" || *subjectID == "" || *gradeTypeID == "" || *termID == "" || *title == "" {
		fmt.Println("Error: class, subject, type, term and title are required")
		fs.PrintDefaults()
		return
	}

	assessmentDate := time.Now().UTC().Truncate(24 * time.Hour)
	if *date != "" {
		parsed, err := time.Parse("2006-01-02", *date)
		if err != nil {
			fmt.Printf("Error: invalid date %q\n", *date)
			return
		}
		assessmentDate = parsed
	}

	ctx := context.Background()

	var roster struct {
		Students []studentRow `json:"students"`
	}
	if err := c.gw.Get(ctx, "/portal/classes/"+*classID+"/students", &roster); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	students := make([]bulkentry.Student, 0, len(roster.Students))
	for _, s := range roster.Students {
		students = append(students, bulkentry.Student{ID: s.ID, Name: s.FirstName + " " + s.LastName})
	}

	machine := bulkentry.New()
	if err := machine.Start(students, bulkentry.Meta{
		ClassID:        *classID,
		SubjectID:      *subjectID,
		GradeTypeID:    *gradeTypeID,
		TermID:         *termID,
		Title:          *title,
		MaxScore:       *maxScore,
		AssessmentDate: assessmentDate,
	}); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}

	// Start selects the whole roster, so arguments only need a
	// membership check before entry.
	for _, arg := range fs.Args() {
		id, _, found := strings.Cut(arg, "=")
		if !found {
			fmt.Printf("Error: expected student-id=score, got %q\n", arg)
			return
		}
		if !machine.Selected(id) {
			fmt.Printf("⚠ %s is not in this class, skipping\n", id)
		}
	}
	if err := machine.BeginEntry(); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	for _, arg := range fs.Args() {
		id, score, _ := strings.Cut(arg, "=")
		machine.SetScore(id, score)
		if pct, letter, _, ok := machine.Preview(id); ok {
			fmt.Printf("  %s: %s → %.1f%% (%s)\n", id, score, pct, letter)
		}
	}

	err := machine.Submit(ctx, &gatewaySubmitter{gw: c.gw})
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}

	result := machine.Result()
	switch machine.Phase() {
	case bulkentry.PhaseSucceeded:
		fmt.Printf("✓ Saved %d grades\n", result.Saved)
	case bulkentry.PhasePartiallyFailed:
		fmt.Printf("⚠ Saved %d grades, %d failed:\n", result.Saved, len(result.Failed))
		for _, f := range result.Failed {
			fmt.Printf("  %s: %s\n", f.StudentID, f.Error)
		}
	}
}

func (c *console) listActivity() {
	var out struct {
		Events []struct {
			Time     time.Time `json:"time"`
			Domain   string    `json:"domain"`
			Action   string    `json:"action"`
			Resource string    `json:"resource"`
			UserID   string    `json:"userId"`
			Status   string    `json:"status"`
		} `json:"events"`
	}
	if err := c.gw.Get(context.Background(), "/provider/activity", &out); err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tDOMAIN\tACTION\tRESOURCE\tUSER\tSTATUS")
	for _, e := range out.Events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Time.Format(time.RFC3339), e.Domain, e.Action, e.Resource, e.UserID, e.Status)
	}
	w.Flush()
}

// Helper functions

func getAPIURL() string {
	if url := os.Getenv("CLASSTRACK_API"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func getDemoEmail() string {
	if email := os.Getenv("CLASSTRACK_DEMO_EMAIL"); email != "" {
		return email
	}
	return "demo@classtrack.app"
}

func printUsage() {
	fmt.Print(`ClassTrack console

Usage:
  classtrack <command> [options]

Commands:
  provider   Provider console auth (login, logout, whoami)
  school     School portal auth (login, logout, whoami)
  tenant     School management (list, create, status, plan, delete)
  plans      Subscription plan catalog
  users      Provider staff (list, create, delete) - admin access required
  portal     School directory (students, roster, terms, grade-types)
  grades     Grade operations (bulk, list)
  activity   Recent provider activity feed
  help       Show this help message

Environment Variables:
  CLASSTRACK_API           API endpoint (default: http://localhost:8080)
  CLASSTRACK_CONFIG_DIR    Session storage directory (default: ~/.classtrack)

Examples:
  classtrack provider login -email ops@classtrack.app -password pass
  classtrack school login -email teacher@school.test -password pass -school northside
  classtrack tenant create -name "Northside High" -slug northside -admin-name Dana -admin-email dana@school.test
  classtrack grades bulk -class c1 -subject s1 -type t1 -term term1 -title "Quiz 3" -max 20 stu1=18 stu2=15.5
`)
}

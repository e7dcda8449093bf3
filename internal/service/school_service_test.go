package service

import (
	"context"
	"testing"
	"time"

	"github.com/yourorg/classtrack/internal/domain"
	"github.com/yourorg/classtrack/internal/security/audit"
	"github.com/yourorg/classtrack/internal/security/auth"
	"github.com/yourorg/classtrack/pkg/cache"
)

type schoolFixture struct {
	svc         *SchoolService
	students    *memStudentRepo
	teachers    *memTeacherRepo
	schoolUsers *memSchoolUserRepo
	classes     *memClassRepo
	subjects    *memSubjectRepo
	assignments *memClassSubjectRepo
	terms       *memTermRepo
	types       *memGradeTypeRepo
	tenantID    string
}

func newSchoolFixture(t *testing.T) *schoolFixture {
	t.Helper()
	f := &schoolFixture{
		students:    newMemStudentRepo(),
		teachers:    newMemTeacherRepo(),
		schoolUsers: newMemSchoolUserRepo(),
		classes:     newMemClassRepo(),
		subjects:    newMemSubjectRepo(),
		assignments: newMemClassSubjectRepo(),
		terms:       newMemTermRepo(),
		types:       newMemGradeTypeRepo(),
		tenantID:    "tenant-1",
	}
	f.svc = NewSchoolService(
		f.students, f.teachers, f.schoolUsers, f.classes, f.subjects,
		f.assignments, f.terms, f.types, cache.New(), audit.NewLogger(nil, nil), nil,
	)
	return f
}

func (f *schoolFixture) addClass(t *testing.T, name string) *domain.ClassRoom {
	t.Helper()
	class, err := f.svc.CreateClass(context.Background(), f.tenantID, "admin-1", &domain.ClassRoom{Name: name, GradeLevel: "7"})
	if err != nil {
		t.Fatalf("create class: %v", err)
	}
	return class
}

func TestCreateTeacherProvisionsAccount(t *testing.T) {
	f := newSchoolFixture(t)

	result, err := f.svc.CreateTeacher(context.Background(), f.tenantID, "admin-1", &domain.Teacher{
		Name:      "Grace Hopper",
		Email:     "grace@hillcrest.example",
		Specialty: "Mathematics",
	})
	if err != nil {
		t.Fatalf("create teacher: %v", err)
	}
	if result.TempPassword == "" {
		t.Fatal("expected a one-time password")
	}

	account, err := f.schoolUsers.GetByEmail(f.tenantID, "grace@hillcrest.example")
	if err != nil {
		t.Fatalf("linked account not created: %v", err)
	}
	if account.Role != domain.RoleTeacher {
		t.Errorf("expected role teacher, got %s", account.Role)
	}
	if result.Teacher.UserID != account.ID {
		t.Errorf("teacher not linked to account, got %s want %s", result.Teacher.UserID, account.ID)
	}
	if !auth.CheckPassword(account.PasswordHash, result.TempPassword) {
		t.Error("one-time password does not match account hash")
	}
}

func TestCreateTeacherDuplicateEmail(t *testing.T) {
	f := newSchoolFixture(t)

	in := &domain.Teacher{Name: "Grace", Email: "grace@hillcrest.example"}
	if _, err := f.svc.CreateTeacher(context.Background(), f.tenantID, "admin-1", in); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := f.svc.CreateTeacher(context.Background(), f.tenantID, "admin-1", &domain.Teacher{
		Name: "Other Grace", Email: "grace@hillcrest.example",
	}); err == nil {
		t.Error("expected duplicate email to be rejected")
	}
}

func TestResetTeacherPassword(t *testing.T) {
	f := newSchoolFixture(t)

	created, err := f.svc.CreateTeacher(context.Background(), f.tenantID, "admin-1", &domain.Teacher{
		Name: "Grace", Email: "grace@hillcrest.example",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	reset, err := f.svc.ResetTeacherPassword(context.Background(), f.tenantID, "admin-1", created.Teacher.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset.TempPassword == created.TempPassword {
		t.Error("expected a fresh one-time password")
	}

	// Both the teacher record and the linked portal account take the new hash.
	account, _ := f.schoolUsers.GetByID(f.tenantID, created.Teacher.UserID)
	if !auth.CheckPassword(account.PasswordHash, reset.TempPassword) {
		t.Error("linked account did not take the new password")
	}
	if auth.CheckPassword(account.PasswordHash, created.TempPassword) {
		t.Error("old password still valid on linked account")
	}
}

func TestStudentClassMoveInvalidatesRoster(t *testing.T) {
	f := newSchoolFixture(t)
	classA := f.addClass(t, "7A")
	classB := f.addClass(t, "7B")

	student, err := f.svc.CreateStudent(context.Background(), f.tenantID, "admin-1", &domain.Student{
		FirstName: "Ada", LastName: "Lovelace", AdmissionNumber: "A-001", ClassID: classA.ID,
	})
	if err != nil {
		t.Fatalf("create student: %v", err)
	}

	roster, err := f.svc.ClassRoster(f.tenantID, classA.ID)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 1 {
		t.Fatalf("expected 1 student in 7A, got %d", len(roster))
	}

	update := *student
	update.ClassID = classB.ID
	if _, err := f.svc.UpdateStudent(context.Background(), f.tenantID, "admin-1", student.ID, &update); err != nil {
		t.Fatalf("move student: %v", err)
	}

	roster, _ = f.svc.ClassRoster(f.tenantID, classA.ID)
	if len(roster) != 0 {
		t.Errorf("expected 7A empty after move, got %d", len(roster))
	}
	roster, _ = f.svc.ClassRoster(f.tenantID, classB.ID)
	if len(roster) != 1 {
		t.Errorf("expected 1 student in 7B, got %d", len(roster))
	}
}

func TestCreateStudentUnknownClass(t *testing.T) {
	f := newSchoolFixture(t)
	if _, err := f.svc.CreateStudent(context.Background(), f.tenantID, "admin-1", &domain.Student{
		FirstName: "Ada", LastName: "Lovelace", AdmissionNumber: "A-001", ClassID: "nope",
	}); err == nil {
		t.Error("expected unknown class to be rejected")
	}
}

func TestAssignSubjectReplacesTeacher(t *testing.T) {
	f := newSchoolFixture(t)
	class := f.addClass(t, "7A")
	subject, err := f.svc.CreateSubject(context.Background(), f.tenantID, "admin-1", &domain.Subject{Name: "Mathematics", Code: "MATH"})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	t1, _ := f.svc.CreateTeacher(context.Background(), f.tenantID, "admin-1", &domain.Teacher{Name: "Grace", Email: "grace@x.example"})
	t2, _ := f.svc.CreateTeacher(context.Background(), f.tenantID, "admin-1", &domain.Teacher{Name: "Alan", Email: "alan@x.example"})

	first, err := f.svc.AssignSubject(context.Background(), f.tenantID, "admin-1", &domain.ClassSubject{
		ClassID: class.ID, SubjectID: subject.ID, TeacherID: t1.Teacher.ID,
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	second, err := f.svc.AssignSubject(context.Background(), f.tenantID, "admin-1", &domain.ClassSubject{
		ClassID: class.ID, SubjectID: subject.ID, TeacherID: t2.Teacher.ID,
	})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("reassignment must replace, not duplicate: %s vs %s", second.ID, first.ID)
	}

	list, _ := f.svc.ListAssignments(f.tenantID, class.ID)
	if len(list) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(list))
	}
	if list[0].TeacherID != t2.Teacher.ID {
		t.Errorf("expected teacher replaced, got %s", list[0].TeacherID)
	}
}

func TestSetCurrentTermSingleCurrent(t *testing.T) {
	f := newSchoolFixture(t)

	mkTerm := func(name string) *domain.Term {
		term, err := f.svc.CreateTerm(context.Background(), f.tenantID, "admin-1", &domain.Term{
			Name:         name,
			AcademicYear: "2026-2027",
			StartDate:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			EndDate:      time.Date(2026, 12, 18, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("create term %s: %v", name, err)
		}
		return term
	}
	first := mkTerm("Fall")
	second := mkTerm("Winter")

	if first.IsCurrent || second.IsCurrent {
		t.Fatal("new terms must not start current")
	}

	currentCount := func() (int, string) {
		terms, _ := f.svc.ListTerms(f.tenantID)
		count, id := 0, ""
		for _, term := range terms {
			if term.IsCurrent {
				count++
				id = term.ID
			}
		}
		return count, id
	}

	if err := f.svc.SetCurrentTerm(context.Background(), f.tenantID, "admin-1", first.ID); err != nil {
		t.Fatalf("set current: %v", err)
	}
	if n, id := currentCount(); n != 1 || id != first.ID {
		t.Fatalf("expected only %s current, got %d current (%s)", first.ID, n, id)
	}

	// Switching moves the flag, never duplicates it.
	if err := f.svc.SetCurrentTerm(context.Background(), f.tenantID, "admin-1", second.ID); err != nil {
		t.Fatalf("switch current: %v", err)
	}
	if n, id := currentCount(); n != 1 || id != second.ID {
		t.Fatalf("expected only %s current, got %d current (%s)", second.ID, n, id)
	}

	// Idempotent when re-setting the already-current term.
	if err := f.svc.SetCurrentTerm(context.Background(), f.tenantID, "admin-1", second.ID); err != nil {
		t.Fatalf("re-set current: %v", err)
	}
	if n, _ := currentCount(); n != 1 {
		t.Fatalf("expected exactly one current term, got %d", n)
	}
}

func TestGradeTypeWeightValidation(t *testing.T) {
	f := newSchoolFixture(t)

	bad := 1.5
	if _, err := f.svc.CreateGradeType(context.Background(), f.tenantID, "admin-1", &domain.GradeType{
		Name: "Exam", Weight: &bad, MaxScore: 100,
	}); err == nil {
		t.Error("expected weight above 1 to be rejected")
	}

	// Nil weight is an informational type and is fine.
	if _, err := f.svc.CreateGradeType(context.Background(), f.tenantID, "admin-1", &domain.GradeType{
		Name: "Participation", MaxScore: 10,
	}); err != nil {
		t.Errorf("nil weight should be accepted: %v", err)
	}
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/yourorg/classtrack/internal/domain"
	"github.com/yourorg/classtrack/internal/security/audit"
	"github.com/yourorg/classtrack/pkg/cache"
)

type gradeFixture struct {
	svc      *GradeService
	grades   *memGradeRepo
	types    *memGradeTypeRepo
	students *memStudentRepo
	terms    *memTermRepo
	tenantID string
	classID  string
	typeID   string
}

type memTermRepo struct {
	terms map[string]*domain.Term
}

func newMemTermRepo() *memTermRepo { return &memTermRepo{terms: map[string]*domain.Term{}} }

func (m *memTermRepo) Create(t *domain.Term) error {
	if t.ID == "" {
		t.ID = "term-" + t.Name
	}
	cp := *t
	m.terms[t.ID] = &cp
	return nil
}

func (m *memTermRepo) GetByID(tenantID, id string) (*domain.Term, error) {
	t, ok := m.terms[id]
	if !ok || t.TenantID != tenantID {
		return nil, errNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTermRepo) Update(t *domain.Term) error {
	if _, ok := m.terms[t.ID]; !ok {
		return errNotFound
	}
	cp := *t
	m.terms[t.ID] = &cp
	return nil
}

func (m *memTermRepo) SetCurrent(tenantID, id string) error {
	target, ok := m.terms[id]
	if !ok || target.TenantID != tenantID || !target.IsActive {
		return errNotFound
	}
	for _, t := range m.terms {
		if t.TenantID == tenantID {
			t.IsCurrent = t.ID == id
		}
	}
	return nil
}

func (m *memTermRepo) Delete(tenantID, id string) error {
	t, ok := m.terms[id]
	if !ok || t.TenantID != tenantID {
		return errNotFound
	}
	t.IsActive = false
	t.IsCurrent = false
	return nil
}

func (m *memTermRepo) ListByTenant(tenantID string) ([]*domain.Term, error) {
	var out []*domain.Term
	for _, t := range m.terms {
		if t.TenantID == tenantID && t.IsActive {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

var errNotFound = domainErr("not found")

type domainErr string

func (e domainErr) Error() string { return string(e) }

func newGradeFixture(t *testing.T) *gradeFixture {
	t.Helper()
	f := &gradeFixture{
		grades:   newMemGradeRepo(),
		types:    newMemGradeTypeRepo(),
		students: newMemStudentRepo(),
		terms:    newMemTermRepo(),
		tenantID: "tenant-1",
		classID:  "class-1",
	}
	f.svc = NewGradeService(f.grades, f.types, f.students, f.terms, cache.New(), audit.NewLogger(nil, nil), nil)

	weight := 0.5
	gt := &domain.GradeType{TenantID: f.tenantID, Name: "Exam", Weight: &weight, MaxScore: 100, IsActive: true}
	if err := f.types.Create(gt); err != nil {
		t.Fatalf("seed grade type: %v", err)
	}
	f.typeID = gt.ID
	return f
}

func (f *gradeFixture) addStudent(t *testing.T, first string) string {
	t.Helper()
	s := &domain.Student{TenantID: f.tenantID, FirstName: first, LastName: "Tester", ClassID: f.classID, IsActive: true}
	if err := f.students.Create(s); err != nil {
		t.Fatalf("seed student: %v", err)
	}
	return s.ID
}

func TestCreateGradeDerivesFields(t *testing.T) {
	f := newGradeFixture(t)
	studentID := f.addStudent(t, "Ada")

	grade, err := f.svc.CreateGrade(context.Background(), f.tenantID, "teacher-1", GradeInput{
		StudentID:      studentID,
		ClassID:        f.classID,
		SubjectID:      "subject-1",
		GradeTypeID:    f.typeID,
		Title:          "Midterm",
		Score:          42,
		MaxScore:       50,
		AssessmentDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if grade.Percentage != 84 {
		t.Errorf("expected percentage 84, got %v", grade.Percentage)
	}
	if grade.LetterGrade != "B" {
		t.Errorf("expected letter B, got %s", grade.LetterGrade)
	}
	if grade.IsPublished {
		t.Error("new grades must start unpublished")
	}
}

func TestCreateGradeRejectsBadInput(t *testing.T) {
	f := newGradeFixture(t)
	studentID := f.addStudent(t, "Ada")

	base := GradeInput{
		StudentID: studentID, ClassID: f.classID, SubjectID: "subject-1",
		GradeTypeID: f.typeID, Title: "Quiz", Score: 10, MaxScore: 20,
	}

	cases := []struct {
		name   string
		mutate func(*GradeInput)
	}{
		{"zero max score", func(in *GradeInput) { in.MaxScore = 0 }},
		{"negative score", func(in *GradeInput) { in.Score = -1 }},
		{"score above max", func(in *GradeInput) { in.Score = 21 }},
		{"unknown grade type", func(in *GradeInput) { in.GradeTypeID = "nope" }},
		{"unknown student", func(in *GradeInput) { in.StudentID = "nope" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			if _, err := f.svc.CreateGrade(context.Background(), f.tenantID, "teacher-1", in); err == nil {
				t.Error("expected rejection")
			}
		})
	}
}

// The title is descriptive metadata, not a required field. An untitled
// assessment saves like any other.
func TestCreateGradeWithoutTitle(t *testing.T) {
	f := newGradeFixture(t)
	studentID := f.addStudent(t, "Ada")

	grade, err := f.svc.CreateGrade(context.Background(), f.tenantID, "teacher-1", GradeInput{
		StudentID: studentID, ClassID: f.classID, SubjectID: "subject-1",
		GradeTypeID: f.typeID, Score: 10, MaxScore: 20,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if grade.Title != "" {
		t.Errorf("expected empty title preserved, got %q", grade.Title)
	}
	if grade.Percentage != 50 {
		t.Errorf("expected derivation to run, got %v%%", grade.Percentage)
	}
}

func TestUpdateGradeRederives(t *testing.T) {
	f := newGradeFixture(t)
	studentID := f.addStudent(t, "Ada")

	in := GradeInput{
		StudentID: studentID, ClassID: f.classID, SubjectID: "subject-1",
		GradeTypeID: f.typeID, Title: "Midterm", Score: 42, MaxScore: 50,
	}
	grade, err := f.svc.CreateGrade(context.Background(), f.tenantID, "teacher-1", in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	in.Score = 48
	updated, err := f.svc.UpdateGrade(context.Background(), f.tenantID, "teacher-1", grade.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Percentage != 96 {
		t.Errorf("expected percentage 96, got %v", updated.Percentage)
	}
	if updated.LetterGrade != "A" {
		t.Errorf("expected letter A, got %s", updated.LetterGrade)
	}
}

func TestPublishLifecycle(t *testing.T) {
	f := newGradeFixture(t)
	studentID := f.addStudent(t, "Ada")

	grade, err := f.svc.CreateGrade(context.Background(), f.tenantID, "teacher-1", GradeInput{
		StudentID: studentID, ClassID: f.classID, SubjectID: "subject-1",
		GradeTypeID: f.typeID, Title: "Midterm", Score: 42, MaxScore: 50,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.svc.SetPublished(context.Background(), f.tenantID, "teacher-1", grade.ID, true); err != nil {
		t.Fatalf("publish: %v", err)
	}
	got, _ := f.grades.GetByID(f.tenantID, grade.ID)
	if !got.IsPublished {
		t.Error("expected grade published")
	}

	if err := f.svc.SetPublished(context.Background(), f.tenantID, "teacher-1", grade.ID, false); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	got, _ = f.grades.GetByID(f.tenantID, grade.ID)
	if got.IsPublished {
		t.Error("expected grade unpublished")
	}
}

func TestBulkCreatePartialSuccess(t *testing.T) {
	f := newGradeFixture(t)
	ada := f.addStudent(t, "Ada")
	grace := f.addStudent(t, "Grace")

	result, err := f.svc.BulkCreate(context.Background(), f.tenantID, "teacher-1", BulkRequest{
		ClassID:     f.classID,
		SubjectID:   "subject-1",
		GradeTypeID: f.typeID,
		Title:       "Quiz 3",
		MaxScore:    20,
		Entries: []BulkEntry{
			{StudentID: ada, Score: 18},
			{StudentID: grace, Score: 15},
			{StudentID: "stranger", Score: 12}, // not in this class
			{StudentID: ada, Score: 25},        // above max
		},
	})
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if result.Saved != 2 {
		t.Errorf("expected 2 saved, got %d", result.Saved)
	}
	if len(result.Failed) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(result.Failed))
	}
	if result.Failed[0].StudentID != "stranger" {
		t.Errorf("expected first failure for stranger, got %s", result.Failed[0].StudentID)
	}

	saved, _ := f.grades.List(f.tenantID, domain.GradeFilter{ClassID: f.classID})
	if len(saved) != 2 {
		t.Errorf("expected 2 grades persisted, got %d", len(saved))
	}
	for _, g := range saved {
		if g.LetterGrade == "" {
			t.Error("bulk rows must get derived letter grades")
		}
	}
}

func TestBulkCreateWithoutTitle(t *testing.T) {
	f := newGradeFixture(t)
	ada := f.addStudent(t, "Ada")

	result, err := f.svc.BulkCreate(context.Background(), f.tenantID, "teacher-1", BulkRequest{
		ClassID:     f.classID,
		SubjectID:   "subject-1",
		GradeTypeID: f.typeID,
		MaxScore:    20,
		Entries:     []BulkEntry{{StudentID: ada, Score: 18}},
	})
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if result.Saved != 1 || len(result.Failed) != 0 {
		t.Errorf("expected 1 saved and no failures, got %+v", result)
	}
}

func TestBulkCreateEmptyBatch(t *testing.T) {
	f := newGradeFixture(t)

	_, err := f.svc.BulkCreate(context.Background(), f.tenantID, "teacher-1", BulkRequest{
		ClassID: f.classID, SubjectID: "subject-1", GradeTypeID: f.typeID, Title: "Quiz", MaxScore: 20,
	})
	if err != ErrEmptyBatch {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestSummarizeWeightedAverages(t *testing.T) {
	f := newGradeFixture(t)
	ada := f.addStudent(t, "Ada")

	// Second weighted type so totals reach 1.0.
	weight := 0.5
	quiz := &domain.GradeType{TenantID: f.tenantID, Name: "Quiz", Weight: &weight, MaxScore: 20, IsActive: true}
	if err := f.types.Create(quiz); err != nil {
		t.Fatalf("seed quiz type: %v", err)
	}

	mk := func(typeID string, score float64, max int) {
		if _, err := f.svc.CreateGrade(context.Background(), f.tenantID, "teacher-1", GradeInput{
			StudentID: ada, ClassID: f.classID, SubjectID: "subject-1",
			GradeTypeID: typeID, Title: "x", Score: score, MaxScore: max,
		}); err != nil {
			t.Fatalf("seed grade: %v", err)
		}
	}
	mk(f.typeID, 80, 100) // exam 80%
	mk(quiz.ID, 16, 20)   // quiz 80%

	summary, err := f.svc.Summarize(f.tenantID, f.classID, "subject-1", "")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !summary.WeightsBalanced {
		t.Error("expected weights to sum to 1.0")
	}
	if got := summary.Students[ada]; got != 80 {
		t.Errorf("expected weighted average 80, got %v", got)
	}
}

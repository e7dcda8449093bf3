package bulkentry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeSubmitter counts submissions and returns a canned verdict.
type fakeSubmitter struct {
	calls    int
	lastReq  Request
	result   *Result
	err      error
}

func (f *fakeSubmitter) SubmitGrades(ctx context.Context, req Request) (*Result, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testMeta() Meta {
	return Meta{
		ClassID:        "class-1",
		SubjectID:      "subj-1",
		GradeTypeID:    "type-1",
		TermID:         "term-1",
		Title:          "Unit 3 quiz",
		MaxScore:       20,
		AssessmentDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func testRoster() []Student {
	return []Student{
		{ID: "s1", Name: "Ana"},
		{ID: "s2", Name: "Ben"},
		{ID: "s3", Name: "Cleo"},
	}
}

// enteringMachine starts a machine over the test roster and narrows the
// default everyone-selected batch down to the given students.
func enteringMachine(t *testing.T, ids ...string) *Machine {
	t.Helper()
	m := New()
	if err := m.Start(testRoster(), testMeta()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for _, s := range testRoster() {
		if !want[s.ID] {
			m.Toggle(s.ID)
		}
	}
	if err := m.BeginEntry(); err != nil {
		t.Fatalf("BeginEntry failed: %v", err)
	}
	return m
}

func TestSubmitWithNoScoresSkipsNetwork(t *testing.T) {
	m := enteringMachine(t, "s1", "s2")
	m.SetScore("s1", "")
	m.SetScore("s2", "not a number")

	sub := &fakeSubmitter{result: &Result{Saved: 2}}
	err := m.Submit(context.Background(), sub)
	if !errors.Is(err, ErrNoScores) {
		t.Fatalf("expected ErrNoScores, got %v", err)
	}
	if sub.calls != 0 {
		t.Errorf("expected zero network calls, got %d", sub.calls)
	}
	if m.Phase() != PhaseEntering {
		t.Errorf("expected machine to stay in entering, got %s", m.Phase())
	}
}

func TestSubmitSkipsBlankRowsSilently(t *testing.T) {
	m := enteringMachine(t, "s1", "s2", "s3")
	m.SetScore("s1", "18")
	m.SetScore("s2", " ")
	m.SetScore("s3", "14.5")

	sub := &fakeSubmitter{result: &Result{Saved: 2}}
	if err := m.Submit(context.Background(), sub); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if sub.calls != 1 {
		t.Fatalf("expected one submission, got %d", sub.calls)
	}
	if len(sub.lastReq.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(sub.lastReq.Entries))
	}
	if sub.lastReq.Entries[0].StudentID != "s1" || sub.lastReq.Entries[1].StudentID != "s3" {
		t.Errorf("unexpected entries: %+v", sub.lastReq.Entries)
	}
	if sub.lastReq.Title != "Unit 3 quiz" {
		t.Errorf("expected shared metadata on request, got %+v", sub.lastReq.Meta)
	}
}

func TestSuccessClearsScoresKeepsSelection(t *testing.T) {
	m := enteringMachine(t, "s1", "s2")
	m.SetScore("s1", "18")
	m.SetScore("s2", "12")

	sub := &fakeSubmitter{result: &Result{Saved: 2}}
	if err := m.Submit(context.Background(), sub); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if m.Phase() != PhaseSucceeded {
		t.Fatalf("expected succeeded, got %s", m.Phase())
	}
	if m.Score("s1") != "" || m.Score("s2") != "" {
		t.Error("expected scores cleared after success")
	}
	if !m.Selected("s1") || !m.Selected("s2") {
		t.Error("expected selection retained after success")
	}
}

func TestPartialFailureRetainsEverything(t *testing.T) {
	m := enteringMachine(t, "s1", "s2")
	m.SetScore("s1", "18")
	m.SetScore("s2", "12")

	sub := &fakeSubmitter{result: &Result{
		Saved:  1,
		Failed: []Failure{{StudentID: "s2", Error: "student not in class"}},
	}}
	if err := m.Submit(context.Background(), sub); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if m.Phase() != PhasePartiallyFailed {
		t.Fatalf("expected partially failed, got %s", m.Phase())
	}
	if m.Score("s2") != "12" {
		t.Error("expected scores retained after partial failure")
	}
	if m.Result().Saved != 1 || len(m.Result().Failed) != 1 {
		t.Errorf("unexpected result %+v", m.Result())
	}
}

func TestTransportFailureRetainsEverything(t *testing.T) {
	m := enteringMachine(t, "s1")
	m.SetScore("s1", "18")

	sub := &fakeSubmitter{err: errors.New("request failed")}
	if err := m.Submit(context.Background(), sub); err == nil {
		t.Fatal("expected submit error")
	}
	if m.Phase() != PhaseFailed {
		t.Fatalf("expected failed, got %s", m.Phase())
	}
	if m.Score("s1") != "18" {
		t.Error("expected score retained after failure")
	}

	// The teacher can return to entry and retry without re-selecting.
	if err := m.Continue(); err != nil {
		t.Fatalf("Continue failed: %v", err)
	}
	sub2 := &fakeSubmitter{result: &Result{Saved: 1}}
	if err := m.Submit(context.Background(), sub2); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if m.Phase() != PhaseSucceeded {
		t.Errorf("expected success on retry, got %s", m.Phase())
	}
}

func TestRosterRefilterPreservesRetainedStudents(t *testing.T) {
	m := enteringMachine(t, "s1", "s2")
	m.SetScore("s1", "18")
	m.SetScore("s2", "12")

	// s2 left the class; a new student arrived.
	m.SetRoster([]Student{
		{ID: "s1", Name: "Ana"},
		{ID: "s4", Name: "Drew"},
	})

	if !m.Selected("s1") || m.Score("s1") != "18" {
		t.Error("expected retained student to keep selection and score")
	}
	if m.Selected("s2") || m.Score("s2") != "" {
		t.Error("expected departed student to be dropped")
	}
	if !m.Selected("s4") || m.Score("s4") != "" {
		t.Error("expected new student selected with a blank row")
	}
}

func TestStartSelectsWholeRoster(t *testing.T) {
	m := New()
	if err := m.Start(testRoster(), testMeta()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if m.SelectedCount() != 3 {
		t.Fatalf("expected every student selected, got %d", m.SelectedCount())
	}
	m.Toggle("s2")
	if m.Selected("s2") || m.SelectedCount() != 2 {
		t.Error("expected toggle to exclude a student")
	}
}

// Only the shared metadata gates the transition to entry. An empty
// selection passes; the zero-scores check at submit catches it instead.
func TestBeginEntryAllowsEmptySelection(t *testing.T) {
	m := New()
	if err := m.Start(testRoster(), testMeta()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for _, s := range testRoster() {
		m.Toggle(s.ID)
	}
	if err := m.BeginEntry(); err != nil {
		t.Fatalf("BeginEntry failed with empty selection: %v", err)
	}

	sub := &fakeSubmitter{result: &Result{Saved: 0}}
	if err := m.Submit(context.Background(), sub); !errors.Is(err, ErrNoScores) {
		t.Fatalf("expected ErrNoScores, got %v", err)
	}
	if sub.calls != 0 {
		t.Errorf("expected zero network calls, got %d", sub.calls)
	}
}

func TestBeginEntryRequiresMetadata(t *testing.T) {
	m := New()
	meta := testMeta()
	meta.GradeTypeID = ""
	if err := m.Start(testRoster(), meta); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.BeginEntry(); err == nil {
		t.Fatal("expected error with missing grade type")
	}
	if m.Phase() != PhaseSelecting {
		t.Errorf("expected to stay selecting, got %s", m.Phase())
	}
}

func TestToggleIgnoresUnknownStudent(t *testing.T) {
	m := New()
	if err := m.Start(testRoster(), testMeta()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	m.Toggle("stranger")
	if m.SelectedCount() != 3 {
		t.Error("expected unknown student toggle to be ignored")
	}
}

func TestPreviewDerivesBand(t *testing.T) {
	m := enteringMachine(t, "s1")
	m.SetScore("s1", "17")

	pct, letter, band, ok := m.Preview("s1")
	if !ok {
		t.Fatal("expected preview for parseable score")
	}
	if pct != 85 || letter != "B" || band != "good" {
		t.Errorf("got pct=%v letter=%s band=%s", pct, letter, band)
	}

	m.SetScore("s1", "")
	if _, _, _, ok := m.Preview("s1"); ok {
		t.Error("expected no preview for blank score")
	}
}

func TestResetClearsEverything(t *testing.T) {
	m := enteringMachine(t, "s1")
	m.SetScore("s1", "18")

	if err := m.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if m.Phase() != PhaseIdle {
		t.Errorf("expected idle, got %s", m.Phase())
	}
	if m.SelectedCount() != 0 || len(m.Roster()) != 0 {
		t.Error("expected reset to clear selection and roster")
	}
}

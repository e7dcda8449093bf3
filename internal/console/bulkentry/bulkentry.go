// Package bulkentry drives the teacher-facing bulk grade entry flow as
// an explicit state machine. All transitions are pure except Submit,
// which is the only place the network is touched.
package bulkentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourorg/classtrack/internal/gradecalc"
)

// Phase tags the machine state.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseSelecting       Phase = "selecting"
	PhaseEntering        Phase = "entering"
	PhaseSubmitting      Phase = "submitting"
	PhaseSucceeded       Phase = "succeeded"
	PhasePartiallyFailed Phase = "partially_failed"
	PhaseFailed          Phase = "failed"
)

// ErrNoScores is returned by Submit when every selected student has a
// blank or unparseable score. No request is sent in that case.
var ErrNoScores = errors.New("no scores entered")

// Student is one roster row.
type Student struct {
	ID   string
	Name string
}

// Meta is the assessment metadata shared by every row in the batch.
type Meta struct {
	ClassID        string    `json:"classId"`
	SubjectID      string    `json:"subjectId"`
	GradeTypeID    string    `json:"gradeTypeId"`
	TermID         string    `json:"termId"`
	Title          string    `json:"title"`
	MaxScore       int       `json:"maxScore"`
	AssessmentDate time.Time `json:"assessmentDate"`
}

// Entry is one row of the submitted batch.
type Entry struct {
	StudentID string  `json:"studentId"`
	Score     float64 `json:"score"`
}

// Request is the wire shape of the batch.
type Request struct {
	Meta
	Entries []Entry `json:"entries"`
}

// Failure reports one rejected row.
type Failure struct {
	StudentID string `json:"studentId"`
	Error     string `json:"error"`
}

// Result is the server's verdict on a batch.
type Result struct {
	Saved  int       `json:"saved"`
	Failed []Failure `json:"failed"`
}

// Submitter sends a batch. The gateway satisfies this through a small
// adapter; tests use counting fakes.
type Submitter interface {
	SubmitGrades(ctx context.Context, req Request) (*Result, error)
}

// Machine is the bulk entry state machine. Not safe for concurrent use;
// the console drives it from a single goroutine.
type Machine struct {
	phase    Phase
	roster   []Student
	selected map[string]bool
	scores   map[string]string
	meta     Meta
	result   *Result
	err      error
}

// New returns a machine in the idle phase.
func New() *Machine {
	return &Machine{
		phase:    PhaseIdle,
		selected: make(map[string]bool),
		scores:   make(map[string]string),
	}
}

// Phase returns the current phase tag.
func (m *Machine) Phase() Phase { return m.phase }

// Result returns the server verdict after a submission, nil otherwise.
func (m *Machine) Result() *Result { return m.result }

// Err returns the failure from the last submission, nil otherwise.
func (m *Machine) Err() error { return m.err }

// Start moves Idle to Selecting with the given roster. Every student
// begins selected with a blank score row; Toggle excludes individuals.
func (m *Machine) Start(roster []Student, meta Meta) error {
	if m.phase != PhaseIdle {
		return fmt.Errorf("cannot start from phase %s", m.phase)
	}
	m.roster = roster
	for _, s := range roster {
		m.selected[s.ID] = true
	}
	m.meta = meta
	m.phase = PhaseSelecting
	return nil
}

// SetRoster replaces the roster, for example after switching class
// filter. Selection and entered scores survive for students present in
// both rosters; departed students are dropped and new arrivals get a
// selected blank row.
func (m *Machine) SetRoster(roster []Student) {
	prior := make(map[string]bool, len(m.roster))
	for _, s := range m.roster {
		prior[s.ID] = true
	}
	keep := make(map[string]bool, len(roster))
	for _, s := range roster {
		keep[s.ID] = true
	}
	for id := range m.selected {
		if !keep[id] {
			delete(m.selected, id)
		}
	}
	for id := range m.scores {
		if !keep[id] {
			delete(m.scores, id)
		}
	}
	for _, s := range roster {
		if !prior[s.ID] {
			m.selected[s.ID] = true
		}
	}
	m.roster = roster
}

// Roster returns the current roster.
func (m *Machine) Roster() []Student { return m.roster }

// Toggle flips a student's selection while selecting or entering.
func (m *Machine) Toggle(studentID string) {
	if m.phase != PhaseSelecting && m.phase != PhaseEntering {
		return
	}
	if m.selected[studentID] {
		delete(m.selected, studentID)
		delete(m.scores, studentID)
		return
	}
	for _, s := range m.roster {
		if s.ID == studentID {
			m.selected[studentID] = true
			return
		}
	}
}

// Selected reports whether a student is in the batch.
func (m *Machine) Selected(studentID string) bool { return m.selected[studentID] }

// SelectedCount returns how many students are in the batch.
func (m *Machine) SelectedCount() int { return len(m.selected) }

// BeginEntry moves Selecting to Entering. Only the shared assessment
// fields gate the transition; an empty selection is fine because blank
// rows are skipped at submit time anyway.
func (m *Machine) BeginEntry() error {
	if m.phase != PhaseSelecting {
		return fmt.Errorf("cannot begin entry from phase %s", m.phase)
	}
	if m.meta.ClassID == "" || m.meta.SubjectID == "" || m.meta.GradeTypeID == "" || m.meta.AssessmentDate.IsZero() {
		return errors.New("class, subject, grade type, and date are required")
	}
	m.phase = PhaseEntering
	return nil
}

// SetScore records a raw score entry for a selected student. The value
// is kept verbatim; parsing happens at submit time.
func (m *Machine) SetScore(studentID, raw string) {
	if m.phase != PhaseEntering {
		return
	}
	if !m.selected[studentID] {
		return
	}
	m.scores[studentID] = raw
}

// Score returns the raw entered score for a student.
func (m *Machine) Score(studentID string) string { return m.scores[studentID] }

// Preview derives the percentage, letter and color band for a row as
// entered, mirroring what the server will store. The bool is false when
// the row would be skipped.
func (m *Machine) Preview(studentID string) (pct float64, letter string, band gradecalc.Band, ok bool) {
	score, ok := gradecalc.ParseScore(m.scores[studentID])
	if !ok {
		return 0, "", "", false
	}
	pct, ok = gradecalc.Percentage(score, m.meta.MaxScore)
	if !ok {
		return 0, "", "", false
	}
	return pct, gradecalc.Letter(pct), gradecalc.BandFor(pct), true
}

// entries collects the submittable rows. Blank and unparseable scores
// are skipped silently.
func (m *Machine) entries() []Entry {
	var out []Entry
	for _, s := range m.roster {
		if !m.selected[s.ID] {
			continue
		}
		score, ok := gradecalc.ParseScore(m.scores[s.ID])
		if !ok {
			continue
		}
		out = append(out, Entry{StudentID: s.ID, Score: score})
	}
	return out
}

// Submit sends the batch. With zero filled rows it returns ErrNoScores
// before any network call and stays in Entering. On success scores are
// cleared but the selection is kept for a follow-up batch; on partial or
// total failure everything is retained so the teacher can fix and retry.
func (m *Machine) Submit(ctx context.Context, submitter Submitter) error {
	if m.phase != PhaseEntering {
		return fmt.Errorf("cannot submit from phase %s", m.phase)
	}

	entries := m.entries()
	if len(entries) == 0 {
		return ErrNoScores
	}

	m.phase = PhaseSubmitting
	m.result = nil
	m.err = nil

	result, err := submitter.SubmitGrades(ctx, Request{Meta: m.meta, Entries: entries})
	if err != nil {
		m.phase = PhaseFailed
		m.err = err
		return err
	}

	m.result = result
	if len(result.Failed) == 0 {
		m.phase = PhaseSucceeded
		m.scores = make(map[string]string)
	} else {
		m.phase = PhasePartiallyFailed
	}
	return nil
}

// Continue returns from a terminal phase to Entering, keeping whatever
// the terminal state retained.
func (m *Machine) Continue() error {
	switch m.phase {
	case PhaseSucceeded, PhasePartiallyFailed, PhaseFailed:
		m.phase = PhaseEntering
		return nil
	default:
		return fmt.Errorf("cannot continue from phase %s", m.phase)
	}
}

// Reset returns to Idle from any phase except Submitting, discarding all
// state.
func (m *Machine) Reset() error {
	if m.phase == PhaseSubmitting {
		return errors.New("submission in flight")
	}
	m.phase = PhaseIdle
	m.roster = nil
	m.selected = make(map[string]bool)
	m.scores = make(map[string]string)
	m.meta = Meta{}
	m.result = nil
	m.err = nil
	return nil
}

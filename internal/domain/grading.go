package domain

import "time"

// GradeType is a weighted assessment category (e.g. Exam, Quiz). Weight is
// nil for informational-only types; non-nil weights live in [0,1] and the
// active set should sum to 1.0, which is advisory rather than enforced.
type GradeType struct {
	ID        string
	TenantID  string
	Name      string
	Weight    *float64
	MaxScore  int
	CreatedAt time.Time
	UpdatedAt time.Time
	IsActive  bool
}

// GradeTypeRepository defines data access for grade types
type GradeTypeRepository interface {
	Create(gt *GradeType) error
	GetByID(tenantID, id string) (*GradeType, error)
	Update(gt *GradeType) error
	Delete(tenantID, id string) error
	ListByTenant(tenantID string) ([]*GradeType, error)
}

// Grade is a single assessment result. Percentage and LetterGrade are
// derived from Score/MaxScore on write and never accepted from clients.
// TeacherNotes stay private to staff; StudentFeedback is student-visible.
type Grade struct {
	ID              string
	TenantID        string
	StudentID       string
	ClassID         string
	SubjectID       string
	GradeTypeID     string
	TermID          string // Empty when not term-scoped
	Title           string
	Score           float64
	MaxScore        int
	Percentage      float64
	LetterGrade     string
	AssessmentDate  time.Time
	TeacherNotes    string
	StudentFeedback string
	IsPublished     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// GradeFilter narrows grade listings.
type GradeFilter struct {
	StudentID   string
	ClassID     string
	SubjectID   string
	GradeTypeID string
	TermID      string
	Published   *bool
}

// GradeRepository defines data access for grades. Delete is a hard
// removal; grades have no soft-disable flag.
type GradeRepository interface {
	Create(grade *Grade) error
	GetByID(tenantID, id string) (*Grade, error)
	Update(grade *Grade) error
	SetPublished(tenantID, id string, published bool) error
	Delete(tenantID, id string) error
	List(tenantID string, filter GradeFilter) ([]*Grade, error)
}

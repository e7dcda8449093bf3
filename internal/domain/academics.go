package domain

import "time"

// ClassRoom groups students and is the join key for subject assignments
// and grades. StudentCount is derived on read, never stored.
type ClassRoom struct {
	ID           string
	TenantID     string
	Name         string
	GradeLevel   string
	Section      string
	AcademicYear string
	Room         string
	StudentCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	IsActive     bool
}

// ClassRepository defines data access for classes
type ClassRepository interface {
	Create(class *ClassRoom) error
	GetByID(tenantID, id string) (*ClassRoom, error)
	Update(class *ClassRoom) error
	Delete(tenantID, id string) error
	ListByTenant(tenantID string) ([]*ClassRoom, error)
}

// Subject is a taught discipline within a tenant.
type Subject struct {
	ID        string
	TenantID  string
	Name      string
	Code      string
	CreatedAt time.Time
	UpdatedAt time.Time
	IsActive  bool
}

// SubjectRepository defines data access for subjects
type SubjectRepository interface {
	Create(subject *Subject) error
	GetByID(tenantID, id string) (*Subject, error)
	Update(subject *Subject) error
	Delete(tenantID, id string) error
	ListByTenant(tenantID string) ([]*Subject, error)
}

// ClassSubject links a teacher to a (class, subject) pair. The pair is
// unique per tenant; assigning again replaces the teacher.
type ClassSubject struct {
	ID        string
	TenantID  string
	ClassID   string
	SubjectID string
	TeacherID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClassSubjectRepository defines data access for class-subject assignments
type ClassSubjectRepository interface {
	Upsert(assignment *ClassSubject) error
	GetByID(tenantID, id string) (*ClassSubject, error)
	Delete(tenantID, id string) error
	ListByTenant(tenantID string) ([]*ClassSubject, error)
	ListByClass(tenantID, classID string) ([]*ClassSubject, error)
}

// Term is an academic period scoping grades. At most one term per tenant
// has IsCurrent set; the repository enforces the swap transactionally.
type Term struct {
	ID           string
	TenantID     string
	Name         string
	AcademicYear string
	StartDate    time.Time
	EndDate      time.Time
	IsCurrent    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	IsActive     bool
}

// TermRepository defines data access for terms
type TermRepository interface {
	Create(term *Term) error
	GetByID(tenantID, id string) (*Term, error)
	Update(term *Term) error
	SetCurrent(tenantID, id string) error
	Delete(tenantID, id string) error
	ListByTenant(tenantID string) ([]*Term, error)
}

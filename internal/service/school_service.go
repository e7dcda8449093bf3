package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/classtrack/internal/domain"
	"github.com/yourorg/classtrack/internal/security/audit"
	"github.com/yourorg/classtrack/internal/security/auth"
	"github.com/yourorg/classtrack/pkg/cache"
)

// SchoolService owns the portal directory: students, teachers, classes,
// subjects, class-subject assignments, and terms. Everything is scoped to
// the tenant carried in the caller's claims; cross-tenant access is
// impossible by construction since every repository call takes the
// tenant ID first.
type SchoolService struct {
	students      domain.StudentRepository
	teachers      domain.TeacherRepository
	schoolUsers   domain.SchoolUserRepository
	classes       domain.ClassRepository
	subjects      domain.SubjectRepository
	classSubjects domain.ClassSubjectRepository
	terms         domain.TermRepository
	gradeTypes    domain.GradeTypeRepository
	rosters       *cache.Cache
	audit         *audit.Logger
	logger        *slog.Logger
}

// NewSchoolService creates a new school directory service
func NewSchoolService(
	students domain.StudentRepository,
	teachers domain.TeacherRepository,
	schoolUsers domain.SchoolUserRepository,
	classes domain.ClassRepository,
	subjects domain.SubjectRepository,
	classSubjects domain.ClassSubjectRepository,
	terms domain.TermRepository,
	gradeTypes domain.GradeTypeRepository,
	rosters *cache.Cache,
	auditLogger *audit.Logger,
	logger *slog.Logger,
) *SchoolService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SchoolService{
		students:      students,
		teachers:      teachers,
		schoolUsers:   schoolUsers,
		classes:       classes,
		subjects:      subjects,
		classSubjects: classSubjects,
		terms:         terms,
		gradeTypes:    gradeTypes,
		rosters:       rosters,
		audit:         auditLogger,
		logger:        logger,
	}
}

func (s *SchoolService) invalidateRoster(tenantID, classID string) {
	if classID != "" {
		s.rosters.Delete(fmt.Sprintf("roster:%s:%s", tenantID, classID))
	}
}

// Students

// CreateStudent creates a student. ClassID may be empty for students not
// yet placed in a class.
func (s *SchoolService) CreateStudent(ctx context.Context, tenantID, actorID string, student *domain.Student) (*domain.Student, error) {
	if student.FirstName == "" || student.LastName == "" {
		return nil, errors.New("first and last name are required")
	}
	if student.AdmissionNumber == "" {
		return nil, errors.New("admission number is required")
	}
	if student.ClassID != "" {
		if _, err := s.classes.GetByID(tenantID, student.ClassID); err != nil {
			return nil, errors.New("class not found")
		}
	}
	student.TenantID = tenantID
	student.IsActive = true
	if err := s.students.Create(student); err != nil {
		s.logger.Error("failed to create student", slog.String("tenant_id", tenantID), slog.String("error", err.Error()))
		return nil, errors.New("failed to create student")
	}
	s.invalidateRoster(tenantID, student.ClassID)
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "create", "student", student.ID, "succeeded", "")
	return student, nil
}

// GetStudent retrieves a student by ID
func (s *SchoolService) GetStudent(tenantID, id string) (*domain.Student, error) {
	student, err := s.students.GetByID(tenantID, id)
	if err != nil {
		return nil, errors.New("student not found")
	}
	return student, nil
}

// UpdateStudent rewrites a student's mutable fields. Moving a student
// between classes invalidates both rosters.
func (s *SchoolService) UpdateStudent(ctx context.Context, tenantID, actorID, id string, update *domain.Student) (*domain.Student, error) {
	existing, err := s.students.GetByID(tenantID, id)
	if err != nil {
		return nil, errors.New("student not found")
	}
	if update.ClassID != "" && update.ClassID != existing.ClassID {
		if _, err := s.classes.GetByID(tenantID, update.ClassID); err != nil {
			return nil, errors.New("class not found")
		}
	}
	previousClass := existing.ClassID
	existing.FirstName = update.FirstName
	existing.LastName = update.LastName
	existing.AdmissionNumber = update.AdmissionNumber
	existing.ClassID = update.ClassID
	if err := s.students.Update(existing); err != nil {
		return nil, errors.New("failed to update student")
	}
	s.invalidateRoster(tenantID, previousClass)
	s.invalidateRoster(tenantID, existing.ClassID)
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "update", "student", id, "succeeded", "")
	return existing, nil
}

// DeleteStudent soft-disables a student; grades are retained
func (s *SchoolService) DeleteStudent(ctx context.Context, tenantID, actorID, id string) error {
	student, err := s.students.GetByID(tenantID, id)
	if err != nil {
		return errors.New("student not found")
	}
	if err := s.students.Delete(tenantID, id); err != nil {
		return errors.New("failed to delete student")
	}
	s.invalidateRoster(tenantID, student.ClassID)
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "delete", "student", id, "succeeded", "")
	return nil
}

// ListStudents lists the tenant's active students
func (s *SchoolService) ListStudents(tenantID string) ([]*domain.Student, error) {
	return s.students.ListByTenant(tenantID)
}

// ClassRoster lists the active students of one class
func (s *SchoolService) ClassRoster(tenantID, classID string) ([]*domain.Student, error) {
	if _, err := s.classes.GetByID(tenantID, classID); err != nil {
		return nil, errors.New("class not found")
	}
	return s.students.ListByClass(tenantID, classID)
}

// Teachers

// TeacherWithPassword returns a created or reset teacher together with
// the one-time password, surfaced exactly once.
type TeacherWithPassword struct {
	Teacher      *domain.Teacher `json:"teacher"`
	TempPassword string          `json:"tempPassword"`
}

// CreateTeacher creates a teacher and a linked portal account with a
// one-time password.
func (s *SchoolService) CreateTeacher(ctx context.Context, tenantID, actorID string, teacher *domain.Teacher) (*TeacherWithPassword, error) {
	if teacher.Name == "" || teacher.Email == "" {
		return nil, errors.New("name and email are required")
	}

	password, hash, err := auth.NewTempPassword()
	if err != nil {
		s.logger.Error("failed to generate teacher password", slog.String("error", err.Error()))
		return nil, errors.New("failed to create teacher")
	}

	account := &domain.SchoolUser{
		TenantID:     tenantID,
		Email:        teacher.Email,
		Name:         teacher.Name,
		PasswordHash: hash,
		Role:         domain.RoleTeacher,
		IsActive:     true,
	}
	if err := s.schoolUsers.Create(account); err != nil {
		s.logger.Error("failed to create teacher account",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return nil, errors.New("a portal account with this email already exists")
	}

	teacher.TenantID = tenantID
	teacher.UserID = account.ID
	teacher.PasswordHash = hash
	teacher.IsActive = true
	if err := s.teachers.Create(teacher); err != nil {
		s.logger.Error("failed to create teacher", slog.String("tenant_id", tenantID), slog.String("error", err.Error()))
		return nil, errors.New("failed to create teacher")
	}

	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "create", "teacher", teacher.ID, "succeeded", "")
	return &TeacherWithPassword{Teacher: teacher, TempPassword: password}, nil
}

// GetTeacher retrieves a teacher by ID
func (s *SchoolService) GetTeacher(tenantID, id string) (*domain.Teacher, error) {
	teacher, err := s.teachers.GetByID(tenantID, id)
	if err != nil {
		return nil, errors.New("teacher not found")
	}
	return teacher, nil
}

// UpdateTeacher rewrites a teacher's profile fields
func (s *SchoolService) UpdateTeacher(ctx context.Context, tenantID, actorID, id string, update *domain.Teacher) (*domain.Teacher, error) {
	existing, err := s.teachers.GetByID(tenantID, id)
	if err != nil {
		return nil, errors.New("teacher not found")
	}
	existing.Name = update.Name
	existing.Specialty = update.Specialty
	if err := s.teachers.Update(existing); err != nil {
		return nil, errors.New("failed to update teacher")
	}
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "update", "teacher", id, "succeeded", "")
	return existing, nil
}

// ResetTeacherPassword issues a fresh one-time password for a teacher and
// its linked portal account.
func (s *SchoolService) ResetTeacherPassword(ctx context.Context, tenantID, actorID, id string) (*TeacherWithPassword, error) {
	teacher, err := s.teachers.GetByID(tenantID, id)
	if err != nil {
		return nil, errors.New("teacher not found")
	}

	password, hash, err := auth.NewTempPassword()
	if err != nil {
		s.logger.Error("failed to generate reset password", slog.String("error", err.Error()))
		return nil, errors.New("failed to reset password")
	}
	if err := s.teachers.UpdatePassword(tenantID, id, hash); err != nil {
		return nil, errors.New("failed to reset password")
	}
	if teacher.UserID != "" {
		if account, err := s.schoolUsers.GetByID(tenantID, teacher.UserID); err == nil {
			account.PasswordHash = hash
			if err := s.schoolUsers.Update(account); err != nil {
				s.logger.Error("failed to update linked account password",
					slog.String("tenant_id", tenantID),
					slog.String("user_id", teacher.UserID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "reset_password", "teacher", id, "succeeded", "")
	return &TeacherWithPassword{Teacher: teacher, TempPassword: password}, nil
}

// DeleteTeacher soft-disables a teacher and its portal account
func (s *SchoolService) DeleteTeacher(ctx context.Context, tenantID, actorID, id string) error {
	teacher, err := s.teachers.GetByID(tenantID, id)
	if err != nil {
		return errors.New("teacher not found")
	}
	if err := s.teachers.Delete(tenantID, id); err != nil {
		return errors.New("failed to delete teacher")
	}
	if teacher.UserID != "" {
		if err := s.schoolUsers.Delete(tenantID, teacher.UserID); err != nil {
			s.logger.Warn("failed to disable linked account",
				slog.String("tenant_id", tenantID),
				slog.String("user_id", teacher.UserID),
				slog.String("error", err.Error()),
			)
		}
	}
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "delete", "teacher", id, "succeeded", "")
	return nil
}

// ListTeachers lists the tenant's active teachers
func (s *SchoolService) ListTeachers(tenantID string) ([]*domain.Teacher, error) {
	return s.teachers.ListByTenant(tenantID)
}

// Classes

// CreateClass creates a class
func (s *SchoolService) CreateClass(ctx context.Context, tenantID, actorID string, class *domain.ClassRoom) (*domain.ClassRoom, error) {
	if class.Name == "" {
		return nil, errors.New("name is required")
	}
	class.TenantID = tenantID
	class.IsActive = true
	if err := s.classes.Create(class); err != nil {
		s.logger.Error("failed to create class", slog.String("tenant_id", tenantID), slog.String("error", err.Error()))
		return nil, errors.New("failed to create class")
	}
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "create", "class", class.ID, "succeeded", "")
	return class, nil
}

// GetClass retrieves a class by ID
func (s *SchoolService) GetClass(tenantID, id string) (*domain.ClassRoom, error) {
	class, err := s.classes.GetByID(tenantID, id)
	if err != nil {
		return nil, errors.New("class not found")
	}
	return class, nil
}

// UpdateClass rewrites a class's mutable fields
func (s *SchoolService) UpdateClass(ctx context.Context, tenantID, actorID, id string, update *domain.ClassRoom) (*domain.ClassRoom, error) {
	existing, err := s.classes.GetByID(tenantID, id)
	if err != nil {
		return nil, errors.New("class not found")
	}
	existing.Name = update.Name
	existing.GradeLevel = update.GradeLevel
	existing.Section = update.Section
	existing.AcademicYear = update.AcademicYear
	existing.Room = update.Room
	if err := s.classes.Update(existing); err != nil {
		return nil, errors.New("failed to update class")
	}
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "update", "class", id, "succeeded", "")
	return existing, nil
}

// DeleteClass soft-disables a class
func (s *SchoolService) DeleteClass(ctx context.Context, tenantID, actorID, id string) error {
	if err := s.classes.Delete(tenantID, id); err != nil {
		return errors.New("class not found")
	}
	s.invalidateRoster(tenantID, id)
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "delete", "class", id, "succeeded", "")
	return nil
}

// ListClasses lists the tenant's active classes with derived student counts
func (s *SchoolService) ListClasses(tenantID string) ([]*domain.ClassRoom, error) {
	return s.classes.ListByTenant(tenantID)
}

// Subjects

// CreateSubject creates a subject
func (s *SchoolService) CreateSubject(ctx context.Context, tenantID, actorID string, subject *domain.Subject) (*domain.Subject, error) {
	if subject.Name == "" {
		return nil, errors.New("name is required")
	}
	subject.TenantID = tenantID
	subject.IsActive = true
	if err := s.subjects.Create(subject); err != nil {
		s.logger.Error("failed to create subject", slog.String("tenant_id", tenantID), slog.String("error", err.Error()))
		return nil, errors.New("failed to create subject")
	}
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "create", "subject", subject.ID, "succeeded", "")
	return subject, nil
}

// UpdateSubject rewrites a subject's mutable fields
func (s *SchoolService) UpdateSubject(ctx context.Context, tenantID, actorID, id string, update *domain.Subject) (*domain.Subject, error) {
	existing, err := s.subjects.GetByID(tenantID, id)
	if err != nil {
		return nil, errors.New("subject not found")
	}
	existing.Name = update.Name
	existing.Code = update.Code
	if err := s.subjects.Update(existing); err != nil {
		return nil, errors.New("failed to update subject")
	}
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "update", "subject", id, "succeeded", "")
	return existing, nil
}

// DeleteSubject soft-disables a subject
func (s *SchoolService) DeleteSubject(ctx context.Context, tenantID, actorID, id string) error {
	if err := s.subjects.Delete(tenantID, id); err != nil {
		return errors.New("subject not found")
	}
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "delete", "subject", id, "succeeded", "")
	return nil
}

// ListSubjects lists the tenant's active subjects
func (s *SchoolService) ListSubjects(tenantID string) ([]*domain.Subject, error) {
	return s.subjects.ListByTenant(tenantID)
}

// Class-subject assignments

// AssignSubject links a teacher to a (class, subject) pair. Assigning an
// already-linked pair replaces the teacher.
func (s *SchoolService) AssignSubject(ctx context.Context, tenantID, actorID string, assignment *domain.ClassSubject) (*domain.ClassSubject, error) {
	if assignment.ClassID == "" || assignment.SubjectID == "" || assignment.TeacherID == "" {
		return nil, errors.New("class, subject, and teacher are required")
	}
	if _, err := s.classes.GetByID(tenantID, assignment.ClassID); err != nil {
		return nil, errors.New("class not found")
	}
	if _, err := s.subjects.GetByID(tenantID, assignment.SubjectID); err != nil {
		return nil, errors.New("subject not found")
	}
	if _, err := s.teachers.GetByID(tenantID, assignment.TeacherID); err != nil {
		return nil, errors.New("teacher not found")
	}
	assignment.TenantID = tenantID
	if err := s.classSubjects.Upsert(assignment); err != nil {
		s.logger.Error("failed to assign subject", slog.String("tenant_id", tenantID), slog.String("error", err.Error()))
		return nil, errors.New("failed to assign subject")
	}
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "assign", "class_subject", assignment.ID, "succeeded", "")
	return assignment, nil
}

// UnassignSubject removes a class-subject assignment
func (s *SchoolService) UnassignSubject(ctx context.Context, tenantID, actorID, id string) error {
	if err := s.classSubjects.Delete(tenantID, id); err != nil {
		return errors.New("assignment not found")
	}
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "unassign", "class_subject", id, "succeeded", "")
	return nil
}

// ListAssignments lists assignments, optionally narrowed to one class
func (s *SchoolService) ListAssignments(tenantID, classID string) ([]*domain.ClassSubject, error) {
	if classID != "" {
		return s.classSubjects.ListByClass(tenantID, classID)
	}
	return s.classSubjects.ListByTenant(tenantID)
}

// Terms

// CreateTerm creates a term. New terms are never current; SetCurrentTerm
// owns that transition.
func (s *SchoolService) CreateTerm(ctx context.Context, tenantID, actorID string, term *domain.Term) (*domain.Term, error) {
	if term.Name == "" || term.AcademicYear == "" {
		return nil, errors.New("name and academic year are required")
	}
	if !term.EndDate.After(term.StartDate) {
		return nil, errors.New("end date must be after start date")
	}
	term.TenantID = tenantID
	term.IsCurrent = false
	term.IsActive = true
	if err := s.terms.Create(term); err != nil {
		s.logger.Error("failed to create term", slog.String("tenant_id", tenantID), slog.String("error", err.Error()))
		return nil, errors.New("failed to create term")
	}
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "create", "term", term.ID, "succeeded", "")
	return term, nil
}

// UpdateTerm rewrites a term's mutable fields
func (s *SchoolService) UpdateTerm(ctx context.Context, tenantID, actorID, id string, update *domain.Term) (*domain.Term, error) {
	existing, err := s.terms.GetByID(tenantID, id)
	if err != nil {
		return nil, errors.New("term not found")
	}
	if !update.EndDate.After(update.StartDate) {
		return nil, errors.New("end date must be after start date")
	}
	existing.Name = update.Name
	existing.AcademicYear = update.AcademicYear
	existing.StartDate = update.StartDate
	existing.EndDate = update.EndDate
	if err := s.terms.Update(existing); err != nil {
		return nil, errors.New("failed to update term")
	}
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "update", "term", id, "succeeded", "")
	return existing, nil
}

// SetCurrentTerm marks one term current, clearing any other. Idempotent
// when the term is already current.
func (s *SchoolService) SetCurrentTerm(ctx context.Context, tenantID, actorID, id string) error {
	if err := s.terms.SetCurrent(tenantID, id); err != nil {
		return errors.New("term not found")
	}
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "set_current", "term", id, "succeeded", "")
	return nil
}

// DeleteTerm soft-disables a term
func (s *SchoolService) DeleteTerm(ctx context.Context, tenantID, actorID, id string) error {
	if err := s.terms.Delete(tenantID, id); err != nil {
		return errors.New("term not found")
	}
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "delete", "term", id, "succeeded", "")
	return nil
}

// ListTerms lists the tenant's active terms
func (s *SchoolService) ListTerms(tenantID string) ([]*domain.Term, error) {
	return s.terms.ListByTenant(tenantID)
}

// Grade types

func validateGradeType(gt *domain.GradeType) error {
	if gt.Name == "" {
		return errors.New("name is required")
	}
	if gt.Weight != nil && (*gt.Weight < 0 || *gt.Weight > 1) {
		return errors.New("weight must be between 0 and 1")
	}
	if gt.MaxScore <= 0 {
		return errors.New("max score must be a positive number")
	}
	return nil
}

// CreateGradeType creates a weighted assessment category. Weight may be
// nil for informational types; non-nil weights must land in [0,1]. The
// weights summing to 1.0 is advisory and never enforced here.
func (s *SchoolService) CreateGradeType(ctx context.Context, tenantID, actorID string, gt *domain.GradeType) (*domain.GradeType, error) {
	if err := validateGradeType(gt); err != nil {
		return nil, err
	}
	gt.TenantID = tenantID
	gt.IsActive = true
	if err := s.gradeTypes.Create(gt); err != nil {
		s.logger.Error("failed to create grade type", slog.String("tenant_id", tenantID), slog.String("error", err.Error()))
		return nil, errors.New("failed to create grade type")
	}
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "create", "grade_type", gt.ID, "succeeded", "")
	return gt, nil
}

// UpdateGradeType rewrites a grade type. Changing a weight does not
// recompute stored grades; weighted averages are always computed on read.
func (s *SchoolService) UpdateGradeType(ctx context.Context, tenantID, actorID, id string, update *domain.GradeType) (*domain.GradeType, error) {
	existing, err := s.gradeTypes.GetByID(tenantID, id)
	if err != nil {
		return nil, errors.New("grade type not found")
	}
	if err := validateGradeType(update); err != nil {
		return nil, err
	}
	existing.Name = update.Name
	existing.Weight = update.Weight
	existing.MaxScore = update.MaxScore
	if err := s.gradeTypes.Update(existing); err != nil {
		return nil, errors.New("failed to update grade type")
	}
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "update", "grade_type", id, "succeeded", "")
	return existing, nil
}

// DeleteGradeType soft-disables a grade type
func (s *SchoolService) DeleteGradeType(ctx context.Context, tenantID, actorID, id string) error {
	if err := s.gradeTypes.Delete(tenantID, id); err != nil {
		return errors.New("grade type not found")
	}
	s.audit.LogAction(ctx, auth.DomainSchool, tenantID, actorID, "delete", "grade_type", id, "succeeded", "")
	return nil
}

// ListGradeTypes lists the tenant's active grade types
func (s *SchoolService) ListGradeTypes(tenantID string) ([]*domain.GradeType, error) {
	return s.gradeTypes.ListByTenant(tenantID)
}

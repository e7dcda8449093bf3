package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/classtrack/internal/domain"
	"github.com/yourorg/classtrack/internal/gradecalc"
	"github.com/yourorg/classtrack/internal/observability/metrics"
	"github.com/yourorg/classtrack/internal/security/audit"
	"github.com/yourorg/classtrack/pkg/cache"
)

const rosterCacheTTL = 30 * time.Second

// GradeService owns grade writes. Percentage and letter grade are derived
// server-side on every write; values sent by clients for those fields are
// ignored. Bulk entry validates each row against the class roster and
// reports per-row failures without aborting the batch.
type GradeService struct {
	grades     domain.GradeRepository
	gradeTypes domain.GradeTypeRepository
	students   domain.StudentRepository
	terms      domain.TermRepository
	rosters    *cache.Cache
	audit      *audit.Logger
	logger     *slog.Logger
}

// NewGradeService creates a new grade service
func NewGradeService(
	grades domain.GradeRepository,
	gradeTypes domain.GradeTypeRepository,
	students domain.StudentRepository,
	terms domain.TermRepository,
	rosters *cache.Cache,
	auditLogger *audit.Logger,
	logger *slog.Logger,
) *GradeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GradeService{
		grades:     grades,
		gradeTypes: gradeTypes,
		students:   students,
		terms:      terms,
		rosters:    rosters,
		audit:      auditLogger,
		logger:     logger,
	}
}

// GradeInput carries the client-writable fields of a grade.
type GradeInput struct {
	StudentID       string    `json:"studentId"`
	ClassID         string    `json:"classId"`
	SubjectID       string    `json:"subjectId"`
	GradeTypeID     string    `json:"gradeTypeId"`
	TermID          string    `json:"termId"`
	Title           string    `json:"title"`
	Score           float64   `json:"score"`
	MaxScore        int       `json:"maxScore"`
	AssessmentDate  time.Time `json:"assessmentDate"`
	TeacherNotes    string    `json:"teacherNotes"`
	StudentFeedback string    `json:"studentFeedback"`
}

func (s *GradeService) derive(tenantID string, in GradeInput, g *domain.Grade) error {
	if in.StudentID == "" || in.ClassID == "" || in.SubjectID == "" || in.GradeTypeID == "" {
		return errors.New("student, class, subject, and grade type are required")
	}
	pct, ok := gradecalc.Percentage(in.Score, in.MaxScore)
	if !ok {
		return errors.New("max score must be a positive number")
	}
	if in.Score < 0 || in.Score > float64(in.MaxScore) {
		return errors.New("score must be between 0 and the max score")
	}
	if _, err := s.gradeTypes.GetByID(tenantID, in.GradeTypeID); err != nil {
		return errors.New("grade type not found")
	}
	if in.TermID != "" {
		if _, err := s.terms.GetByID(tenantID, in.TermID); err != nil {
			return errors.New("term not found")
		}
	}

	g.TenantID = tenantID
	g.StudentID = in.StudentID
	g.ClassID = in.ClassID
	g.SubjectID = in.SubjectID
	g.GradeTypeID = in.GradeTypeID
	g.TermID = in.TermID
	g.Title = in.Title
	g.Score = in.Score
	g.MaxScore = in.MaxScore
	g.Percentage = pct
	g.LetterGrade = gradecalc.Letter(pct)
	g.AssessmentDate = in.AssessmentDate
	g.TeacherNotes = in.TeacherNotes
	g.StudentFeedback = in.StudentFeedback
	return nil
}

// CreateGrade records a single grade
func (s *GradeService) CreateGrade(ctx context.Context, tenantID, actorID string, in GradeInput) (*domain.Grade, error) {
	grade := &domain.Grade{}
	if err := s.derive(tenantID, in, grade); err != nil {
		return nil, err
	}
	if _, err := s.students.GetByID(tenantID, in.StudentID); err != nil {
		return nil, errors.New("student not found")
	}
	if err := s.grades.Create(grade); err != nil {
		s.logger.Error("failed to create grade", slog.String("tenant_id", tenantID), slog.String("error", err.Error()))
		return nil, errors.New("failed to save grade")
	}

	metrics.ObserveGradesSaved("single", 1)
	s.audit.LogAction(ctx, "school", tenantID, actorID, "create", "grade", grade.ID, "succeeded", "")
	return grade, nil
}

// UpdateGrade rewrites a grade's client-writable fields and re-derives
// percentage and letter. Publish state is untouched; last write wins on
// concurrent edits.
func (s *GradeService) UpdateGrade(ctx context.Context, tenantID, actorID, id string, in GradeInput) (*domain.Grade, error) {
	grade, err := s.grades.GetByID(tenantID, id)
	if err != nil {
		return nil, errors.New("grade not found")
	}
	if err := s.derive(tenantID, in, grade); err != nil {
		return nil, err
	}
	if err := s.grades.Update(grade); err != nil {
		return nil, errors.New("failed to save grade")
	}
	s.audit.LogAction(ctx, "school", tenantID, actorID, "update", "grade", grade.ID, "succeeded", "")
	return grade, nil
}

// GetGrade retrieves a grade by ID
func (s *GradeService) GetGrade(tenantID, id string) (*domain.Grade, error) {
	grade, err := s.grades.GetByID(tenantID, id)
	if err != nil {
		return nil, errors.New("grade not found")
	}
	return grade, nil
}

// ListGrades lists grades narrowed by the filter. Teacher notes stay in
// the result; the handler strips them for student-facing responses.
func (s *GradeService) ListGrades(tenantID string, filter domain.GradeFilter) ([]*domain.Grade, error) {
	return s.grades.List(tenantID, filter)
}

// DeleteGrade hard-removes a grade
func (s *GradeService) DeleteGrade(ctx context.Context, tenantID, actorID, id string) error {
	if err := s.grades.Delete(tenantID, id); err != nil {
		return errors.New("grade not found")
	}
	s.audit.LogAction(ctx, "school", tenantID, actorID, "delete", "grade", id, "succeeded", "")
	return nil
}

// SetPublished publishes or unpublishes a grade. Publishing is what makes
// a grade (and its student feedback) visible to the student.
func (s *GradeService) SetPublished(ctx context.Context, tenantID, actorID, id string, published bool) error {
	if err := s.grades.SetPublished(tenantID, id, published); err != nil {
		return errors.New("grade not found")
	}
	action := "publish"
	if !published {
		action = "unpublish"
	}
	s.audit.LogAction(ctx, "school", tenantID, actorID, action, "grade", id, "succeeded", "")
	return nil
}

// BulkEntry is one row of a bulk submission.
type BulkEntry struct {
	StudentID string  `json:"studentId"`
	Score     float64 `json:"score"`
}

// BulkFailure reports why one row was rejected.
type BulkFailure struct {
	StudentID string `json:"studentId"`
	Error     string `json:"error"`
}

// BulkRequest is a batch of grades sharing assessment metadata.
type BulkRequest struct {
	ClassID        string      `json:"classId"`
	SubjectID      string      `json:"subjectId"`
	GradeTypeID    string      `json:"gradeTypeId"`
	TermID         string      `json:"termId"`
	Title          string      `json:"title"`
	MaxScore       int         `json:"maxScore"`
	AssessmentDate time.Time   `json:"assessmentDate"`
	Entries        []BulkEntry `json:"entries"`
}

// BulkResult summarizes a bulk submission.
type BulkResult struct {
	Saved  int           `json:"saved"`
	Failed []BulkFailure `json:"failed"`
}

// ErrEmptyBatch rejects bulk submissions with no entries.
var ErrEmptyBatch = errors.New("no grades to save")

func (s *GradeService) roster(tenantID, classID string) (map[string]bool, error) {
	key := fmt.Sprintf("roster:%s:%s", tenantID, classID)
	if cached, ok := s.rosters.Get(key); ok {
		if roster, ok := cached.(map[string]bool); ok {
			return roster, nil
		}
	}
	students, err := s.students.ListByClass(tenantID, classID)
	if err != nil {
		return nil, err
	}
	roster := make(map[string]bool, len(students))
	for _, st := range students {
		roster[st.ID] = true
	}
	s.rosters.Set(key, roster, rosterCacheTTL)
	return roster, nil
}

// BulkCreate saves a batch of grades for one assessment. Each entry is
// validated independently; a bad row lands in Failed and the rest of the
// batch proceeds. An empty batch is an error so clients can refuse to
// round-trip it.
func (s *GradeService) BulkCreate(ctx context.Context, tenantID, actorID string, req BulkRequest) (*BulkResult, error) {
	if len(req.Entries) == 0 {
		return nil, ErrEmptyBatch
	}
	if req.ClassID == "" || req.SubjectID == "" || req.GradeTypeID == "" {
		return nil, errors.New("class, subject, and grade type are required")
	}
	if req.MaxScore <= 0 {
		return nil, errors.New("max score must be a positive number")
	}
	if _, err := s.gradeTypes.GetByID(tenantID, req.GradeTypeID); err != nil {
		return nil, errors.New("grade type not found")
	}
	if req.TermID != "" {
		if _, err := s.terms.GetByID(tenantID, req.TermID); err != nil {
			return nil, errors.New("term not found")
		}
	}

	roster, err := s.roster(tenantID, req.ClassID)
	if err != nil {
		s.logger.Error("failed to load class roster",
			slog.String("tenant_id", tenantID),
			slog.String("class_id", req.ClassID),
			slog.String("error", err.Error()),
		)
		return nil, errors.New("failed to load class roster")
	}

	result := &BulkResult{}
	for _, entry := range req.Entries {
		if !roster[entry.StudentID] {
			result.Failed = append(result.Failed, BulkFailure{StudentID: entry.StudentID, Error: "student not in class"})
			continue
		}
		if entry.Score < 0 || entry.Score > float64(req.MaxScore) {
			result.Failed = append(result.Failed, BulkFailure{StudentID: entry.StudentID, Error: "score out of range"})
			continue
		}
		pct, ok := gradecalc.Percentage(entry.Score, req.MaxScore)
		if !ok {
			result.Failed = append(result.Failed, BulkFailure{StudentID: entry.StudentID, Error: "invalid score"})
			continue
		}
		grade := &domain.Grade{
			TenantID:       tenantID,
			StudentID:      entry.StudentID,
			ClassID:        req.ClassID,
			SubjectID:      req.SubjectID,
			GradeTypeID:    req.GradeTypeID,
			TermID:         req.TermID,
			Title:          req.Title,
			Score:          entry.Score,
			MaxScore:       req.MaxScore,
			Percentage:     pct,
			LetterGrade:    gradecalc.Letter(pct),
			AssessmentDate: req.AssessmentDate,
		}
		if err := s.grades.Create(grade); err != nil {
			s.logger.Error("bulk row failed to save",
				slog.String("tenant_id", tenantID),
				slog.String("student_id", entry.StudentID),
				slog.String("error", err.Error()),
			)
			result.Failed = append(result.Failed, BulkFailure{StudentID: entry.StudentID, Error: "failed to save"})
			continue
		}
		result.Saved++
	}

	metrics.ObserveGradesSaved("bulk", result.Saved)
	metrics.ObserveBulkRejected(len(result.Failed))
	s.audit.LogBulkGrades(ctx, tenantID, actorID, req.ClassID, result.Saved, len(result.Failed))
	s.logger.Info("bulk grade entry",
		slog.String("tenant_id", tenantID),
		slog.String("class_id", req.ClassID),
		slog.Int("saved", result.Saved),
		slog.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// ClassSummary reports per-student weighted averages for a class and
// subject, plus whether the tenant's weights currently sum to 1.0.
type ClassSummary struct {
	Students        map[string]float64 `json:"students"`
	WeightsBalanced bool               `json:"weightsBalanced"`
	TotalWeight     float64            `json:"totalWeight"`
}

// Summarize computes weighted averages for every student with grades in
// the class and subject, optionally scoped to a term.
func (s *GradeService) Summarize(tenantID, classID, subjectID, termID string) (*ClassSummary, error) {
	types, err := s.gradeTypes.ListByTenant(tenantID)
	if err != nil {
		return nil, errors.New("failed to load grade types")
	}
	grades, err := s.grades.List(tenantID, domain.GradeFilter{ClassID: classID, SubjectID: subjectID, TermID: termID})
	if err != nil {
		return nil, errors.New("failed to load grades")
	}

	byStudent := make(map[string][]*domain.Grade)
	for _, g := range grades {
		byStudent[g.StudentID] = append(byStudent[g.StudentID], g)
	}

	summary := &ClassSummary{
		Students:        make(map[string]float64, len(byStudent)),
		WeightsBalanced: gradecalc.WeightsBalanced(types),
		TotalWeight:     gradecalc.TotalWeight(types),
	}
	for studentID, studentGrades := range byStudent {
		if avg, ok := gradecalc.WeightedAverage(studentGrades, types); ok {
			summary.Students[studentID] = avg
		}
	}
	return summary, nil
}

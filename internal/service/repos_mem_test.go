package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yourorg/classtrack/internal/domain"
)

// In-memory repository fakes shared by the service tests.

type memSessionRegistry struct {
	mu      sync.Mutex
	open    map[string]string // domain:sessionID -> userID
	revoked []string
}

func newMemSessionRegistry() *memSessionRegistry {
	return &memSessionRegistry{open: make(map[string]string)}
}

func (m *memSessionRegistry) Open(_ context.Context, domain, sessionID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open[domain+":"+sessionID] = userID
	return nil
}

func (m *memSessionRegistry) Revoke(_ context.Context, domain, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := domain + ":" + sessionID
	if _, ok := m.open[key]; !ok {
		return errors.New("session not found")
	}
	delete(m.open, key)
	m.revoked = append(m.revoked, key)
	return nil
}

func (m *memSessionRegistry) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}

type memTenantRepo struct {
	mu      sync.Mutex
	tenants map[string]*domain.Tenant
	nextID  int
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{tenants: make(map[string]*domain.Tenant)}
}

func (m *memTenantRepo) Create(t *domain.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tenants {
		if existing.Slug == t.Slug {
			return errors.New("tenant slug already exists")
		}
	}
	m.nextID++
	t.ID = fmt.Sprintf("tenant-%d", m.nextID)
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	m.tenants[t.ID] = &cp
	return nil
}

func (m *memTenantRepo) GetByID(id string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, errors.New("tenant not found")
	}
	cp := *t
	return &cp, nil
}

func (m *memTenantRepo) GetBySlug(slug string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, errors.New("tenant not found")
}

func (m *memTenantRepo) UpdateStatus(id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return errors.New("tenant not found")
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	return nil
}

func (m *memTenantRepo) UpdatePlan(id, plan string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return errors.New("tenant not found")
	}
	t.SubscriptionPlan = plan
	t.UpdatedAt = time.Now()
	return nil
}

func (m *memTenantRepo) Delete(id string) error {
	return m.UpdateStatus(id, domain.TenantInactive)
}

func (m *memTenantRepo) List() ([]*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

type memProviderUserRepo struct {
	mu     sync.Mutex
	users  map[string]*domain.ProviderUser
	nextID int
}

func newMemProviderUserRepo() *memProviderUserRepo {
	return &memProviderUserRepo{users: make(map[string]*domain.ProviderUser)}
}

func (m *memProviderUserRepo) Create(u *domain.ProviderUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return errors.New("email already registered")
		}
	}
	m.nextID++
	u.ID = fmt.Sprintf("provider-user-%d", m.nextID)
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memProviderUserRepo) GetByID(id string) (*domain.ProviderUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	cp := *u
	return &cp, nil
}

func (m *memProviderUserRepo) GetByEmail(email string) (*domain.ProviderUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && u.IsActive {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errors.New("user not found")
}

func (m *memProviderUserRepo) Update(u *domain.ProviderUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return errors.New("user not found")
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memProviderUserRepo) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return errors.New("user not found")
	}
	u.IsActive = false
	return nil
}

func (m *memProviderUserRepo) List() ([]*domain.ProviderUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.ProviderUser, 0, len(m.users))
	for _, u := range m.users {
		if u.IsActive {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memSchoolUserRepo struct {
	mu     sync.Mutex
	users  map[string]*domain.SchoolUser
	nextID int
}

func newMemSchoolUserRepo() *memSchoolUserRepo {
	return &memSchoolUserRepo{users: make(map[string]*domain.SchoolUser)}
}

func (m *memSchoolUserRepo) Create(u *domain.SchoolUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.TenantID == u.TenantID && existing.Email == u.Email {
			return errors.New("email already registered")
		}
	}
	m.nextID++
	u.ID = fmt.Sprintf("school-user-%d", m.nextID)
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memSchoolUserRepo) GetByID(tenantID, id string) (*domain.SchoolUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.TenantID != tenantID {
		return nil, errors.New("user not found")
	}
	cp := *u
	return &cp, nil
}

func (m *memSchoolUserRepo) GetByEmail(tenantID, email string) (*domain.SchoolUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.TenantID == tenantID && u.Email == email && u.IsActive {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errors.New("user not found")
}

func (m *memSchoolUserRepo) Update(u *domain.SchoolUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return errors.New("user not found")
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memSchoolUserRepo) Delete(tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.TenantID != tenantID {
		return errors.New("user not found")
	}
	u.IsActive = false
	return nil
}

func (m *memSchoolUserRepo) ListByTenant(tenantID string) ([]*domain.SchoolUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.SchoolUser
	for _, u := range m.users {
		if u.TenantID == tenantID && u.IsActive {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memTeacherRepo struct {
	mu       sync.Mutex
	teachers map[string]*domain.Teacher
	nextID   int
}

func newMemTeacherRepo() *memTeacherRepo {
	return &memTeacherRepo{teachers: make(map[string]*domain.Teacher)}
}

func (m *memTeacherRepo) Create(t *domain.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = fmt.Sprintf("teacher-%d", m.nextID)
	cp := *t
	m.teachers[t.ID] = &cp
	return nil
}

func (m *memTeacherRepo) GetByID(tenantID, id string) (*domain.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teachers[id]
	if !ok || t.TenantID != tenantID {
		return nil, errors.New("teacher not found")
	}
	cp := *t
	return &cp, nil
}

func (m *memTeacherRepo) Update(t *domain.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teachers[t.ID]; !ok {
		return errors.New("teacher not found")
	}
	cp := *t
	m.teachers[t.ID] = &cp
	return nil
}

func (m *memTeacherRepo) UpdatePassword(tenantID, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teachers[id]
	if !ok || t.TenantID != tenantID {
		return errors.New("teacher not found")
	}
	t.PasswordHash = passwordHash
	return nil
}

func (m *memTeacherRepo) Delete(tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teachers[id]
	if !ok || t.TenantID != tenantID {
		return errors.New("teacher not found")
	}
	t.IsActive = false
	return nil
}

func (m *memTeacherRepo) ListByTenant(tenantID string) ([]*domain.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Teacher
	for _, t := range m.teachers {
		if t.TenantID == tenantID && t.IsActive {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memStudentRepo struct {
	mu       sync.Mutex
	students map[string]*domain.Student
	nextID   int
}

func newMemStudentRepo() *memStudentRepo {
	return &memStudentRepo{students: make(map[string]*domain.Student)}
}

func (m *memStudentRepo) Create(s *domain.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = fmt.Sprintf("student-%d", m.nextID)
	cp := *s
	m.students[s.ID] = &cp
	return nil
}

func (m *memStudentRepo) GetByID(tenantID, id string) (*domain.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok || s.TenantID != tenantID {
		return nil, errors.New("student not found")
	}
	cp := *s
	return &cp, nil
}

func (m *memStudentRepo) Update(s *domain.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[s.ID]; !ok {
		return errors.New("student not found")
	}
	cp := *s
	m.students[s.ID] = &cp
	return nil
}

func (m *memStudentRepo) Delete(tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok || s.TenantID != tenantID {
		return errors.New("student not found")
	}
	s.IsActive = false
	return nil
}

func (m *memStudentRepo) ListByTenant(tenantID string) ([]*domain.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Student
	for _, s := range m.students {
		if s.TenantID == tenantID && s.IsActive {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStudentRepo) ListByClass(tenantID, classID string) ([]*domain.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Student
	for _, s := range m.students {
		if s.TenantID == tenantID && s.ClassID == classID && s.IsActive {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memGradeTypeRepo struct {
	mu     sync.Mutex
	types  map[string]*domain.GradeType
	nextID int
}

func newMemGradeTypeRepo() *memGradeTypeRepo {
	return &memGradeTypeRepo{types: make(map[string]*domain.GradeType)}
}

func (m *memGradeTypeRepo) Create(gt *domain.GradeType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	gt.ID = fmt.Sprintf("grade-type-%d", m.nextID)
	cp := *gt
	m.types[gt.ID] = &cp
	return nil
}

func (m *memGradeTypeRepo) GetByID(tenantID, id string) (*domain.GradeType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gt, ok := m.types[id]
	if !ok || gt.TenantID != tenantID {
		return nil, errors.New("grade type not found")
	}
	cp := *gt
	return &cp, nil
}

func (m *memGradeTypeRepo) Update(gt *domain.GradeType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.types[gt.ID]; !ok {
		return errors.New("grade type not found")
	}
	cp := *gt
	m.types[gt.ID] = &cp
	return nil
}

func (m *memGradeTypeRepo) Delete(tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	gt, ok := m.types[id]
	if !ok || gt.TenantID != tenantID {
		return errors.New("grade type not found")
	}
	gt.IsActive = false
	return nil
}

func (m *memGradeTypeRepo) ListByTenant(tenantID string) ([]*domain.GradeType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.GradeType
	for _, gt := range m.types {
		if gt.TenantID == tenantID && gt.IsActive {
			cp := *gt
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memGradeRepo struct {
	mu     sync.Mutex
	grades map[string]*domain.Grade
	nextID int
}

func newMemGradeRepo() *memGradeRepo {
	return &memGradeRepo{grades: make(map[string]*domain.Grade)}
}

func (m *memGradeRepo) Create(g *domain.Grade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	g.ID = fmt.Sprintf("grade-%d", m.nextID)
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	cp := *g
	m.grades[g.ID] = &cp
	return nil
}

func (m *memGradeRepo) GetByID(tenantID, id string) (*domain.Grade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grades[id]
	if !ok || g.TenantID != tenantID {
		return nil, errors.New("grade not found")
	}
	cp := *g
	return &cp, nil
}

func (m *memGradeRepo) Update(g *domain.Grade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.grades[g.ID]
	if !ok || existing.TenantID != g.TenantID {
		return errors.New("grade not found")
	}
	cp := *g
	cp.UpdatedAt = time.Now()
	m.grades[g.ID] = &cp
	return nil
}

func (m *memGradeRepo) SetPublished(tenantID, id string, published bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grades[id]
	if !ok || g.TenantID != tenantID {
		return errors.New("grade not found")
	}
	g.IsPublished = published
	return nil
}

func (m *memGradeRepo) Delete(tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grades[id]
	if !ok || g.TenantID != tenantID {
		return errors.New("grade not found")
	}
	delete(m.grades, id)
	return nil
}

func (m *memGradeRepo) List(tenantID string, filter domain.GradeFilter) ([]*domain.Grade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Grade
	for _, g := range m.grades {
		if g.TenantID != tenantID {
			continue
		}
		if filter.StudentID != "" && g.StudentID != filter.StudentID {
			continue
		}
		if filter.ClassID != "" && g.ClassID != filter.ClassID {
			continue
		}
		if filter.SubjectID != "" && g.SubjectID != filter.SubjectID {
			continue
		}
		if filter.GradeTypeID != "" && g.GradeTypeID != filter.GradeTypeID {
			continue
		}
		if filter.TermID != "" && g.TermID != filter.TermID {
			continue
		}
		if filter.Published != nil && g.IsPublished != *filter.Published {
			continue
		}
		cp := *g
		out = append(out, &cp)
	}
	return out, nil
}

type memClassRepo struct {
	mu      sync.Mutex
	classes map[string]*domain.ClassRoom
	nextID  int
}

func newMemClassRepo() *memClassRepo {
	return &memClassRepo{classes: make(map[string]*domain.ClassRoom)}
}

func (m *memClassRepo) Create(c *domain.ClassRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = fmt.Sprintf("class-%d", m.nextID)
	cp := *c
	m.classes[c.ID] = &cp
	return nil
}

func (m *memClassRepo) GetByID(tenantID, id string) (*domain.ClassRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classes[id]
	if !ok || c.TenantID != tenantID {
		return nil, errors.New("class not found")
	}
	cp := *c
	return &cp, nil
}

func (m *memClassRepo) Update(c *domain.ClassRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.classes[c.ID]; !ok {
		return errors.New("class not found")
	}
	cp := *c
	m.classes[c.ID] = &cp
	return nil
}

func (m *memClassRepo) Delete(tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classes[id]
	if !ok || c.TenantID != tenantID {
		return errors.New("class not found")
	}
	c.IsActive = false
	return nil
}

func (m *memClassRepo) ListByTenant(tenantID string) ([]*domain.ClassRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ClassRoom
	for _, c := range m.classes {
		if c.TenantID == tenantID && c.IsActive {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memSubjectRepo struct {
	mu       sync.Mutex
	subjects map[string]*domain.Subject
	nextID   int
}

func newMemSubjectRepo() *memSubjectRepo {
	return &memSubjectRepo{subjects: make(map[string]*domain.Subject)}
}

func (m *memSubjectRepo) Create(s *domain.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = fmt.Sprintf("subject-%d", m.nextID)
	cp := *s
	m.subjects[s.ID] = &cp
	return nil
}

func (m *memSubjectRepo) GetByID(tenantID, id string) (*domain.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[id]
	if !ok || s.TenantID != tenantID {
		return nil, errors.New("subject not found")
	}
	cp := *s
	return &cp, nil
}

func (m *memSubjectRepo) Update(s *domain.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subjects[s.ID]; !ok {
		return errors.New("subject not found")
	}
	cp := *s
	m.subjects[s.ID] = &cp
	return nil
}

func (m *memSubjectRepo) Delete(tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[id]
	if !ok || s.TenantID != tenantID {
		return errors.New("subject not found")
	}
	s.IsActive = false
	return nil
}

func (m *memSubjectRepo) ListByTenant(tenantID string) ([]*domain.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Subject
	for _, s := range m.subjects {
		if s.TenantID == tenantID && s.IsActive {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memClassSubjectRepo struct {
	mu          sync.Mutex
	assignments map[string]*domain.ClassSubject
	nextID      int
}

func newMemClassSubjectRepo() *memClassSubjectRepo {
	return &memClassSubjectRepo{assignments: make(map[string]*domain.ClassSubject)}
}

func (m *memClassSubjectRepo) Upsert(a *domain.ClassSubject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.assignments {
		if existing.TenantID == a.TenantID && existing.ClassID == a.ClassID && existing.SubjectID == a.SubjectID {
			existing.TeacherID = a.TeacherID
			a.ID = existing.ID
			return nil
		}
	}
	m.nextID++
	a.ID = fmt.Sprintf("class-subject-%d", m.nextID)
	cp := *a
	m.assignments[a.ID] = &cp
	return nil
}

func (m *memClassSubjectRepo) GetByID(tenantID, id string) (*domain.ClassSubject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok || a.TenantID != tenantID {
		return nil, errors.New("assignment not found")
	}
	cp := *a
	return &cp, nil
}

func (m *memClassSubjectRepo) Delete(tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok || a.TenantID != tenantID {
		return errors.New("assignment not found")
	}
	delete(m.assignments, id)
	return nil
}

func (m *memClassSubjectRepo) ListByTenant(tenantID string) ([]*domain.ClassSubject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ClassSubject
	for _, a := range m.assignments {
		if a.TenantID == tenantID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memClassSubjectRepo) ListByClass(tenantID, classID string) ([]*domain.ClassSubject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ClassSubject
	for _, a := range m.assignments {
		if a.TenantID == tenantID && a.ClassID == classID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

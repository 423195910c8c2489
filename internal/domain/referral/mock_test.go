package referral

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/afyalink/referral/internal/domain/access"
	"github.com/afyalink/referral/internal/domain/identity"
)

type mockRepo struct {
	mu    sync.Mutex
	store map[uuid.UUID]*Referral
	now   func() time.Time
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*Referral), now: time.Now}
}

func (m *mockRepo) Create(_ context.Context, r *Referral) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = m.now()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.store[r.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) update(id uuid.UUID, guard func(*Referral) bool, lost error, apply func(*Referral)) (*Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !guard(r) {
		return nil, lost
	}
	apply(r)
	r.UpdatedAt = m.now()
	cp := *r
	return &cp, nil
}

func (m *mockRepo) ClaimNurse(_ context.Context, id, nurseID uuid.UUID) (*Referral, error) {
	return m.update(id, func(r *Referral) bool { return r.AssignedNurseID == nil }, ErrAlreadyAssigned,
		func(r *Referral) { r.AssignedNurseID = &nurseID })
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Referral, error) {
	return m.update(id, func(r *Referral) bool { return r.Status == from }, ErrConcurrentUpdate,
		func(r *Referral) { r.Status = to })
}

func (m *mockRepo) Touch(_ context.Context, id uuid.UUID) (*Referral, error) {
	return m.update(id, func(*Referral) bool { return true }, nil, func(*Referral) {})
}

func (m *mockRepo) AssignDoctor(_ context.Context, id, doctorID uuid.UUID) (*Referral, error) {
	return m.update(id, func(*Referral) bool { return true }, nil,
		func(r *Referral) { r.AssignedDoctorID = &doctorID })
}

func (m *mockRepo) matches(r *Referral, f Filter) bool {
	if !f.Scope.All {
		in := (f.Scope.PatientID != nil && r.PatientID == *f.Scope.PatientID) ||
			(f.Scope.DoctorID != nil && (r.ReferringDoctorID == *f.Scope.DoctorID || r.DoctorIs(*f.Scope.DoctorID))) ||
			(f.Scope.NurseID != nil && (r.AssignedNurseID == nil || r.NurseIs(*f.Scope.NurseID)))
		if !in {
			return false
		}
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Urgency != "" && r.Urgency != f.Urgency {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(r.Reason), strings.ToLower(f.Search)) {
		return false
	}
	if !f.From.IsZero() && r.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.CreatedAt.After(f.To) {
		return false
	}
	return true
}

func (m *mockRepo) List(_ context.Context, f Filter) ([]*Referral, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Referral
	for _, r := range m.store {
		if m.matches(r, f) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if f.Limit > 0 {
		if f.Offset >= len(out) {
			return nil, total, nil
		}
		end := f.Offset + f.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[f.Offset:end]
	}
	return out, total, nil
}

func (m *mockRepo) Count(ctx context.Context, f Filter) (int, error) {
	_, n, err := m.List(ctx, Filter{Scope: f.Scope, Status: f.Status, Urgency: f.Urgency, Search: f.Search, From: f.From, To: f.To})
	return n, err
}

func (m *mockRepo) CountByStatus(_ context.Context, scope Scope) (map[Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Status]int)
	for _, r := range m.store {
		if m.matches(r, Filter{Scope: scope}) {
			out[r.Status]++
		}
	}
	return out, nil
}

type mockDirectory struct {
	profiles map[string]*identity.Profile
	roles    map[uuid.UUID][]identity.Role
}

func (d *mockDirectory) GetByEmail(_ context.Context, email string) (*identity.Profile, error) {
	p, ok := d.profiles[identity.NormalizeEmail(email)]
	if !ok {
		return nil, identity.ErrProfileNotFound
	}
	return p, nil
}

func (d *mockDirectory) ListForUser(_ context.Context, id uuid.UUID) ([]identity.Role, error) {
	return d.roles[id], nil
}

type fixture struct {
	svc  *Service
	repo *mockRepo
	dir  *mockDirectory
}

func newFixture() *fixture {
	f := &fixture{
		repo: newMockRepo(),
		dir: &mockDirectory{
			profiles: make(map[string]*identity.Profile),
			roles:    make(map[uuid.UUID][]identity.Role),
		},
	}
	f.svc = NewService(f.repo, f.dir, f.dir, nil, zerolog.Nop())
	return f
}

// user registers an active profile holding roles and returns it as a caller.
func (f *fixture) user(email string, roles ...identity.Role) access.Caller {
	id := uuid.New()
	f.dir.profiles[email] = &identity.Profile{ID: id, Email: email, Status: identity.StatusActive}
	f.dir.roles[id] = roles
	return access.Caller{UserID: id, Roles: roles}
}

func validRequest(patientEmail string) CreateRequest {
	return CreateRequest{
		PatientEmail: patientEmail,
		FacilityFrom: "Kisumu Health Centre",
		FacilityTo:   "Jaramogi Oginga Odinga Teaching & Referral Hospital",
		Reason:       "Suspected appendicitis",
		Urgency:      UrgencyHigh,
	}
}

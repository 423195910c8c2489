package admin

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/afyalink/referral/internal/domain/access"
	"github.com/afyalink/referral/internal/domain/identity"
	"github.com/afyalink/referral/internal/domain/referral"
)

type mockFacilityRepo struct {
	store  map[uuid.UUID]*Facility
	levels []*FacilityLevel
}

func newMockFacilityRepo() *mockFacilityRepo {
	return &mockFacilityRepo{store: make(map[uuid.UUID]*Facility)}
}

func (m *mockFacilityRepo) Create(_ context.Context, f *Facility) error {
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt
	cp := *f
	m.store[f.ID] = &cp
	return nil
}

func (m *mockFacilityRepo) Update(_ context.Context, f *Facility) error {
	if _, ok := m.store[f.ID]; !ok {
		return ErrFacilityNotFound
	}
	f.UpdatedAt = time.Now()
	cp := *f
	m.store[f.ID] = &cp
	return nil
}

func (m *mockFacilityRepo) GetByID(_ context.Context, id uuid.UUID) (*Facility, error) {
	f, ok := m.store[id]
	if !ok {
		return nil, ErrFacilityNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *mockFacilityRepo) List(_ context.Context, f FacilityFilter) ([]*Facility, int, error) {
	var out []*Facility
	for _, fac := range m.store {
		if f.Search != "" && !strings.Contains(strings.ToLower(fac.Name), strings.ToLower(f.Search)) {
			continue
		}
		if f.Type != "" && fac.Type != f.Type {
			continue
		}
		if f.Status != "" && fac.Status != f.Status {
			continue
		}
		cp := *fac
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (m *mockFacilityRepo) ListLevels(context.Context) ([]*FacilityLevel, error) {
	return m.levels, nil
}

type mockStaffRepo struct {
	items []*MedicalStaff
}

func (m *mockStaffRepo) Create(_ context.Context, s *MedicalStaff) error {
	for _, existing := range m.items {
		if existing.UserID == s.UserID {
			return ErrStaffExists
		}
	}
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	m.items = append(m.items, &cp)
	return nil
}

func (m *mockStaffRepo) List(_ context.Context, f StaffFilter) ([]*MedicalStaff, error) {
	var out []*MedicalStaff
	for _, s := range m.items {
		if f.FacilityID != nil && (s.FacilityID == nil || *s.FacilityID != *f.FacilityID) {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type mockDirectory struct {
	profiles map[uuid.UUID]*identity.Profile
	roles    map[uuid.UUID][]identity.Role
}

func (d *mockDirectory) GetByID(_ context.Context, id uuid.UUID) (*identity.Profile, error) {
	p, ok := d.profiles[id]
	if !ok {
		return nil, identity.ErrProfileNotFound
	}
	return p, nil
}

func (d *mockDirectory) ListForUser(_ context.Context, id uuid.UUID) ([]identity.Role, error) {
	return d.roles[id], nil
}

func (d *mockDirectory) CountByStatus(context.Context) (map[identity.Status]int, error) {
	out := make(map[identity.Status]int)
	for _, p := range d.profiles {
		out[p.Status]++
	}
	return out, nil
}

func (d *mockDirectory) CountByRole(context.Context) (map[identity.Role]int, error) {
	out := make(map[identity.Role]int)
	for _, rs := range d.roles {
		for _, r := range rs {
			out[r]++
		}
	}
	return out, nil
}

type stubReferrals struct {
	counts map[referral.Status]int
	calls  int
}

func (s *stubReferrals) CountByStatus(context.Context) (map[referral.Status]int, error) {
	s.calls++
	return s.counts, nil
}

type stubCodes int

func (n stubCodes) Count(context.Context) (int, error) { return int(n), nil }

type fixture struct {
	svc        *Service
	facilities *mockFacilityRepo
	staff      *mockStaffRepo
	dir        *mockDirectory
	admin      access.Caller
}

func newFixture() *fixture {
	f := &fixture{
		facilities: newMockFacilityRepo(),
		staff:      &mockStaffRepo{},
		dir: &mockDirectory{
			profiles: make(map[uuid.UUID]*identity.Profile),
			roles:    make(map[uuid.UUID][]identity.Role),
		},
	}
	f.svc = NewService(f.facilities, f.staff, f.dir, zerolog.Nop())
	f.admin = f.user(identity.StatusActive, identity.RoleAdmin)
	return f
}

func (f *fixture) user(status identity.Status, roles ...identity.Role) access.Caller {
	id := uuid.New()
	f.dir.profiles[id] = &identity.Profile{ID: id, Email: id.String()[:8] + "@x.com", Status: status}
	f.dir.roles[id] = roles
	return access.Caller{UserID: id, Roles: roles}
}

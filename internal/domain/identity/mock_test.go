package identity

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/afyalink/referral/internal/platform/auth"
)

type mockProfileRepo struct {
	mu    sync.Mutex
	store map[uuid.UUID]*Profile
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{store: make(map[uuid.UUID]*Profile)}
}

func (m *mockProfileRepo) Create(_ context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.store {
		if existing.Email == NormalizeEmail(p.Email) {
			return ErrEmailTaken
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Email = NormalizeEmail(p.Email)
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *mockProfileRepo) GetByID(_ context.Context, id uuid.UUID) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProfileRepo) GetByEmail(_ context.Context, email string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.store {
		if p.Email == NormalizeEmail(email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrProfileNotFound
}

func (m *mockProfileRepo) ActivateIfPending(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.Status != StatusPending {
		return false, nil
	}
	p.Status = StatusActive
	return true, nil
}

func (m *mockProfileRepo) SetStatus(_ context.Context, id uuid.UUID, s Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return ErrProfileNotFound
	}
	p.Status = s
	return nil
}

func (m *mockProfileRepo) List(_ context.Context, f ListFilter) ([]*Profile, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Profile
	for _, p := range m.store {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && p.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && p.CreatedAt.After(f.To) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, len(out), nil
}

func (m *mockProfileRepo) CountByStatus(_ context.Context) (map[Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Status]int)
	for _, p := range m.store {
		out[p.Status]++
	}
	return out, nil
}

type mockRoleRepo struct {
	mu    sync.Mutex
	roles map[uuid.UUID][]Role
}

func newMockRoleRepo() *mockRoleRepo {
	return &mockRoleRepo{roles: make(map[uuid.UUID][]Role)}
}

func (m *mockRoleRepo) Assign(_ context.Context, userID uuid.UUID, role Role) (*RoleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles[userID] {
		if r == role {
			return nil, ErrRoleExists
		}
	}
	m.roles[userID] = append(m.roles[userID], role)
	return &RoleAssignment{ID: uuid.New(), UserID: userID, Role: role, CreatedAt: time.Now()}, nil
}

func (m *mockRoleRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Role(nil), m.roles[userID]...), nil
}

func (m *mockRoleRepo) ListForUsers(_ context.Context, ids []uuid.UUID) (map[uuid.UUID][]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID][]Role)
	for _, id := range ids {
		if rs, ok := m.roles[id]; ok {
			out[id] = append([]Role(nil), rs...)
		}
	}
	return out, nil
}

func (m *mockRoleRepo) CountByRole(_ context.Context) (map[Role]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Role]int)
	for _, rs := range m.roles {
		for _, r := range rs {
			out[r]++
		}
	}
	return out, nil
}

// inlineTx runs fn directly and, like a real rollback, restores both stores
// when fn fails.
type inlineTx struct {
	profiles *mockProfileRepo
	roles    *mockRoleRepo
}

func (t inlineTx) InTx(ctx context.Context, fn func(context.Context) error) error {
	t.profiles.mu.Lock()
	savedProfiles := make(map[uuid.UUID]*Profile, len(t.profiles.store))
	for k, v := range t.profiles.store {
		cp := *v
		savedProfiles[k] = &cp
	}
	t.profiles.mu.Unlock()
	t.roles.mu.Lock()
	savedRoles := make(map[uuid.UUID][]Role, len(t.roles.roles))
	for k, v := range t.roles.roles {
		savedRoles[k] = append([]Role(nil), v...)
	}
	t.roles.mu.Unlock()

	if err := fn(ctx); err != nil {
		t.profiles.mu.Lock()
		t.profiles.store = savedProfiles
		t.profiles.mu.Unlock()
		t.roles.mu.Lock()
		t.roles.roles = savedRoles
		t.roles.mu.Unlock()
		return err
	}
	return nil
}

type stubRedeemer struct {
	roles *mockRoleRepo
	codes map[string]Role
	err   error
}

func (s *stubRedeemer) Redeem(ctx context.Context, code string, userID uuid.UUID) (Role, error) {
	if s.err != nil {
		return "", s.err
	}
	role, ok := s.codes[code]
	if !ok {
		return "", ErrProfileNotFound
	}
	if _, err := s.roles.Assign(ctx, userID, role); err != nil {
		return "", err
	}
	return role, nil
}

func newTestService(tokens TokenIssuer) (*Service, *mockProfileRepo, *mockRoleRepo) {
	profiles := newMockProfileRepo()
	roles := newMockRoleRepo()
	svc := NewService(profiles, roles, inlineTx{profiles: profiles, roles: roles}, tokens, testLogger())
	return svc, profiles, roles
}

func testIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), "afyalink", time.Hour)
}

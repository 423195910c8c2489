package registration

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/afyalink/referral/internal/domain/access"
	"github.com/afyalink/referral/internal/domain/identity"
)

type mockCodeRepo struct {
	mu    sync.Mutex
	store map[uuid.UUID]*Code
}

func newMockCodeRepo() *mockCodeRepo {
	return &mockCodeRepo{store: make(map[uuid.UUID]*Code)}
}

func (m *mockCodeRepo) Create(_ context.Context, c *Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.store {
		if existing.Code == c.Code {
			return ErrCodeExists
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	cp := *c
	m.store[c.ID] = &cp
	return nil
}

func (m *mockCodeRepo) GetByID(_ context.Context, id uuid.UUID) (*Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok {
		return nil, ErrCodeNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCodeRepo) find(code string) *Code {
	for _, c := range m.store {
		if c.Code == code {
			return c
		}
	}
	return nil
}

func (m *mockCodeRepo) GetByCode(_ context.Context, code string) (*Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.find(code)
	if c == nil {
		return nil, ErrCodeNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCodeRepo) Consume(_ context.Context, code string, now time.Time) (*Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.find(code)
	if c == nil {
		return nil, ErrCodeNotFound
	}
	if err := c.Usable(now); err != nil {
		return nil, err
	}
	c.UsesCount++
	cp := *c
	return &cp, nil
}

func (m *mockCodeRepo) Deactivate(_ context.Context, id uuid.UUID) (*Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok {
		return nil, ErrCodeNotFound
	}
	c.IsActive = false
	cp := *c
	return &cp, nil
}

func (m *mockCodeRepo) List(_ context.Context, limit, offset int) ([]*Code, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Code
	for _, c := range m.store {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (m *mockCodeRepo) snapshot() func() {
	m.mu.Lock()
	saved := make(map[uuid.UUID]*Code, len(m.store))
	for k, v := range m.store {
		cp := *v
		saved[k] = &cp
	}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.store = saved
		m.mu.Unlock()
	}
}

type mockProfileRepo struct {
	mu    sync.Mutex
	store map[uuid.UUID]*identity.Profile
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{store: make(map[uuid.UUID]*identity.Profile)}
}

func (m *mockProfileRepo) Create(_ context.Context, p *identity.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Email = identity.NormalizeEmail(p.Email)
	for _, existing := range m.store {
		if existing.Email == p.Email {
			return identity.ErrEmailTaken
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *mockProfileRepo) GetByID(_ context.Context, id uuid.UUID) (*identity.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, identity.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProfileRepo) GetByEmail(_ context.Context, email string) (*identity.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.store {
		if p.Email == identity.NormalizeEmail(email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, identity.ErrProfileNotFound
}

func (m *mockProfileRepo) ActivateIfPending(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.Status != identity.StatusPending {
		return false, nil
	}
	p.Status = identity.StatusActive
	return true, nil
}

func (m *mockProfileRepo) SetStatus(_ context.Context, id uuid.UUID, s identity.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return identity.ErrProfileNotFound
	}
	p.Status = s
	return nil
}

func (m *mockProfileRepo) List(_ context.Context, f identity.ListFilter) ([]*identity.Profile, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*identity.Profile
	for _, p := range m.store {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, len(out), nil
}

func (m *mockProfileRepo) CountByStatus(_ context.Context) (map[identity.Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[identity.Status]int)
	for _, p := range m.store {
		out[p.Status]++
	}
	return out, nil
}

func (m *mockProfileRepo) snapshot() func() {
	m.mu.Lock()
	saved := make(map[uuid.UUID]*identity.Profile, len(m.store))
	for k, v := range m.store {
		cp := *v
		saved[k] = &cp
	}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.store = saved
		m.mu.Unlock()
	}
}

type mockRoleRepo struct {
	mu    sync.Mutex
	roles map[uuid.UUID][]identity.Role
}

func newMockRoleRepo() *mockRoleRepo {
	return &mockRoleRepo{roles: make(map[uuid.UUID][]identity.Role)}
}

func (m *mockRoleRepo) Assign(_ context.Context, userID uuid.UUID, role identity.Role) (*identity.RoleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles[userID] {
		if r == role {
			return nil, identity.ErrRoleExists
		}
	}
	m.roles[userID] = append(m.roles[userID], role)
	return &identity.RoleAssignment{ID: uuid.New(), UserID: userID, Role: role, CreatedAt: time.Now()}, nil
}

func (m *mockRoleRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]identity.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]identity.Role(nil), m.roles[userID]...), nil
}

func (m *mockRoleRepo) ListForUsers(_ context.Context, ids []uuid.UUID) (map[uuid.UUID][]identity.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID][]identity.Role)
	for _, id := range ids {
		if rs, ok := m.roles[id]; ok {
			out[id] = append([]identity.Role(nil), rs...)
		}
	}
	return out, nil
}

func (m *mockRoleRepo) CountByRole(_ context.Context) (map[identity.Role]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[identity.Role]int)
	for _, rs := range m.roles {
		for _, r := range rs {
			out[r]++
		}
	}
	return out, nil
}

func (m *mockRoleRepo) snapshot() func() {
	m.mu.Lock()
	saved := make(map[uuid.UUID][]identity.Role, len(m.roles))
	for k, v := range m.roles {
		saved[k] = append([]identity.Role(nil), v...)
	}
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.roles = saved
		m.mu.Unlock()
	}
}

type inTxKey struct{}

// inlineTx runs fn directly and restores every store when it fails, the way
// a rollback would. Units of work are serialised; nested calls join the
// outer one.
type inlineTx struct {
	mu     sync.Mutex
	stores []interface{ snapshot() func() }
}

func (t *inlineTx) InTx(ctx context.Context, fn func(context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ctx = context.WithValue(ctx, inTxKey{}, true)
	restores := make([]func(), len(t.stores))
	for i, s := range t.stores {
		restores[i] = s.snapshot()
	}
	if err := fn(ctx); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

type fixture struct {
	svc      *Service
	identity *identity.Service
	gate     *access.Gate
	codes    *mockCodeRepo
	profiles *mockProfileRepo
	roles    *mockRoleRepo
	admin    access.Caller
}

func newFixture() *fixture {
	f := &fixture{
		codes:    newMockCodeRepo(),
		profiles: newMockProfileRepo(),
		roles:    newMockRoleRepo(),
	}
	tx := &inlineTx{stores: []interface{ snapshot() func() }{f.codes, f.profiles, f.roles}}
	f.svc = NewService(f.codes, f.profiles, f.roles, tx, nil, zerolog.Nop())
	f.identity = identity.NewService(f.profiles, f.roles, tx, nil, zerolog.Nop())
	f.identity.SetCodeRedeemer(f.svc)
	f.gate = access.NewGate(f.profiles, f.roles)

	adminID := uuid.New()
	f.profiles.store[adminID] = &identity.Profile{ID: adminID, Email: "admin@x.com", Status: identity.StatusActive}
	f.roles.roles[adminID] = []identity.Role{identity.RoleAdmin}
	f.admin = access.Caller{UserID: adminID, Roles: []identity.Role{identity.RoleAdmin}}
	return f
}

func intPtr(n int) *int { return &n }

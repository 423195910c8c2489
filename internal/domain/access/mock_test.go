package access

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/afyalink/referral/internal/domain/identity"
)

type mockProfiles struct {
	identity.ProfileRepository
	store map[uuid.UUID]*identity.Profile
	err   error
}

func (m *mockProfiles) GetByID(_ context.Context, id uuid.UUID) (*identity.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.store[id]
	if !ok {
		return nil, identity.ErrProfileNotFound
	}
	return p, nil
}

type mockRoles struct {
	identity.RoleRepository
	roles map[uuid.UUID][]identity.Role
	calls int
}

func (m *mockRoles) ListForUser(_ context.Context, id uuid.UUID) ([]identity.Role, error) {
	m.calls++
	return m.roles[id], nil
}

var errStore = errors.New("connection refused")

type fixture struct {
	gate     *Gate
	profiles *mockProfiles
	roles    *mockRoles
}

func newFixture() *fixture {
	f := &fixture{
		profiles: &mockProfiles{store: make(map[uuid.UUID]*identity.Profile)},
		roles:    &mockRoles{roles: make(map[uuid.UUID][]identity.Role)},
	}
	f.gate = NewGate(f.profiles, f.roles)
	return f
}

func (f *fixture) addUser(status identity.Status, roles ...identity.Role) uuid.UUID {
	id := uuid.New()
	f.profiles.store[id] = &identity.Profile{ID: id, Email: id.String()[:8] + "@x.com", Status: status}
	f.roles.roles[id] = roles
	return id
}

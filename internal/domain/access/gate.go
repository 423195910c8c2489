// Package access decides who the caller is, whether their account may use
// the application, which dashboard they land on and which mutations they may
// attempt.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/afyalink/referral/internal/domain/identity"
)

type DecisionKind string

const (
	Unauthenticated DecisionKind = "unauthenticated"
	PendingApproval DecisionKind = "pending_approval"
	Authorized      DecisionKind = "authorized"
)

// Decision is the outcome of resolving a session. Email is set for
// PendingApproval; UserID and Roles for Authorized.
type Decision struct {
	Kind   DecisionKind    `json:"kind"`
	UserID uuid.UUID       `json:"user_id,omitempty"`
	Email  string          `json:"email,omitempty"`
	Roles  []identity.Role `json:"roles,omitempty"`
}

// Session is an authenticated subject as established by the session
// provider.
type Session struct {
	UserID uuid.UUID
}

type Gate struct {
	profiles identity.ProfileRepository
	roles    identity.RoleRepository
}

func NewGate(profiles identity.ProfileRepository, roles identity.RoleRepository) *Gate {
	return &Gate{profiles: profiles, roles: roles}
}

// Resolve classifies a session. Roles are only consulted for active
// profiles, so a pending account is never authorized whatever roles it
// already holds.
func (g *Gate) Resolve(ctx context.Context, s *Session) (Decision, error) {
	if s == nil || s.UserID == uuid.Nil {
		return Decision{Kind: Unauthenticated}, nil
	}

	p, err := g.profiles.GetByID(ctx, s.UserID)
	if errors.Is(err, identity.ErrProfileNotFound) {
		return Decision{Kind: Unauthenticated}, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("load profile: %w", err)
	}
	if !p.IsActive() {
		return Decision{Kind: PendingApproval, UserID: p.ID, Email: p.Email}, nil
	}

	roles, err := g.roles.ListForUser(ctx, p.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("load roles: %w", err)
	}
	return Decision{Kind: Authorized, UserID: p.ID, Email: p.Email, Roles: roles}, nil
}

type DashboardKind string

const (
	DashboardAdmin      DashboardKind = "admin"
	DashboardDoctor     DashboardKind = "doctor"
	DashboardNurse      DashboardKind = "nurse"
	DashboardPatient    DashboardKind = "patient"
	DashboardUnassigned DashboardKind = "unassigned"
)

// dashboardPriority is consulted in order; the first held role wins.
var dashboardPriority = []struct {
	role identity.Role
	kind DashboardKind
}{
	{identity.RoleAdmin, DashboardAdmin},
	{identity.RoleDoctor, DashboardDoctor},
	{identity.RoleNurse, DashboardNurse},
	{identity.RolePatient, DashboardPatient},
}

// SelectDashboard picks the dashboard for a set of roles. Roles without a
// dashboard of their own (pharmacist, lab technician) land on Unassigned.
func SelectDashboard(roles []identity.Role) DashboardKind {
	for _, p := range dashboardPriority {
		for _, r := range roles {
			if r == p.role {
				return p.kind
			}
		}
	}
	return DashboardUnassigned
}

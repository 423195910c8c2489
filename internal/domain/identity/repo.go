package identity

import (
	"context"

	"github.com/google/uuid"
)

type ProfileRepository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	// ActivateIfPending flips a pending profile to active and reports whether
	// this call performed the flip.
	ActivateIfPending(ctx context.Context, id uuid.UUID) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
	List(ctx context.Context, f ListFilter) ([]*Profile, int, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

type RoleRepository interface {
	Assign(ctx context.Context, userID uuid.UUID, role Role) (*RoleAssignment, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Role, error)
	ListForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]Role, error)
	CountByRole(ctx context.Context) (map[Role]int, error)
}

package referral

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Referral) error
	GetByID(ctx context.Context, id uuid.UUID) (*Referral, error)
	// ClaimNurse sets the assigned nurse only if none is set yet. It returns
	// ErrAlreadyAssigned when another nurse got there first.
	ClaimNurse(ctx context.Context, id, nurseID uuid.UUID) (*Referral, error)
	// UpdateStatus moves the referral from one status to another, failing
	// with ErrConcurrentUpdate if the stored status is no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Referral, error)
	// Touch refreshes updated_at without changing the status.
	Touch(ctx context.Context, id uuid.UUID) (*Referral, error)
	AssignDoctor(ctx context.Context, id, doctorID uuid.UUID) (*Referral, error)
	List(ctx context.Context, f Filter) ([]*Referral, int, error)
	Count(ctx context.Context, f Filter) (int, error)
	CountByStatus(ctx context.Context, scope Scope) (map[Status]int, error)
}

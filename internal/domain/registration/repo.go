package registration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Code) error
	GetByID(ctx context.Context, id uuid.UUID) (*Code, error)
	GetByCode(ctx context.Context, code string) (*Code, error)
	// Consume increments uses_count if the code is usable at now, in a single
	// conditional statement. It returns the code's blocking reason otherwise.
	Consume(ctx context.Context, code string, now time.Time) (*Code, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*Code, error)
	List(ctx context.Context, limit, offset int) ([]*Code, int, error)
}

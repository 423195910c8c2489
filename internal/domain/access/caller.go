package access

import (
	"context"

	"github.com/google/uuid"

	"github.com/afyalink/referral/internal/domain/identity"
	"github.com/afyalink/referral/internal/platform/apperr"
)

// Caller is an authorized user as seen by the domain services.
type Caller struct {
	UserID uuid.UUID
	Roles  []identity.Role
	// Operator marks actions taken from the command line rather than by a
	// signed-in user. UserID then has no profile row behind it.
	Operator bool
}

// operatorID stands in for the user id of command-line actions in logs.
var operatorID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// OperatorCaller is the admin identity used by operator CLI commands.
func OperatorCaller() Caller {
	return Caller{UserID: operatorID, Roles: []identity.Role{identity.RoleAdmin}, Operator: true}
}

func (c Caller) Has(role identity.Role) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (c Caller) Can(action Action) bool {
	return Authorize(c.Roles, action)
}

// Require returns a Forbidden error unless the caller may attempt action.
func (c Caller) Require(action Action) error {
	if c.UserID == uuid.Nil {
		return apperr.ErrUnauthenticated
	}
	if !c.Can(action) {
		return apperr.New(apperr.ErrForbidden, "not permitted: "+string(action))
	}
	return nil
}

type callerKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the caller the gate middleware stored, if any.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// MustCaller is CallerFromContext for handlers mounted behind the gate,
// returning ErrUnauthenticated when no caller is present.
func MustCaller(ctx context.Context) (Caller, error) {
	c, ok := CallerFromContext(ctx)
	if !ok {
		return Caller{}, apperr.ErrUnauthenticated
	}
	return c, nil
}

package registration

import (
	"time"

	"github.com/google/uuid"

	"github.com/afyalink/referral/internal/domain/identity"
)

// Code grants a role to whoever redeems it at signup.
type Code struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	Code      string        `db:"code" json:"code"`
	Role      identity.Role `db:"role" json:"role"`
	MaxUses   *int          `db:"max_uses" json:"max_uses,omitempty"`
	UsesCount int           `db:"uses_count" json:"uses_count"`
	ExpiresAt *time.Time    `db:"expires_at" json:"expires_at,omitempty"`
	IsActive  bool          `db:"is_active" json:"is_active"`
	CreatedBy *uuid.UUID    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// Usable reports why the code cannot be redeemed at now, or nil.
func (c *Code) Usable(now time.Time) error {
	switch {
	case !c.IsActive:
		return ErrCodeInactive
	case c.ExpiresAt != nil && !c.ExpiresAt.After(now):
		return ErrCodeExpired
	case c.MaxUses != nil && c.UsesCount >= *c.MaxUses:
		return ErrCodeExhausted
	}
	return nil
}

type CreateRequest struct {
	Code      string        `json:"code"`
	Role      identity.Role `json:"role"`
	MaxUses   *int          `json:"max_uses,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
}

type ActivateRequest struct {
	Role identity.Role `json:"role,omitempty"`
}

// PendingUser is an entry in the activation queue.
type PendingUser struct {
	identity.Account
	NeedsRole bool `json:"needs_role"`
}

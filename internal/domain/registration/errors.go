package registration

import "github.com/afyalink/referral/internal/platform/apperr"

var (
	ErrCodeNotFound  = apperr.New(apperr.ErrNotFound, "registration code not found")
	ErrCodeExists    = apperr.New(apperr.ErrConflict, "registration code already exists")
	ErrCodeInactive  = apperr.New(apperr.ErrConflict, "registration code is no longer active")
	ErrCodeExpired   = apperr.New(apperr.ErrConflict, "registration code has expired")
	ErrCodeExhausted = apperr.New(apperr.ErrConflict, "registration code has reached its usage limit")
	ErrNotPending    = apperr.New(apperr.ErrConflict, "user is not pending approval")
)

func errRoleRequired() error {
	return apperr.Validation("role", "role required")
}

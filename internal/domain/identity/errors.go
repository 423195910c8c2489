package identity

import "github.com/afyalink/referral/internal/platform/apperr"

var (
	ErrProfileNotFound    = apperr.New(apperr.ErrNotFound, "profile not found")
	ErrEmailTaken         = apperr.New(apperr.ErrConflict, "email already registered")
	ErrRoleExists         = apperr.New(apperr.ErrConflict, "role already assigned")
	ErrInvalidCredentials = apperr.New(apperr.ErrUnauthenticated, "invalid email or password")
	ErrLoginDisabled      = apperr.New(apperr.ErrForbidden, "built-in login is disabled; use the identity provider")
)

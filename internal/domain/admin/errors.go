package admin

import "github.com/afyalink/referral/internal/platform/apperr"

var (
	ErrFacilityNotFound = apperr.New(apperr.ErrNotFound, "facility not found")
	ErrLevelNotFound    = apperr.New(apperr.ErrNotFound, "facility level not found")
	ErrStaffExists      = apperr.New(apperr.ErrConflict, "user is already registered as staff")
)

package referral

import "github.com/afyalink/referral/internal/platform/apperr"

var (
	ErrNotFound          = apperr.New(apperr.ErrNotFound, "referral not found")
	ErrPatientNotFound   = apperr.New(apperr.ErrNotFound, "no patient profile with that email")
	ErrAlreadyAssigned   = apperr.New(apperr.ErrConflict, "referral already has an assigned nurse")
	ErrConcurrentUpdate  = apperr.New(apperr.ErrConflict, "referral changed concurrently; reload and retry")
	ErrNotAssignedNurse  = apperr.New(apperr.ErrForbidden, "only the assigned nurse may change this referral")
	ErrNotReferrer       = apperr.New(apperr.ErrForbidden, "only the referring doctor may hand over this referral")
	ErrCannotView        = apperr.New(apperr.ErrForbidden, "not permitted to view this referral")
	ErrInvalidTransition = apperr.ErrInvalidTransition
)

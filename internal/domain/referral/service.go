package referral

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/afyalink/referral/internal/domain/access"
	"github.com/afyalink/referral/internal/domain/identity"
	"github.com/afyalink/referral/internal/platform/apperr"
	"github.com/afyalink/referral/internal/platform/metrics"
	"github.com/afyalink/referral/internal/platform/telemetry"
)

// PatientDirectory resolves a patient email to a profile.
type PatientDirectory interface {
	GetByEmail(ctx context.Context, email string) (*identity.Profile, error)
}

// RoleLookup lists the roles a user holds.
type RoleLookup interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]identity.Role, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	roles    RoleLookup
	metrics  *metrics.Collector
	log      zerolog.Logger
}

func NewService(repo Repository, patients PatientDirectory, roles RoleLookup, m *metrics.Collector, log zerolog.Logger) *Service {
	return &Service{repo: repo, patients: patients, roles: roles, metrics: m, log: log}
}

func (s *Service) Create(ctx context.Context, caller access.Caller, req CreateRequest) (_ *Referral, err error) {
	ctx, span := telemetry.StartSpan(ctx, "referral.Create")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := caller.Require(access.ReferralCreate); err != nil {
		return nil, err
	}

	req.PatientEmail = identity.NormalizeEmail(req.PatientEmail)
	req.FacilityFrom = strings.TrimSpace(req.FacilityFrom)
	req.FacilityTo = strings.TrimSpace(req.FacilityTo)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Urgency == "" {
		req.Urgency = UrgencyMedium
	}

	ve := &apperr.ValidationError{}
	if req.PatientEmail == "" {
		ve.Add("patient_email", "patient_email is required")
	}
	if req.FacilityFrom == "" {
		ve.Add("facility_from", "facility_from is required")
	}
	if req.FacilityTo == "" {
		ve.Add("facility_to", "facility_to is required")
	}
	if req.Reason == "" {
		ve.Add("reason", "reason is required")
	}
	if !req.Urgency.Valid() {
		ve.Add("urgency", "urgency must be one of low, medium, high, critical")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	patient, err := s.patients.GetByEmail(ctx, req.PatientEmail)
	if errors.Is(err, identity.ErrProfileNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}

	ref := &Referral{
		PatientID:         patient.ID,
		ReferringDoctorID: caller.UserID,
		FacilityFrom:      req.FacilityFrom,
		FacilityTo:        req.FacilityTo,
		Reason:            req.Reason,
		Diagnosis:         req.Diagnosis,
		Notes:             req.Notes,
		Urgency:           req.Urgency,
		Status:            StatusPending,
	}
	if err := s.repo.Create(ctx, ref); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("referral.id", ref.ID.String()))
	s.metrics.ReferralCreated(string(ref.Urgency))
	s.log.Info().
		Str("referral_id", ref.ID.String()).
		Str("doctor_id", caller.UserID.String()).
		Str("urgency", string(ref.Urgency)).
		Msg("referral created")
	return ref, nil
}

// AssignNurse claims an unassigned referral for the calling nurse. Only the
// first claim succeeds.
func (s *Service) AssignNurse(ctx context.Context, caller access.Caller, id uuid.UUID) (_ *Referral, err error) {
	ctx, span := telemetry.StartSpan(ctx, "referral.AssignNurse", attribute.String("referral.id", id.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := caller.Require(access.ReferralAssignNurse); err != nil {
		return nil, err
	}

	ref, err := s.repo.ClaimNurse(ctx, id, caller.UserID)
	if errors.Is(err, ErrAlreadyAssigned) {
		s.metrics.NurseClaim(false)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.metrics.NurseClaim(true)
	s.log.Info().
		Str("referral_id", id.String()).
		Str("nurse_id", caller.UserID.String()).
		Msg("nurse assigned")
	return ref, nil
}

// Transition moves the referral to next on behalf of its assigned nurse.
func (s *Service) Transition(ctx context.Context, caller access.Caller, id uuid.UUID, next Status) (_ *Referral, err error) {
	ctx, span := telemetry.StartSpan(ctx, "referral.Transition",
		attribute.String("referral.id", id.String()),
		attribute.String("referral.to", string(next)))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := caller.Require(access.ReferralTransition); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, apperr.Validation("status", "unknown status "+string(next))
	}

	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cur.NurseIs(caller.UserID) {
		return nil, ErrNotAssignedNurse
	}
	if err := CanTransition(cur.Status, next); err != nil {
		return nil, err
	}

	if cur.Status == next {
		return s.repo.Touch(ctx, id)
	}
	ref, err := s.repo.UpdateStatus(ctx, id, cur.Status, next)
	if err != nil {
		return nil, err
	}

	s.metrics.ReferralTransition(string(cur.Status), string(next))
	s.log.Info().
		Str("referral_id", id.String()).
		Str("from", string(cur.Status)).
		Str("to", string(next)).
		Str("nurse_id", caller.UserID.String()).
		Msg("referral transitioned")
	return ref, nil
}

// AssignDoctor hands a referral to a receiving doctor. Only the referring
// doctor may do this, and only before the referral is closed.
func (s *Service) AssignDoctor(ctx context.Context, caller access.Caller, id, doctorID uuid.UUID) (_ *Referral, err error) {
	ctx, span := telemetry.StartSpan(ctx, "referral.AssignDoctor", attribute.String("referral.id", id.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := caller.Require(access.ReferralAssignDoctor); err != nil {
		return nil, err
	}
	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.ReferringDoctorID != caller.UserID {
		return nil, ErrNotReferrer
	}
	if cur.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	roles, err := s.roles.ListForUser(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !(access.Caller{UserID: doctorID, Roles: roles}).Has(identity.RoleDoctor) {
		return nil, apperr.Validation("doctor_id", "target user is not a doctor")
	}

	ref, err := s.repo.AssignDoctor(ctx, id, doctorID)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("referral_id", id.String()).
		Str("doctor_id", doctorID.String()).
		Msg("receiving doctor assigned")
	return ref, nil
}

// CanView applies the read rule: the patient, the referring or assigned
// doctor, the assigned nurse and any admin. Nurses may also see referrals
// nobody has claimed yet.
func CanView(caller access.Caller, ref *Referral) bool {
	switch {
	case caller.Has(identity.RoleAdmin):
		return true
	case ref.PatientID == caller.UserID:
		return true
	case ref.ReferringDoctorID == caller.UserID, ref.DoctorIs(caller.UserID):
		return true
	case ref.NurseIs(caller.UserID):
		return true
	case caller.Has(identity.RoleNurse) && ref.AssignedNurseID == nil:
		return true
	}
	return false
}

func (s *Service) Get(ctx context.Context, caller access.Caller, id uuid.UUID) (*Referral, error) {
	if caller.UserID == uuid.Nil {
		return nil, apperr.ErrUnauthenticated
	}
	ref, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(caller, ref) {
		return nil, ErrCannotView
	}
	return ref, nil
}

// ScopeFor returns the rows a caller may list, mirroring their dashboards.
// A caller holding several roles sees the union.
func ScopeFor(caller access.Caller) Scope {
	if caller.Can(access.ReferralListAll) {
		return Scope{All: true}
	}
	id := caller.UserID
	var sc Scope
	if caller.Has(identity.RolePatient) {
		sc.PatientID = &id
	}
	if caller.Has(identity.RoleDoctor) {
		sc.DoctorID = &id
	}
	if caller.Has(identity.RoleNurse) {
		sc.NurseID = &id
	}
	return sc
}

func (s *Service) List(ctx context.Context, caller access.Caller, f Filter) ([]*Referral, int, error) {
	if caller.UserID == uuid.Nil {
		return nil, 0, apperr.ErrUnauthenticated
	}
	f.Scope = ScopeFor(caller)
	return s.repo.List(ctx, f)
}

func (s *Service) Count(ctx context.Context, caller access.Caller, f Filter) (int, error) {
	if caller.UserID == uuid.Nil {
		return 0, apperr.ErrUnauthenticated
	}
	f.Scope = ScopeFor(caller)
	return s.repo.Count(ctx, f)
}

// CountByStatus is an unscoped tally for the admin statistics.
func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx, Scope{All: true})
}

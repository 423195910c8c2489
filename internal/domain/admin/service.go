package admin

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/afyalink/referral/internal/domain/access"
	"github.com/afyalink/referral/internal/domain/identity"
	"github.com/afyalink/referral/internal/platform/apperr"
)

// StaffDirectory checks that a staff record points at a real profile with a
// matching clinical role.
type StaffDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Profile, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]identity.Role, error)
}

type Service struct {
	facilities FacilityRepository
	staff      StaffRepository
	users      StaffDirectory
	log        zerolog.Logger
}

func NewService(facilities FacilityRepository, staff StaffRepository, users StaffDirectory, log zerolog.Logger) *Service {
	return &Service{facilities: facilities, staff: staff, users: users, log: log}
}

func (s *Service) CreateFacility(ctx context.Context, caller access.Caller, in FacilityInput) (*Facility, error) {
	if err := caller.Require(access.FacilityWrite); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	f := &Facility{}
	in.apply(f)
	if err := s.facilities.Create(ctx, f); err != nil {
		return nil, err
	}
	s.log.Info().Str("facility_id", f.ID.String()).Str("name", f.Name).Msg("facility created")
	return f, nil
}

func (s *Service) UpdateFacility(ctx context.Context, caller access.Caller, id uuid.UUID, in FacilityInput) (*Facility, error) {
	if err := caller.Require(access.FacilityWrite); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	f, err := s.facilities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(f)
	if err := s.facilities.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// GetFacility and ListFacilities are open to every authorized caller: doctors
// pick destinations from the directory.
func (s *Service) GetFacility(ctx context.Context, id uuid.UUID) (*Facility, error) {
	return s.facilities.GetByID(ctx, id)
}

func (s *Service) ListFacilities(ctx context.Context, f FacilityFilter) ([]*Facility, int, error) {
	return s.facilities.List(ctx, f)
}

func (s *Service) ListLevels(ctx context.Context) ([]*FacilityLevel, error) {
	return s.facilities.ListLevels(ctx)
}

// staffRoles maps each staff type to the role its holder must have.
var staffRoles = map[StaffType]identity.Role{
	StaffDoctor:        identity.RoleDoctor,
	StaffNurse:         identity.RoleNurse,
	StaffPharmacist:    identity.RolePharmacist,
	StaffLabTechnician: identity.RoleLabTechnician,
}

// RegisterStaff records a clinician's facility and licence details.
func (s *Service) RegisterStaff(ctx context.Context, caller access.Caller, in StaffInput) (*MedicalStaff, error) {
	if err := caller.Require(access.StaffManage); err != nil {
		return nil, err
	}
	ve := &apperr.ValidationError{}
	if in.UserID == uuid.Nil {
		ve.Add("user_id", "user_id is required")
	}
	if !in.StaffType.Valid() {
		ve.Add("staff_type", "staff_type must be doctor, nurse, pharmacist or lab_technician")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}
	roles, err := s.users.ListForUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if !(access.Caller{UserID: in.UserID, Roles: roles}).Has(staffRoles[in.StaffType]) {
		return nil, apperr.Validation("staff_type", "user does not hold the "+string(staffRoles[in.StaffType])+" role")
	}
	if in.FacilityID != nil {
		if _, err := s.facilities.GetByID(ctx, *in.FacilityID); err != nil {
			return nil, err
		}
	}

	ms := &MedicalStaff{
		UserID:        in.UserID,
		FacilityID:    in.FacilityID,
		LicenseNumber: in.LicenseNumber,
		Specialty:     in.Specialty,
		StaffType:     in.StaffType,
		Status:        "active",
	}
	if err := s.staff.Create(ctx, ms); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", in.UserID.String()).Str("staff_type", string(in.StaffType)).Msg("staff registered")
	return ms, nil
}

func (s *Service) ListStaff(ctx context.Context, caller access.Caller, f StaffFilter) ([]*MedicalStaff, error) {
	if err := caller.Require(access.StaffManage); err != nil {
		return nil, err
	}
	if f.FacilityID != nil {
		if _, err := s.facilities.GetByID(ctx, *f.FacilityID); err != nil {
			return nil, err
		}
	}
	return s.staff.List(ctx, f)
}

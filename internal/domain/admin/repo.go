package admin

import (
	"context"

	"github.com/google/uuid"
)

type FacilityRepository interface {
	Create(ctx context.Context, f *Facility) error
	Update(ctx context.Context, f *Facility) error
	GetByID(ctx context.Context, id uuid.UUID) (*Facility, error)
	List(ctx context.Context, f FacilityFilter) ([]*Facility, int, error)
	ListLevels(ctx context.Context) ([]*FacilityLevel, error)
}

type StaffRepository interface {
	Create(ctx context.Context, s *MedicalStaff) error
	List(ctx context.Context, f StaffFilter) ([]*MedicalStaff, error)
}

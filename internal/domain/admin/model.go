package admin

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/afyalink/referral/internal/platform/apperr"
)

// FacilityLevel is a tier of the care pyramid, e.g. level 2 dispensary up to
// level 6 national referral hospital.
type FacilityLevel struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Level       int       `db:"level" json:"level"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type FacilityStatus string

const (
	FacilityActive   FacilityStatus = "active"
	FacilityInactive FacilityStatus = "inactive"
)

type Facility struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Type      string         `db:"type" json:"type"`
	LevelID   *uuid.UUID     `db:"level_id" json:"level_id,omitempty"`
	Address   *string        `db:"address" json:"address,omitempty"`
	Phone     *string        `db:"phone" json:"phone,omitempty"`
	Email     *string        `db:"email" json:"email,omitempty"`
	Status    FacilityStatus `db:"status" json:"status"`
	Rating    *float64       `db:"rating" json:"rating,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// FacilityInput is the writable part of a facility.
type FacilityInput struct {
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	LevelID *uuid.UUID     `json:"level_id,omitempty"`
	Address *string        `json:"address,omitempty"`
	Phone   *string        `json:"phone,omitempty"`
	Email   *string        `json:"email,omitempty"`
	Status  FacilityStatus `json:"status,omitempty"`
	Rating  *float64       `json:"rating,omitempty"`
}

func (in *FacilityInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.TrimSpace(in.Type)
	if in.Status == "" {
		in.Status = FacilityActive
	}

	ve := &apperr.ValidationError{}
	if in.Name == "" {
		ve.Add("name", "name is required")
	}
	if in.Type == "" {
		ve.Add("type", "type is required")
	}
	if in.Status != FacilityActive && in.Status != FacilityInactive {
		ve.Add("status", "status must be active or inactive")
	}
	if in.Rating != nil && (*in.Rating < 0 || *in.Rating > 5) {
		ve.Add("rating", "rating must be between 0 and 5")
	}
	return ve.OrNil()
}

func (in FacilityInput) apply(f *Facility) {
	f.Name = in.Name
	f.Type = in.Type
	f.LevelID = in.LevelID
	f.Address = in.Address
	f.Phone = in.Phone
	f.Email = in.Email
	f.Status = in.Status
	f.Rating = in.Rating
}

type FacilityFilter struct {
	Search string
	Type   string
	Status FacilityStatus
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

type StaffType string

const (
	StaffDoctor        StaffType = "doctor"
	StaffNurse         StaffType = "nurse"
	StaffPharmacist    StaffType = "pharmacist"
	StaffLabTechnician StaffType = "lab_technician"
)

func (t StaffType) Valid() bool {
	switch t {
	case StaffDoctor, StaffNurse, StaffPharmacist, StaffLabTechnician:
		return true
	}
	return false
}

// MedicalStaff links a clinician's profile to a facility.
type MedicalStaff struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	FacilityID    *uuid.UUID `db:"facility_id" json:"facility_id,omitempty"`
	LicenseNumber *string    `db:"license_number" json:"license_number,omitempty"`
	Specialty     *string    `db:"specialty" json:"specialty,omitempty"`
	StaffType     StaffType  `db:"staff_type" json:"staff_type"`
	Status        string     `db:"status" json:"status"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

type StaffInput struct {
	UserID        uuid.UUID  `json:"user_id"`
	FacilityID    *uuid.UUID `json:"facility_id,omitempty"`
	LicenseNumber *string    `json:"license_number,omitempty"`
	Specialty     *string    `json:"specialty,omitempty"`
	StaffType     StaffType  `json:"staff_type"`
}

type StaffFilter struct {
	FacilityID *uuid.UUID
	Status     string
	From       time.Time
	To         time.Time
}

// Stats are the admin dashboard counters.
type Stats struct {
	TotalUsers        int            `json:"total_users"`
	PendingUsers      int            `json:"pending_users"`
	TotalReferrals    int            `json:"total_referrals"`
	PendingReferrals  int            `json:"pending_referrals"`
	TotalCodes        int            `json:"total_codes"`
	UsersByStatus     map[string]int `json:"users_by_status"`
	UsersByRole       map[string]int `json:"users_by_role"`
	ReferralsByStatus map[string]int `json:"referrals_by_status"`
	GeneratedAt       time.Time      `json:"generated_at"`
}

package referral

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// Terminal states have no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// Urgency is advisory; it orders and colours referrals but never affects
// which transitions are legal.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// Referral moves a patient from one facility to another. Facility names are
// free text and are not checked against the facility directory.
type Referral struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patient_id"`
	ReferringDoctorID uuid.UUID  `db:"referring_doctor_id" json:"referring_doctor_id"`
	AssignedDoctorID  *uuid.UUID `db:"assigned_doctor_id" json:"assigned_doctor_id,omitempty"`
	AssignedNurseID   *uuid.UUID `db:"assigned_nurse_id" json:"assigned_nurse_id,omitempty"`
	FacilityFrom      string     `db:"facility_from" json:"facility_from"`
	FacilityTo        string     `db:"facility_to" json:"facility_to"`
	Reason            string     `db:"reason" json:"reason"`
	Diagnosis         *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	Notes             *string    `db:"notes" json:"notes,omitempty"`
	Urgency           Urgency    `db:"urgency" json:"urgency"`
	Status            Status     `db:"status" json:"status"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

func (r *Referral) NurseIs(id uuid.UUID) bool {
	return r.AssignedNurseID != nil && *r.AssignedNurseID == id
}

func (r *Referral) DoctorIs(id uuid.UUID) bool {
	return r.AssignedDoctorID != nil && *r.AssignedDoctorID == id
}

type CreateRequest struct {
	PatientEmail string  `json:"patient_email"`
	FacilityFrom string  `json:"facility_from"`
	FacilityTo   string  `json:"facility_to"`
	Reason       string  `json:"reason"`
	Diagnosis    *string `json:"diagnosis,omitempty"`
	Notes        *string `json:"notes,omitempty"`
	Urgency      Urgency `json:"urgency"`
}

// Scope limits a listing to rows the caller is related to. Set conditions
// are OR-ed; All ignores the rest.
type Scope struct {
	All       bool
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	NurseID   *uuid.UUID
}

type Filter struct {
	Scope   Scope
	Status  Status
	Urgency Urgency
	Search  string
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}

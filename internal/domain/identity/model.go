package identity

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is an application role held through a role assignment.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleDoctor        Role = "doctor"
	RoleNurse         Role = "nurse"
	RolePatient       Role = "patient"
	RolePharmacist    Role = "pharmacist"
	RoleLabTechnician Role = "lab_technician"
)

// AllRoles lists every assignable role.
var AllRoles = []Role{RoleAdmin, RoleDoctor, RoleNurse, RolePatient, RolePharmacist, RoleLabTechnician}

func (r Role) Valid() bool {
	for _, v := range AllRoles {
		if r == v {
			return true
		}
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// RoleStrings converts roles for the auth context and JSON output.
func RoleStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// RolesFromStrings drops anything that is not a known role.
func RolesFromStrings(ss []string) []Role {
	out := make([]Role, 0, len(ss))
	for _, s := range ss {
		if r := Role(s); r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// Status is the account state of a profile. Only active profiles may use the
// application.
type Status string

const (
	StatusPending     Status = "pending"
	StatusActive      Status = "active"
	StatusSuspended   Status = "suspended"
	StatusDeactivated Status = "deactivated"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusSuspended, StatusDeactivated:
		return true
	}
	return false
}

type Profile struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"full_name"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Status       Status    `db:"status" json:"status"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Profile) IsActive() bool {
	return p.Status == StatusActive
}

type RoleAssignment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Account is a profile together with its roles.
type Account struct {
	Profile
	Roles []Role `json:"roles"`
}

// NormalizeEmail lower-cases and trims an address. Emails are unique
// regardless of case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail accepts a bare address such as "p@x.com".
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Email            string  `json:"email"`
	Password         string  `json:"password"`
	FullName         string  `json:"full_name"`
	Phone            *string `json:"phone,omitempty"`
	RegistrationCode string  `json:"registration_code,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ListFilter narrows profile listings.
type ListFilter struct {
	Status Status
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

package access

import "github.com/afyalink/referral/internal/domain/identity"

// Action names a guarded operation.
type Action string

const (
	ReferralCreate       Action = "referral:create"
	ReferralAssignNurse  Action = "referral:assign_nurse"
	ReferralTransition   Action = "referral:transition"
	ReferralAssignDoctor Action = "referral:assign_doctor"
	ReferralListAll      Action = "referral:list_all"

	CodeCreate     Action = "code:create"
	CodeDeactivate Action = "code:deactivate"
	CodeList       Action = "code:list"

	UserActivate    Action = "user:activate"
	UserListPending Action = "user:list_pending"

	FacilityWrite  Action = "facility:write"
	StaffManage    Action = "staff:manage"
	FeedbackReview Action = "feedback:review"
	FAQWrite       Action = "faq:write"
	StatsRead      Action = "stats:read"

	ReportReferrals  Action = "report:referrals"
	ReportFacilities Action = "report:facilities"
	ReportStaff      Action = "report:staff"
	ReportUsers      Action = "report:users"
)

var (
	adminOnly = []identity.Role{identity.RoleAdmin}
	clinical  = []identity.Role{identity.RoleAdmin, identity.RoleDoctor, identity.RoleNurse, identity.RolePatient}
)

// permissions maps each action to the roles allowed to attempt it. Ownership
// and state checks happen later, in the owning service.
var permissions = map[Action][]identity.Role{
	ReferralCreate:       {identity.RoleDoctor},
	ReferralAssignNurse:  {identity.RoleNurse},
	ReferralTransition:   {identity.RoleNurse},
	ReferralAssignDoctor: {identity.RoleDoctor},
	ReferralListAll:      adminOnly,

	CodeCreate:     adminOnly,
	CodeDeactivate: adminOnly,
	CodeList:       adminOnly,

	UserActivate:    adminOnly,
	UserListPending: adminOnly,

	FacilityWrite:  adminOnly,
	StaffManage:    adminOnly,
	FeedbackReview: adminOnly,
	FAQWrite:       adminOnly,
	StatsRead:      adminOnly,

	ReportReferrals:  clinical,
	ReportFacilities: adminOnly,
	ReportStaff:      adminOnly,
	ReportUsers:      adminOnly,
}

// Authorize reports whether any of roles may attempt action. Unknown actions
// are denied.
func Authorize(roles []identity.Role, action Action) bool {
	for _, allowed := range permissions[action] {
		for _, r := range roles {
			if r == allowed {
				return true
			}
		}
	}
	return false
}

// RolesFor returns the roles permitted to attempt action.
func RolesFor(action Action) []identity.Role {
	return append([]identity.Role(nil), permissions[action]...)
}

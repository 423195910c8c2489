package identity

import (
	"context"
	"strings"

	"github.com/afyalink/referral/internal/platform/apperr"
	"github.com/afyalink/referral/internal/platform/auth"
	"github.com/afyalink/referral/internal/platform/reporting"
)

// UsersReport exports accounts created in the report period. Admin only.
type UsersReport struct {
	svc *Service
}

func NewUsersReport(svc *Service) *UsersReport {
	return &UsersReport{svc: svc}
}

func (r *UsersReport) Columns() []string {
	return []string{"ID", "Email", "Full Name", "Status", "Roles", "Created"}
}

func (r *UsersReport) Records(ctx context.Context, q reporting.Query) ([]reporting.Record, error) {
	if !auth.HasAnyRole(auth.RolesFromContext(ctx), string(RoleAdmin)) {
		return nil, apperr.New(apperr.ErrForbidden, "users report requires the admin role")
	}
	f := ListFilter{From: q.Start, To: q.End}
	if q.HasStatus() {
		f.Status = Status(q.Status)
	}
	accts, _, err := r.svc.ListAccounts(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]reporting.Record, 0, len(accts))
	for _, a := range accts {
		out = append(out, reporting.Record{
			a.ID.String(),
			a.Email,
			a.FullName,
			string(a.Status),
			strings.Join(RoleStrings(a.Roles), ", "),
			reporting.FormatTime(a.CreatedAt),
		})
	}
	return out, nil
}

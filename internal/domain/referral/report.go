package referral

import (
	"context"

	"github.com/afyalink/referral/internal/domain/access"
	"github.com/afyalink/referral/internal/platform/apperr"
	"github.com/afyalink/referral/internal/platform/reporting"
)

// Report exports referrals created in the period. Each caller sees the same
// rows their referral list would show.
type Report struct {
	svc *Service
}

func NewReport(svc *Service) *Report {
	return &Report{svc: svc}
}

func (r *Report) Columns() []string {
	return []string{"ID", "Status", "Facility From", "Facility To", "Urgency", "Reason", "Created"}
}

func (r *Report) Records(ctx context.Context, q reporting.Query) ([]reporting.Record, error) {
	caller, err := access.MustCaller(ctx)
	if err != nil {
		return nil, err
	}
	if err := caller.Require(access.ReportReferrals); err != nil {
		return nil, err
	}
	f := Filter{From: q.Start, To: q.End}
	if q.HasStatus() {
		f.Status = Status(q.Status)
		if !f.Status.Valid() {
			return nil, apperr.Validation("status", "unknown status "+q.Status)
		}
	}
	refs, _, err := r.svc.List(ctx, caller, f)
	if err != nil {
		return nil, err
	}
	out := make([]reporting.Record, 0, len(refs))
	for _, ref := range refs {
		out = append(out, reporting.Record{
			ref.ID.String(),
			string(ref.Status),
			ref.FacilityFrom,
			ref.FacilityTo,
			string(ref.Urgency),
			ref.Reason,
			reporting.FormatTime(ref.CreatedAt),
		})
	}
	return out, nil
}

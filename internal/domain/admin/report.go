package admin

import (
	"context"
	"strconv"

	"github.com/afyalink/referral/internal/domain/access"
	"github.com/afyalink/referral/internal/platform/reporting"
)

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FacilitiesReport exports facilities registered in the period. The status
// filter matches the facility status.
type FacilitiesReport struct {
	svc *Service
}

func NewFacilitiesReport(svc *Service) *FacilitiesReport {
	return &FacilitiesReport{svc: svc}
}

func (r *FacilitiesReport) Columns() []string {
	return []string{"ID", "Name", "Type", "Status", "Phone", "Email", "Rating", "Created"}
}

func (r *FacilitiesReport) Records(ctx context.Context, q reporting.Query) ([]reporting.Record, error) {
	caller, err := access.MustCaller(ctx)
	if err != nil {
		return nil, err
	}
	if err := caller.Require(access.ReportFacilities); err != nil {
		return nil, err
	}
	f := FacilityFilter{From: q.Start, To: q.End}
	if q.HasStatus() {
		f.Status = FacilityStatus(q.Status)
	}
	items, _, err := r.svc.ListFacilities(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]reporting.Record, 0, len(items))
	for _, fac := range items {
		rating := ""
		if fac.Rating != nil {
			rating = strconv.FormatFloat(*fac.Rating, 'f', 1, 64)
		}
		out = append(out, reporting.Record{
			fac.ID.String(),
			fac.Name,
			fac.Type,
			string(fac.Status),
			optional(fac.Phone),
			optional(fac.Email),
			rating,
			reporting.FormatTime(fac.CreatedAt),
		})
	}
	return out, nil
}

// StaffReport exports staff records created in the period.
type StaffReport struct {
	svc *Service
}

func NewStaffReport(svc *Service) *StaffReport {
	return &StaffReport{svc: svc}
}

func (r *StaffReport) Columns() []string {
	return []string{"ID", "User ID", "Staff Type", "Specialty", "License Number", "Status", "Created"}
}

func (r *StaffReport) Records(ctx context.Context, q reporting.Query) ([]reporting.Record, error) {
	caller, err := access.MustCaller(ctx)
	if err != nil {
		return nil, err
	}
	if err := caller.Require(access.ReportStaff); err != nil {
		return nil, err
	}
	f := StaffFilter{From: q.Start, To: q.End}
	if q.HasStatus() {
		f.Status = q.Status
	}
	staff, err := r.svc.ListStaff(ctx, caller, f)
	if err != nil {
		return nil, err
	}
	out := make([]reporting.Record, 0, len(staff))
	for _, s := range staff {
		out = append(out, reporting.Record{
			s.ID.String(),
			s.UserID.String(),
			string(s.StaffType),
			optional(s.Specialty),
			optional(s.LicenseNumber),
			s.Status,
			reporting.FormatTime(s.CreatedAt),
		})
	}
	return out, nil
}

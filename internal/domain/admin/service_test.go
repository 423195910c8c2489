package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/afyalink/referral/internal/domain/access"
	"github.com/afyalink/referral/internal/domain/identity"
	"github.com/afyalink/referral/internal/platform/apperr"
)

func TestCreateFacility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	fac, err := f.svc.CreateFacility(ctx, f.admin, FacilityInput{Name: " Kenyatta National Hospital ", Type: "hospital"})
	if err != nil {
		t.Fatalf("CreateFacility: %v", err)
	}
	if fac.Name != "Kenyatta National Hospital" {
		t.Errorf("expected trimmed name, got %q", fac.Name)
	}
	if fac.Status != FacilityActive {
		t.Errorf("expected default status active, got %s", fac.Status)
	}

	doctor := f.user(identity.StatusActive, identity.RoleDoctor)
	if _, err := f.svc.CreateFacility(ctx, doctor, FacilityInput{Name: "X", Type: "clinic"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden for doctor, got %v", err)
	}
}

func TestCreateFacility_Validation(t *testing.T) {
	f := newFixture()
	rating := 7.0
	_, err := f.svc.CreateFacility(context.Background(), f.admin, FacilityInput{Status: "closed", Rating: &rating})

	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"name", "type", "status", "rating"} {
		if _, ok := ve.Fields[field]; !ok {
			t.Errorf("expected problem on %s", field)
		}
	}
}

func TestUpdateFacility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	fac, _ := f.svc.CreateFacility(ctx, f.admin, FacilityInput{Name: "Old", Type: "clinic"})

	got, err := f.svc.UpdateFacility(ctx, f.admin, fac.ID, FacilityInput{Name: "New", Type: "clinic", Status: FacilityInactive})
	if err != nil {
		t.Fatalf("UpdateFacility: %v", err)
	}
	if got.Name != "New" || got.Status != FacilityInactive {
		t.Errorf("unexpected facility %+v", got)
	}

	if _, err := f.svc.UpdateFacility(ctx, f.admin, uuid.New(), FacilityInput{Name: "N", Type: "t"}); !errors.Is(err, ErrFacilityNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListFacilities_Search(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for _, name := range []string{"Moi Teaching", "Kisumu County", "Moi Referral"} {
		if _, err := f.svc.CreateFacility(ctx, f.admin, FacilityInput{Name: name, Type: "hospital"}); err != nil {
			t.Fatal(err)
		}
	}
	items, total, err := f.svc.ListFacilities(ctx, FacilityFilter{Search: "moi"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("expected 2 matches, got %d", total)
	}
}

func TestRegisterStaff(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	fac, _ := f.svc.CreateFacility(ctx, f.admin, FacilityInput{Name: "Moi", Type: "hospital"})
	nurse := f.user(identity.StatusActive, identity.RoleNurse)
	patient := f.user(identity.StatusActive, identity.RolePatient)

	ms, err := f.svc.RegisterStaff(ctx, f.admin, StaffInput{UserID: nurse.UserID, FacilityID: &fac.ID, StaffType: StaffNurse})
	if err != nil {
		t.Fatalf("RegisterStaff: %v", err)
	}
	if ms.Status != "active" {
		t.Errorf("expected active staff, got %s", ms.Status)
	}

	_, err = f.svc.RegisterStaff(ctx, f.admin, StaffInput{UserID: nurse.UserID, StaffType: StaffNurse})
	if !errors.Is(err, ErrStaffExists) {
		t.Errorf("expected ErrStaffExists, got %v", err)
	}

	_, err = f.svc.RegisterStaff(ctx, f.admin, StaffInput{UserID: patient.UserID, StaffType: StaffDoctor})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected role mismatch validation, got %v", err)
	}

	missing := uuid.New()
	_, err = f.svc.RegisterStaff(ctx, f.admin, StaffInput{UserID: nurse.UserID, FacilityID: &missing, StaffType: StaffNurse})
	if !errors.Is(err, ErrFacilityNotFound) {
		t.Errorf("expected ErrFacilityNotFound, got %v", err)
	}

	_, err = f.svc.RegisterStaff(ctx, nurse, StaffInput{UserID: nurse.UserID, StaffType: StaffNurse})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}

	staff, err := f.svc.ListStaff(ctx, f.admin, StaffFilter{FacilityID: &fac.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(staff) != 1 {
		t.Errorf("expected 1 staff member, got %d", len(staff))
	}
}

func TestListStaff_AdminOnly(t *testing.T) {
	f := newFixture()
	_, err := f.svc.ListStaff(context.Background(), access.Caller{UserID: uuid.New()}, StaffFilter{})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

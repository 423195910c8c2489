package feedback

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/afyalink/referral/internal/domain/access"
	"github.com/afyalink/referral/internal/domain/identity"
	"github.com/afyalink/referral/internal/platform/apperr"
)

type mockRepo struct {
	items map[uuid.UUID]*Feedback
}

func (m *mockRepo) Create(_ context.Context, f *Feedback) error {
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt
	cp := *f
	m.items[f.ID] = &cp
	return nil
}

func (m *mockRepo) SetStatus(_ context.Context, id uuid.UUID, s Status) (*Feedback, error) {
	f, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	f.Status = s
	cp := *f
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, f Filter) ([]*Feedback, int, error) {
	var out []*Feedback
	for _, fb := range m.items {
		if f.Status != "" && fb.Status != f.Status {
			continue
		}
		if f.Category != "" && fb.Category != f.Category {
			continue
		}
		out = append(out, fb)
	}
	return out, len(out), nil
}

func newTestService() *Service {
	return NewService(&mockRepo{items: make(map[uuid.UUID]*Feedback)}, zerolog.Nop())
}

var (
	patient = access.Caller{UserID: uuid.New(), Roles: []identity.Role{identity.RolePatient}}
	admin   = access.Caller{UserID: uuid.New(), Roles: []identity.Role{identity.RoleAdmin}}
)

func TestSubmit(t *testing.T) {
	svc := newTestService()
	fb, err := svc.Submit(context.Background(), patient, SubmitRequest{Subject: " Slow ", Message: "Pages load slowly"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if fb.Subject != "Slow" || fb.Category != CategoryGeneral || fb.Status != StatusOpen {
		t.Errorf("unexpected feedback %+v", fb)
	}
	if fb.UserID != patient.UserID {
		t.Error("feedback must belong to the caller")
	}
}

func TestSubmit_Validation(t *testing.T) {
	svc := newTestService()
	_, err := svc.Submit(context.Background(), patient, SubmitRequest{Category: "rant"})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(ve.Fields) != 3 {
		t.Errorf("expected 3 field problems, got %v", ve.Fields)
	}

	if _, err := svc.Submit(context.Background(), access.Caller{}, SubmitRequest{Subject: "s", Message: "m"}); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("expected unauthenticated, got %v", err)
	}
}

func TestReview(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	fb, _ := svc.Submit(ctx, patient, SubmitRequest{Subject: "Bug", Message: "Crash", Category: CategoryBug})

	if _, _, err := svc.List(ctx, patient, Filter{}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("patients cannot review feedback, got %v", err)
	}

	got, err := svc.SetStatus(ctx, admin, fb.ID, StatusResolved)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if got.Status != StatusResolved {
		t.Errorf("expected resolved, got %s", got.Status)
	}
	if _, err := svc.SetStatus(ctx, admin, fb.ID, "closed"); err == nil {
		t.Error("expected error for unknown status")
	}
	if _, err := svc.SetStatus(ctx, admin, uuid.New(), StatusReviewed); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	items, total, err := svc.List(ctx, admin, Filter{Status: StatusResolved})
	if err != nil || total != 1 || len(items) != 1 {
		t.Errorf("expected 1 resolved item, got %d (%v)", total, err)
	}
}

func TestHandler_Submit(t *testing.T) {
	h := NewHandler(newTestService())
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feedback", strings.NewReader(`{"subject":"Hi","message":"Thanks","category":"feature"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(access.WithCaller(req.Context(), patient))
	rec := httptest.NewRecorder()

	if err := h.Submit(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

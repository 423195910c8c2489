package referral

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/afyalink/referral/internal/domain/access"
	"github.com/afyalink/referral/internal/platform/apperr"
	"github.com/afyalink/referral/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/referrals")
	g.GET("", h.List)
	g.POST("", h.Create, access.Require(access.ReferralCreate))
	g.GET("/:id", h.Get)
	g.POST("/:id/assign", h.AssignNurse, access.Require(access.ReferralAssignNurse))
	g.POST("/:id/status", h.Transition, access.Require(access.ReferralTransition))
	g.POST("/:id/assign-doctor", h.AssignDoctor, access.Require(access.ReferralAssignDoctor))
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.HTTP(apperr.Validation("id", "invalid referral id"))
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ref, err := h.svc.Create(c.Request().Context(), caller, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, ref)
}

func (h *Handler) Get(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ref, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, ref)
}

func parseDate(c echo.Context, name string) (time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, apperr.HTTP(apperr.Validation(name, name+" must be YYYY-MM-DD"))
	}
	return t, nil
}

func (h *Handler) List(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	pg := pagination.FromContext(c)
	f := Filter{
		Status:  Status(c.QueryParam("status")),
		Urgency: Urgency(c.QueryParam("urgency")),
		Search:  c.QueryParam("search"),
		Limit:   pg.Limit,
		Offset:  pg.Offset,
	}
	if f.Status != "" && !f.Status.Valid() {
		return apperr.HTTP(apperr.Validation("status", "unknown status"))
	}
	if f.Urgency != "" && !f.Urgency.Valid() {
		return apperr.HTTP(apperr.Validation("urgency", "unknown urgency"))
	}
	if f.From, err = parseDate(c, "from"); err != nil {
		return err
	}
	if f.To, err = parseDate(c, "to"); err != nil {
		return err
	}
	if !f.To.IsZero() {
		f.To = f.To.Add(24*time.Hour - time.Nanosecond)
	}

	items, total, err := h.svc.List(c.Request().Context(), caller, f)
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*Referral{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) AssignNurse(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ref, err := h.svc.AssignNurse(c.Request().Context(), caller, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, ref)
}

type transitionRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) Transition(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ref, err := h.svc.Transition(c.Request().Context(), caller, id, req.Status)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, ref)
}

type assignDoctorRequest struct {
	DoctorID uuid.UUID `json:"doctor_id"`
}

func (h *Handler) AssignDoctor(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req assignDoctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DoctorID == uuid.Nil {
		return apperr.HTTP(apperr.Validation("doctor_id", "doctor_id is required"))
	}
	ref, err := h.svc.AssignDoctor(c.Request().Context(), caller, id, req.DoctorID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, ref)
}

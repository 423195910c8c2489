package admin

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/afyalink/referral/internal/domain/access"
	"github.com/afyalink/referral/internal/platform/apperr"
	"github.com/afyalink/referral/pkg/pagination"
)

type Handler struct {
	svc   *Service
	stats *StatsService
}

func NewHandler(svc *Service, stats *StatsService) *Handler {
	return &Handler{svc: svc, stats: stats}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/facilities", h.ListFacilities)
	api.GET("/facilities/:id", h.GetFacility)
	api.POST("/facilities", h.CreateFacility, access.Require(access.FacilityWrite))
	api.PUT("/facilities/:id", h.UpdateFacility, access.Require(access.FacilityWrite))
	api.GET("/facility-levels", h.ListLevels)

	api.GET("/staff", h.ListStaff, access.Require(access.StaffManage))
	api.POST("/staff", h.RegisterStaff, access.Require(access.StaffManage))

	api.GET("/admin/stats", h.Stats, access.Require(access.StatsRead))
	api.POST("/admin/stats/refresh", h.RefreshStats, access.Require(access.StatsRead))
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.HTTP(apperr.Validation("id", "invalid id"))
	}
	return id, nil
}

func (h *Handler) ListFacilities(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListFacilities(c.Request().Context(), FacilityFilter{
		Search: c.QueryParam("search"),
		Type:   c.QueryParam("type"),
		Status: FacilityStatus(c.QueryParam("status")),
		Limit:  pg.Limit,
		Offset: pg.Offset,
	})
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*Facility{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetFacility(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	f, err := h.svc.GetFacility(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) CreateFacility(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	var in FacilityInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.CreateFacility(c.Request().Context(), caller, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) UpdateFacility(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in FacilityInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.UpdateFacility(c.Request().Context(), caller, id, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) ListLevels(c echo.Context) error {
	levels, err := h.svc.ListLevels(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	if levels == nil {
		levels = []*FacilityLevel{}
	}
	return c.JSON(http.StatusOK, levels)
}

func (h *Handler) ListStaff(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	var f StaffFilter
	if v := c.QueryParam("facility_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.HTTP(apperr.Validation("facility_id", "invalid facility_id"))
		}
		f.FacilityID = &id
	}
	f.Status = c.QueryParam("status")
	staff, err := h.svc.ListStaff(c.Request().Context(), caller, f)
	if err != nil {
		return apperr.HTTP(err)
	}
	if staff == nil {
		staff = []*MedicalStaff{}
	}
	return c.JSON(http.StatusOK, staff)
}

func (h *Handler) RegisterStaff(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	var in StaffInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ms, err := h.svc.RegisterStaff(c.Request().Context(), caller, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, ms)
}

func (h *Handler) Stats(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	st, err := h.stats.Get(c.Request().Context(), caller)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, st)
}

// RefreshStats drops the cached counters and returns freshly computed ones.
func (h *Handler) RefreshStats(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	if err := caller.Require(access.StatsRead); err != nil {
		return apperr.HTTP(err)
	}
	h.stats.Invalidate(c.Request().Context())
	st, err := h.stats.Get(c.Request().Context(), caller)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, st)
}

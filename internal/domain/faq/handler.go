package faq

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/afyalink/referral/internal/domain/access"
	"github.com/afyalink/referral/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes mounts the read side, which needs no session.
func (h *Handler) RegisterPublicRoutes(api *echo.Group) {
	api.GET("/faqs", h.List)
	api.GET("/faqs/categories", h.Categories)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/admin/faqs", h.ListAll, access.Require(access.FAQWrite))
	api.POST("/faqs", h.Create, access.Require(access.FAQWrite))
	api.PUT("/faqs/:id", h.Update, access.Require(access.FAQWrite))
}

func filterFrom(c echo.Context) Filter {
	return Filter{Category: c.QueryParam("category"), Search: c.QueryParam("search")}
}

func (h *Handler) List(c echo.Context) error {
	items, err := h.svc.Published(c.Request().Context(), filterFrom(c))
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*FAQ{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Categories(c echo.Context) error {
	cats, err := h.svc.Categories(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *Handler) ListAll(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	items, err := h.svc.ListAll(c.Request().Context(), caller, filterFrom(c))
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*FAQ{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Create(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.Create(c.Request().Context(), caller, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) Update(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.HTTP(apperr.Validation("id", "invalid id"))
	}
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.Update(c.Request().Context(), caller, id, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, f)
}

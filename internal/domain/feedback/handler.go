package feedback

import (
	"net/http"

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
	g := api.Group("/feedback")
	g.POST("", h.Submit)
	g.GET("", h.List, access.Require(access.FeedbackReview))
	g.PATCH("/:id", h.SetStatus, access.Require(access.FeedbackReview))
}

func (h *Handler) Submit(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	fb, err := h.svc.Submit(c.Request().Context(), caller, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, fb)
}

func (h *Handler) List(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), caller, Filter{
		Status:   Status(c.QueryParam("status")),
		Category: Category(c.QueryParam("category")),
		Limit:    pg.Limit,
		Offset:   pg.Offset,
	})
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*Feedback{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type statusRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) SetStatus(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.HTTP(apperr.Validation("id", "invalid id"))
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	fb, err := h.svc.SetStatus(c.Request().Context(), caller, id, req.Status)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, fb)
}

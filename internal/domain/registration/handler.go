package registration

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

// RegisterRoutes mounts the admin endpoints on the gated group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	codes := api.Group("/registration-codes")
	codes.GET("", h.List, access.Require(access.CodeList))
	codes.POST("", h.Create, access.Require(access.CodeCreate))
	codes.POST("/:id/deactivate", h.Deactivate, access.Require(access.CodeDeactivate))

	users := api.Group("/users")
	users.GET("/pending", h.ListPending, access.Require(access.UserListPending))
	users.POST("/:id/activate", h.Activate, access.Require(access.UserActivate))
}

// RegisterSessionRoutes mounts redemption outside the gate. Pending users
// must be able to redeem a code before an admin approves them.
func (h *Handler) RegisterSessionRoutes(api *echo.Group) {
	api.POST("/registration-codes/redeem", h.Redeem)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.HTTP(apperr.Validation("id", "invalid id"))
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
	code, err := h.svc.Create(c.Request().Context(), caller, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, code)
}

func (h *Handler) List(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), caller, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	if items == nil {
		items = []*Code{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Deactivate(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	code, err := h.svc.Deactivate(c.Request().Context(), caller, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, code)
}

type redeemRequest struct {
	Code string `json:"code"`
}

func (h *Handler) Redeem(c echo.Context) error {
	sess := access.SessionFromContext(c)
	if sess == nil {
		return apperr.HTTP(apperr.ErrUnauthenticated)
	}
	var req redeemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.svc.RedeemExisting(c.Request().Context(), sess.UserID, req.Code)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, acct)
}

func (h *Handler) ListPending(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	users, err := h.svc.ListPending(c.Request().Context(), caller)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) Activate(c echo.Context) error {
	caller, err := access.MustCaller(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req ActivateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.svc.ActivateUser(c.Request().Context(), caller, id, req.Role)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, acct)
}

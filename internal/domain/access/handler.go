package access

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/afyalink/referral/internal/platform/apperr"
)

type Handler struct {
	gate *Gate
}

func NewHandler(gate *Gate) *Handler {
	return &Handler{gate: gate}
}

// RegisterRoutes mounts /me outside the gate middleware: it reports the
// decision itself, including PendingApproval, instead of failing on it.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/me", h.Me)
}

type meResponse struct {
	Decision
	Dashboard DashboardKind `json:"dashboard,omitempty"`
}

func (h *Handler) Me(c echo.Context) error {
	d, err := h.gate.Resolve(c.Request().Context(), SessionFromContext(c))
	if err != nil {
		return apperr.HTTP(err)
	}
	resp := meResponse{Decision: d}
	switch d.Kind {
	case Unauthenticated:
		return apperr.HTTP(apperr.ErrUnauthenticated)
	case Authorized:
		resp.Dashboard = SelectDashboard(d.Roles)
	}
	return c.JSON(http.StatusOK, resp)
}

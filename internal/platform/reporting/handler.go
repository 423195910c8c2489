package reporting

import (
	"bytes"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/afyalink/referral/internal/platform/apperr"
	"github.com/afyalink/referral/internal/platform/auth"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type registered struct {
	src   Source
	roles []string
}

// Handler serves GET /reports and GET /reports/:type.
type Handler struct {
	sources map[string]registered
	now     func() time.Time
}

func NewHandler() *Handler {
	return &Handler{sources: make(map[string]registered), now: time.Now}
}

// Register makes src available as report type name to callers holding any of
// roles. With no roles the type is open to every caller.
func (h *Handler) Register(name string, src Source, roles ...string) *Handler {
	h.sources[name] = registered{src: src, roles: roles}
	return h
}

// Types lists the registered report types.
func (h *Handler) Types() []string {
	out := make([]string, 0, len(h.sources))
	for k := range h.sources {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// TypesFor lists the report types a caller holding roles may export.
func (h *Handler) TypesFor(roles []string) []string {
	out := make([]string, 0, len(h.sources))
	for k, r := range h.sources {
		if r.allows(roles) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (r registered) allows(roles []string) bool {
	return len(r.roles) == 0 || auth.HasAnyRole(roles, r.roles...)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/reports", h.ListTypes)
	api.GET("/reports/:type", h.Export)
}

func (h *Handler) ListTypes(c echo.Context) error {
	roles := auth.RolesFromContext(c.Request().Context())
	return c.JSON(http.StatusOK, map[string][]string{"types": h.TypesFor(roles)})
}

func (h *Handler) Export(c echo.Context) error {
	reportType := c.Param("type")
	reg, ok := h.sources[reportType]
	if !ok {
		return apperr.HTTP(apperr.New(apperr.ErrNotFound, "unknown report type "+reportType))
	}
	if !reg.allows(auth.RolesFromContext(c.Request().Context())) {
		return apperr.HTTP(apperr.New(apperr.ErrForbidden, "report "+reportType+" not permitted"))
	}

	q, err := ParseQuery(c.QueryParam("start"), c.QueryParam("end"), c.QueryParam("status"))
	if err != nil {
		return apperr.HTTP(err)
	}

	format := c.QueryParam("format")
	if format == "" {
		format = "txt"
	}
	if format != "txt" && format != "xlsx" {
		return apperr.HTTP(apperr.Validation("format", "format must be txt or xlsx"))
	}

	rep, err := Build(c.Request().Context(), reportType, reg.src, q, h.now())
	if err != nil {
		return apperr.HTTP(err)
	}

	var buf bytes.Buffer
	contentType := echo.MIMETextPlainCharsetUTF8
	if format == "xlsx" {
		contentType = xlsxContentType
		err = WriteXLSX(&buf, rep)
	} else {
		err = WriteText(&buf, rep)
	}
	if err != nil {
		return apperr.HTTP(err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+rep.Filename(format)+`"`)
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}

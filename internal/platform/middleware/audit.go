package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/afyalink/referral/internal/platform/auth"
)

// AuditEntry describes one access to patient-bearing data.
type AuditEntry struct {
	Timestamp  time.Time
	RequestID  string
	UserID     string
	UserEmail  string
	UserRoles  []string
	Resource   string
	ResourceID string
	Action     string
	Method     string
	Path       string
	IPAddress  string
	StatusCode int
}

// auditedResources are the /api/v1 collections whose access is recorded.
var auditedResources = map[string]bool{
	"referrals": true,
	"users":     true,
	"reports":   true,
	"feedback":  true,
	"me":        true,
	"account":   true,
}

// Audit emits one structured "data_access" log line per request that touches
// referral or account data. Other paths pass through untouched.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			resource, resourceID := splitResource(req.URL.Path)
			if !auditedResources[resource] {
				return next(c)
			}

			err := next(c)

			ctx := c.Request().Context()
			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				UserID:     auth.UserIDFromContext(ctx),
				UserEmail:  auth.EmailFromContext(ctx),
				UserRoles:  auth.RolesFromContext(ctx),
				Resource:   resource,
				ResourceID: resourceID,
				Action:     httpMethodToAction(req.Method),
				Method:     req.Method,
				Path:       req.URL.Path,
				IPAddress:  c.RealIP(),
				StatusCode: responseStatus(c, err),
			}
			entry.RequestID, _ = c.Get("request_id").(string)

			evt := logger.Info()
			if entry.StatusCode == http.StatusForbidden || entry.StatusCode == http.StatusUnauthorized {
				evt = logger.Warn()
			}
			evt.
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("user_email", entry.UserEmail).
				Strs("user_roles", entry.UserRoles).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Time("at", entry.Timestamp).
				Msg("data_access")

			return err
		}
	}
}

func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return http.StatusInternalServerError
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// splitResource returns the collection and, when present and UUID-shaped, the
// record id of an /api/v1 path:
//
//	/api/v1/referrals/<uuid>/status -> ("referrals", "<uuid>")
//	/api/v1/reports/referrals       -> ("reports", "")
func splitResource(path string) (string, string) {
	rest, ok := strings.CutPrefix(path, "/api/v1/")
	if !ok {
		return "", ""
	}
	segs := strings.Split(rest, "/")
	resource := segs[0]
	if len(segs) > 1 {
		if _, err := uuid.Parse(segs[1]); err == nil {
			return resource, segs[1]
		}
	}
	return resource, ""
}

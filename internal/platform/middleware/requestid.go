package middleware

import (
	"regexp"

	"github.com/labstack/echo/v4"

	"github.com/afyalink/referral/internal/platform/ids"
)

const RequestIDHeader = "X-Request-ID"

// inbound ids are echoed back only when they look harmless in logs.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID assigns every request a ULID unless the client supplied a usable
// X-Request-ID, and exposes it as c.Get("request_id") and a response header.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(RequestIDHeader)
			if !requestIDPattern.MatchString(rid) {
				rid = ids.New()
			}
			c.Set("request_id", rid)
			c.Response().Header().Set(RequestIDHeader, rid)
			return next(c)
		}
	}
}

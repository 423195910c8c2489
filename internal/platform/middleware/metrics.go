package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/afyalink/referral/internal/platform/metrics"
)

// Metrics records request counts and latency by matched route, so path
// parameters do not explode label cardinality.
func Metrics(col *metrics.Collector) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if col == nil || c.Path() == "/metrics" {
				return next(c)
			}
			col.InFlight.Inc()
			defer col.InFlight.Dec()

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !c.Response().Committed {
					status = 500
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			col.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			col.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

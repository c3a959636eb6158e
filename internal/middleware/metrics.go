package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/metrics"
)

// Metrics records in-flight, count and latency per route template.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			done := metrics.RequestStarted()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				// The error handler has not written yet.
				status = statusOf(err)
			}
			done(c.Request().Method, c.Path(), status)
			return err
		}
	}
}

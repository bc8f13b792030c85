package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/teaqnet/access-api/internal/metrics"
)

// Metrics records request counts and latency per registered route.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			if err != nil {
				// the error handler has not run yet
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = HTTPStatus(err)
				}
			}

			method := c.Request().Method
			metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

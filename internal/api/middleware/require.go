package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
)

// Require enforces a capability. It must run after Auth. The account is
// re-read on every request, so role changes apply to open sessions.
func Require(guard ports.Authorizer, capability domain.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, ok := SessionFrom(c)
			if !ok {
				return domain.ErrSessionInvalid
			}

			p, err := guard.Authorize(c.Request().Context(), sess, capability)
			if err != nil {
				return err
			}

			c.Set(principalKey, p)
			return next(c)
		}
	}
}

package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
)

// Auth validates the request's token and injects the session into context.
// Requests without a live session fail with domain.ErrSessionInvalid.
func Auth(sessions ports.SessionManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := TokenFromRequest(c.Request())
			if token == "" {
				return domain.ErrSessionInvalid
			}

			sess, err := sessions.Validate(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(sessionKey, sess)
			c.Set(tokenKey, token)
			return next(c)
		}
	}
}

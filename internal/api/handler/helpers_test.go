package handler

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/teaqnet/access-api/internal/core/domain"
)

func asDomainError(err error, target **domain.Error) bool {
	return errors.As(err, target)
}

// withPrincipal runs the handler the way middleware.Require would leave the
// context.
func withPrincipal(acc *domain.Account, h echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set("principal", &domain.Principal{Account: acc, Session: domain.Session{ID: "s1", AccountID: acc.ID}})
		return h(c)
	}
}

package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/teaqnet/access-api/internal/api/middleware"
	"github.com/teaqnet/access-api/internal/core/domain"
)

// principal returns the caller resolved by middleware.Require. A missing
// principal means the route was registered without it, so fail closed.
func principal(c echo.Context) (*domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return nil, domain.ErrSessionInvalid
	}
	return p, nil
}

// trimmer is implemented by requests whose fields are cleaned up before
// validation.
type trimmer interface {
	trim()
}

// bindAndValidate decodes the body into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.Invalid("", "invalid payload")
	}
	if t, ok := req.(trimmer); ok {
		t.trim()
	}
	return c.Validate(req)
}

package middleware

import (
	"errors"
	"net/http"

	"github.com/teaqnet/access-api/internal/core/domain"
)

// HTTPStatus maps an error kind to its response status. Unknown errors are
// 500.
func HTTPStatus(err error) int {
	var he interface{ StatusCode() int }
	switch {
	case errors.Is(err, domain.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &he):
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

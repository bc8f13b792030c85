package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/teaqnet/access-api/internal/core/domain"
)

const (
	// SessionCookie carries the token for browser clients.
	SessionCookie = "session"

	sessionKey   = "session"
	tokenKey     = "token"
	principalKey = "principal"
)

// TokenFromRequest returns the bearer token, falling back to the session
// cookie. It returns "" when neither is present or the header is malformed.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get(echo.HeaderAuthorization); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	if ck, err := r.Cookie(SessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

// SessionFrom returns the session set by Auth.
func SessionFrom(c echo.Context) (domain.Session, bool) {
	s, ok := c.Get(sessionKey).(domain.Session)
	return s, ok
}

// TokenFrom returns the raw token validated by Auth.
func TokenFrom(c echo.Context) string {
	t, _ := c.Get(tokenKey).(string)
	return t
}

// PrincipalFrom returns the principal set by Require.
func PrincipalFrom(c echo.Context) (*domain.Principal, bool) {
	p, ok := c.Get(principalKey).(*domain.Principal)
	return p, ok && p != nil
}

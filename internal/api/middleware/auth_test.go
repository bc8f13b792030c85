package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/service"
	"github.com/teaqnet/access-api/internal/infrastructure/db/memory"
)

func newSessions(t *testing.T) (*service.SessionService, string) {
	t.Helper()
	svc := service.NewSessionService(memory.NewSessionStore(), "test-secret", zerolog.Nop())
	token, _, err := svc.Issue(context.Background(), &domain.Account{ID: "acc-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return svc, token
}

func TestAuth_ValidBearer(t *testing.T) {
	sessions, token := newSessions(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth(sessions)(func(c echo.Context) error {
		called = true
		sess, ok := SessionFrom(c)
		if !ok || sess.AccountID != "acc-1" {
			t.Fatalf("session not set in context: %+v", sess)
		}
		if TokenFrom(c) != token {
			t.Fatalf("token not set in context")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next handler not called")
	}
}

func TestAuth_ValidCookie(t *testing.T) {
	sessions, token := newSessions(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token, Expires: time.Now().Add(time.Hour)})
	c := e.NewContext(req, httptest.NewRecorder())

	handler := Auth(sessions)(func(c echo.Context) error { return nil })
	if err := handler(c); err != nil {
		t.Fatalf("expected cookie to authenticate, got %v", err)
	}
}

func TestAuth_Rejects(t *testing.T) {
	sessions, token := newSessions(t)

	cases := map[string]string{
		"missing":    "",
		"wrong type": "Basic " + token,
		"no token":   "Bearer",
		"bad token":  "Bearer invalid.token.here",
		"token typo": "Bearer " + token + "x",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set(echo.HeaderAuthorization, header)
			}
			c := e.NewContext(req, httptest.NewRecorder())

			handler := Auth(sessions)(func(c echo.Context) error {
				t.Fatalf("should not reach next handler")
				return nil
			})
			err := handler(c)
			if !errors.Is(err, domain.ErrUnauthenticated) {
				t.Fatalf("expected unauthenticated, got %v", err)
			}
			if HTTPStatus(err) != http.StatusUnauthorized {
				t.Fatalf("expected 401 mapping, got %d", HTTPStatus(err))
			}
		})
	}
}

func TestTokenFromRequestPrefersHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "bearer header-token")
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-token"})

	if got := TokenFromRequest(req); got != "header-token" {
		t.Fatalf("expected header token, got %q", got)
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/teaqnet/access-api/internal/core/domain"
)

type stubGuard struct {
	account *domain.Account
	err     error
}

func (g *stubGuard) Authorize(_ context.Context, s domain.Session, c domain.Capability) (*domain.Principal, error) {
	if g.err != nil {
		return nil, g.err
	}
	p := &domain.Principal{Account: g.account, Session: s}
	if !p.Allows(c) {
		return nil, domain.ErrAdminRequired
	}
	return p, nil
}

func (g *stubGuard) Decide(context.Context, string, domain.Area) (domain.Decision, error) {
	return domain.Decision{}, nil
}

func newAuthedContext(s domain.Session) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set(sessionKey, s)
	return c
}

func TestRequire_Allows(t *testing.T) {
	guard := &stubGuard{account: &domain.Account{ID: "a1", Role: domain.RoleAdmin}}
	c := newAuthedContext(domain.Session{ID: "s1", AccountID: "a1"})

	called := false
	handler := Require(guard, domain.CapabilityAdmin)(func(c echo.Context) error {
		called = true
		p, ok := PrincipalFrom(c)
		if !ok || p.Account.ID != "a1" {
			t.Fatalf("principal not set")
		}
		return nil
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next handler not called")
	}
}

func TestRequire_Forbids(t *testing.T) {
	guard := &stubGuard{account: &domain.Account{ID: "a1", Role: domain.RoleRegular}}
	c := newAuthedContext(domain.Session{ID: "s1", AccountID: "a1"})

	handler := Require(guard, domain.CapabilityAdmin)(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	err := handler(c)
	if !errors.Is(err, domain.ErrAdminRequired) {
		t.Fatalf("expected ErrAdminRequired, got %v", err)
	}
	if HTTPStatus(err) != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", HTTPStatus(err))
	}
}

func TestRequire_WithoutSession(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	err := Require(&stubGuard{}, domain.CapabilitySelf)(func(echo.Context) error { return nil })(c)
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		domain.ErrInvalidCredentials: http.StatusUnauthorized,
		domain.ErrAdminRequired:      http.StatusForbidden,
		domain.ErrAccountNotFound:    http.StatusNotFound,
		domain.ErrEmailTaken:         http.StatusConflict,
		domain.ErrLastAdmin:          http.StatusConflict,
		domain.ErrSelfDelete:         http.StatusBadRequest,
		errors.New("boom"):           http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := HTTPStatus(err); got != want {
			t.Fatalf("%v: expected %d, got %d", err, want, got)
		}
	}
}

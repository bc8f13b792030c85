package ports

import (
	"context"

	"github.com/teaqnet/access-api/internal/core/domain"
)

// AuthResult is returned by a successful register or login.
type AuthResult struct {
	Account *domain.Account
	Token   string
	Session domain.Session
}

type AuthService interface {
	Register(ctx context.Context, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Logout(ctx context.Context, token string) error
	UpdateProfile(ctx context.Context, p *domain.Principal, email string) (*domain.Account, error)
}

// SessionManager issues and validates bearer tokens backed by a SessionStore.
type SessionManager interface {
	Issue(ctx context.Context, acc *domain.Account) (string, domain.Session, error)
	Validate(ctx context.Context, token string) (domain.Session, error)
	Revoke(ctx context.Context, token string) error
	RevokeAccount(ctx context.Context, accountID string) error
}

// Authorizer turns a validated session into a principal holding a capability.
type Authorizer interface {
	Authorize(ctx context.Context, s domain.Session, c domain.Capability) (*domain.Principal, error)
	Decide(ctx context.Context, token string, area domain.Area) (domain.Decision, error)
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
	"github.com/teaqnet/access-api/internal/metrics"
)

var _ ports.Authorizer = (*Guard)(nil)

// Guard resolves the account behind a session on every check, so a role
// change or deletion applies to sessions that are already open.
type Guard struct {
	accounts ports.AccountRepository
	sessions ports.SessionManager
	log      zerolog.Logger
}

func NewGuard(accounts ports.AccountRepository, sessions ports.SessionManager, log zerolog.Logger) *Guard {
	return &Guard{accounts: accounts, sessions: sessions, log: log}
}

// Authorize loads the session's account and checks it holds c.
func (g *Guard) Authorize(ctx context.Context, s domain.Session, c domain.Capability) (*domain.Principal, error) {
	acc, err := g.accounts.FindByID(ctx, s.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.AuthzDenialsTotal.WithLabelValues(string(c), "unauthenticated").Inc()
			return nil, domain.ErrSessionInvalid
		}
		return nil, fmt.Errorf("authorize: %w", err)
	}

	p := &domain.Principal{Account: acc, Session: s}
	if !p.Allows(c) {
		metrics.AuthzDenialsTotal.WithLabelValues(string(c), "forbidden").Inc()
		g.log.Warn().
			Str("account_id", acc.ID).
			Str("capability", string(c)).
			Msg("capability denied")
		return nil, domain.ErrAdminRequired
	}
	return p, nil
}

// Decide answers a client-side route check. An empty or invalid token is
// treated as an anonymous caller.
func (g *Guard) Decide(ctx context.Context, token string, area domain.Area) (domain.Decision, error) {
	if !area.Valid() {
		return domain.Decision{}, domain.Invalid("area", "unknown area")
	}
	if token == "" {
		return domain.DecideRoute(nil, area), nil
	}

	sess, err := g.sessions.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return domain.DecideRoute(nil, area), nil
		}
		return domain.Decision{}, err
	}

	acc, err := g.accounts.FindByID(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DecideRoute(nil, area), nil
		}
		return domain.Decision{}, fmt.Errorf("decide: %w", err)
	}
	return domain.DecideRoute(acc, area), nil
}

package ports

import (
	"context"

	"github.com/teaqnet/access-api/internal/core/domain"
)

// SessionStore keeps live sessions until they expire or are revoked. Get
// returns domain.ErrSessionNotFound for anything not live.
type SessionStore interface {
	Save(ctx context.Context, s domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByAccount(ctx context.Context, accountID string) error
}

package ports

import (
	"context"

	"github.com/teaqnet/access-api/internal/core/domain"
)

// AccountRepository persists accounts. Implementations return
// domain.ErrAccountNotFound for unknown ids or emails and domain.ErrEmailTaken
// when a write would duplicate an email.
type AccountRepository interface {
	Create(ctx context.Context, acc *domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	// List returns every account in insertion order.
	List(ctx context.Context) ([]*domain.Account, error)
	Update(ctx context.Context, id string, upd domain.AccountUpdate) (*domain.Account, error)
	// ToggleRole flips the account's role atomically and returns the result.
	// It refuses with domain.ErrLastAdmin when the flip would leave no admin.
	ToggleRole(ctx context.Context, id string) (*domain.Account, error)
	// Delete removes the account, with the same last-admin guard as ToggleRole.
	Delete(ctx context.Context, id string) error
}

// Package memory holds in-process store drivers. They back tests and the
// single-node "memory" deployment mode.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
	"github.com/teaqnet/access-api/internal/ids"
)

var _ ports.AccountRepository = (*AccountRepository)(nil)

type AccountRepository struct {
	mu      sync.RWMutex
	order   []string
	byID    map[string]*domain.Account
	byEmail map[string]string
	now     func() time.Time
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:    make(map[string]*domain.Account),
		byEmail: make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *AccountRepository) Create(_ context.Context, acc *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := domain.NormalizeEmail(acc.Email)
	if _, taken := r.byEmail[email]; taken {
		return nil, domain.ErrEmailTaken
	}

	stored := acc.Clone()
	stored.Email = email
	if stored.ID == "" {
		stored.ID = ids.New()
	}
	if stored.Role == "" {
		stored.Role = domain.RoleRegular
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}

	r.byID[stored.ID] = stored
	r.byEmail[email] = stored.ID
	r.order = append(r.order, stored.ID)
	return stored.Clone(), nil
}

func (r *AccountRepository) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return acc.Clone(), nil
}

func (r *AccountRepository) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *AccountRepository) List(_ context.Context) ([]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Account, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Clone())
	}
	return out, nil
}

func (r *AccountRepository) Update(_ context.Context, id string, upd domain.AccountUpdate) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	if upd.Email != nil {
		email := domain.NormalizeEmail(*upd.Email)
		if owner, taken := r.byEmail[email]; taken && owner != id {
			return nil, domain.ErrEmailTaken
		}
		delete(r.byEmail, acc.Email)
		acc.Email = email
		r.byEmail[email] = id
	}
	if upd.PasswordHash != nil {
		acc.PasswordHash = *upd.PasswordHash
	}
	acc.UpdatedAt = r.now()
	return acc.Clone(), nil
}

func (r *AccountRepository) ToggleRole(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if acc.IsAdmin() && r.adminCountLocked() <= 1 {
		return nil, domain.ErrLastAdmin
	}
	acc.Role = acc.Role.Toggled()
	acc.UpdatedAt = r.now()
	return acc.Clone(), nil
}

func (r *AccountRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if acc.IsAdmin() && r.adminCountLocked() <= 1 {
		return domain.ErrLastAdmin
	}

	delete(r.byID, id)
	delete(r.byEmail, acc.Email)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *AccountRepository) adminCountLocked() int {
	n := 0
	for _, acc := range r.byID {
		if acc.IsAdmin() {
			n++
		}
	}
	return n
}

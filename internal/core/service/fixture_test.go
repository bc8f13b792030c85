package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	accounts *memory.AccountRepository
	audit    *memory.AuditRepository
	store    *memory.SessionStore
	sessions *SessionService
	auth     *AuthService
	admin    *AdminService
	history  *HistoryService
	guard    *Guard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.Nop()

	f := &fixture{
		accounts: memory.NewAccountRepository(),
		audit:    memory.NewAuditRepository(),
		store:    memory.NewSessionStore(),
	}
	f.sessions = NewSessionService(f.store, "test-secret", log, WithSessionTTL(time.Hour))
	f.auth = NewAuthService(f.accounts, f.audit, f.sessions, log, WithBcryptCost(bcrypt.MinCost))
	f.admin = NewAdminService(f.accounts, f.audit, f.sessions, log)
	f.history = NewHistoryService(f.audit, f.accounts, log)
	f.guard = NewGuard(f.accounts, f.sessions, log)
	return f
}

// register creates an account through the service and returns its token.
func (f *fixture) register(t *testing.T, email string) (string, *domain.Account) {
	t.Helper()
	res, err := f.auth.Register(context.Background(), email, "secret-pass")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return res.Token, res.Account
}

// admin registers an account and promotes it directly in the store.
func (f *fixture) registerAdmin(t *testing.T, email string) (string, *domain.Principal) {
	t.Helper()
	token, acc := f.register(t, email)
	if _, err := f.accounts.ToggleRole(context.Background(), acc.ID); err != nil {
		t.Fatalf("promote %s: %v", email, err)
	}
	return token, f.principal(t, token, domain.CapabilityAdmin)
}

func (f *fixture) principal(t *testing.T, token string, c domain.Capability) *domain.Principal {
	t.Helper()
	ctx := context.Background()
	sess, err := f.sessions.Validate(ctx, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	p, err := f.guard.Authorize(ctx, sess, c)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	return p
}

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

var errStore = errors.New("store unavailable")

type failingAuditRepo struct{}

func (failingAuditRepo) Append(context.Context, *domain.AuditEntry) error { return errStore }

func (failingAuditRepo) List(context.Context, domain.AuditFilter) ([]*domain.AuditEntry, error) {
	return nil, errStore
}

type failingAccountRepo struct {
	*memory.AccountRepository
}

func (failingAccountRepo) FindByEmail(context.Context, string) (*domain.Account, error) {
	return nil, errStore
}

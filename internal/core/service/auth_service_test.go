package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/infrastructure/db/memory"
)

func TestAuthService_Register_Success(t *testing.T) {
	f := newFixture(t)

	res, err := f.auth.Register(context.Background(), "  Alice@Example.com ", "pass1234")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.Account.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", res.Account.Email)
	}
	if res.Account.IsAdmin() {
		t.Fatalf("new accounts must not be admin")
	}
	if res.Account.PasswordHash == "pass1234" {
		t.Fatalf("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(res.Account.PasswordHash), []byte("pass1234")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if _, err := f.sessions.Validate(context.Background(), res.Token); err != nil {
		t.Fatalf("register token should be valid: %v", err)
	}

	entries, _ := f.audit.List(context.Background(), domain.AuditFilter{Action: domain.ActionRegistered})
	if len(entries) != 1 || entries[0].ActorID != res.Account.ID {
		t.Fatalf("expected a registration audit entry, got %+v", entries)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name, email, password, field string
	}{
		{"empty email", "", "pass1234", "email"},
		{"bad email", "nope", "pass1234", "email"},
		{"empty password", "a@example.com", "", "password"},
		{"short password", "a@example.com", "abc", "password"},
		{"long password", "a@example.com", strings.Repeat("x", 73), "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.auth.Register(context.Background(), tc.email, tc.password)
			var de *domain.Error
			if !errors.As(err, &de) || !errors.Is(err, domain.ErrInvalid) {
				t.Fatalf("expected invalid input error, got %v", err)
			}
			if de.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, de.Field)
			}
		})
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.register(t, "dup@example.com")

	_, err := f.auth.Register(context.Background(), "DUP@example.com", "pass1234")
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthService_Register_ConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)

	const n = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, conf int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.auth.Register(context.Background(), "same@example.com", "pass1234")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrConflict):
				conf++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || conf != n-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", n-1, ok, conf)
	}
}

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t)
	f.register(t, "bob@example.com")

	res, err := f.auth.Login(context.Background(), "BOB@example.com", "secret-pass")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if res.Token == "" || res.Account.Email != "bob@example.com" {
		t.Fatalf("unexpected login result %+v", res)
	}

	logins, _ := f.audit.List(context.Background(), domain.AuditFilter{Action: domain.ActionLogin})
	if len(logins) != 1 {
		t.Fatalf("expected one login audit entry, got %d", len(logins))
	}
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.register(t, "bob@example.com")

	_, wrongPass := f.auth.Login(context.Background(), "bob@example.com", "wrong-pass")
	_, unknown := f.auth.Login(context.Background(), "ghost@example.com", "secret-pass")

	if !errors.Is(wrongPass, domain.ErrInvalidCredentials) || !errors.Is(unknown, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", wrongPass, unknown)
	}
	if wrongPass.Error() != unknown.Error() {
		t.Fatalf("failure messages differ: %q vs %q", wrongPass, unknown)
	}
}

func TestAuthService_Login_StoreError(t *testing.T) {
	repo := failingAccountRepo{memory.NewAccountRepository()}
	svc := NewAuthService(repo, memory.NewAuditRepository(), nil, zerolog.Nop(), WithBcryptCost(bcrypt.MinCost))

	_, err := svc.Login(context.Background(), "a@example.com", "pass1234")
	if !errors.Is(err, errStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("store failure must not look like bad credentials")
	}
}

func TestAuthService_AuditFailureDoesNotFailRegister(t *testing.T) {
	accounts := memory.NewAccountRepository()
	sessions := NewSessionService(memory.NewSessionStore(), "s", zerolog.Nop())
	svc := NewAuthService(accounts, failingAuditRepo{}, sessions, zerolog.Nop(), WithBcryptCost(bcrypt.MinCost))

	if _, err := svc.Register(context.Background(), "a@example.com", "pass1234"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	f := newFixture(t)
	token, _ := f.register(t, "bob@example.com")

	if err := f.auth.Logout(context.Background(), token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := f.sessions.Validate(context.Background(), token); !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("expected token to be revoked, got %v", err)
	}
}

func TestAuthService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	f.register(t, "taken@example.com")
	token, _ := f.register(t, "me@example.com")
	p := f.principal(t, token, domain.CapabilitySelf)

	if _, err := f.auth.UpdateProfile(context.Background(), p, "taken@example.com"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	updated, err := f.auth.UpdateProfile(context.Background(), p, "New@example.com")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Email != "new@example.com" {
		t.Fatalf("unexpected email %q", updated.Email)
	}

	if _, err := f.auth.UpdateProfile(context.Background(), nil, "x@example.com"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for nil principal, got %v", err)
	}
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if acc, err := f.auth.EnsureAdmin(ctx, "", ""); err != nil || acc != nil {
		t.Fatalf("empty email should be a no-op, got %v, %v", acc, err)
	}

	acc, err := f.auth.EnsureAdmin(ctx, "root@example.com", "rootpass")
	if err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	if !acc.IsAdmin() {
		t.Fatalf("seeded account must be admin")
	}

	again, err := f.auth.EnsureAdmin(ctx, "root@example.com", "different")
	if err != nil || again.ID != acc.ID {
		t.Fatalf("second EnsureAdmin should return the same account, got %v, %v", again, err)
	}
	if _, err := f.auth.Login(ctx, "root@example.com", "rootpass"); err != nil {
		t.Fatalf("existing password must be kept: %v", err)
	}

	_, regular := f.register(t, "promote@example.com")
	promoted, err := f.auth.EnsureAdmin(ctx, "promote@example.com", "ignored")
	if err != nil {
		t.Fatalf("EnsureAdmin promote: %v", err)
	}
	if promoted.ID != regular.ID || !promoted.IsAdmin() {
		t.Fatalf("expected existing account to be promoted, got %+v", promoted)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
	"github.com/teaqnet/access-api/internal/ids"
	"github.com/teaqnet/access-api/internal/metrics"
)

var _ ports.AuthService = (*AuthService)(nil)

// AuthService implements registration, login, logout and self-service
// profile changes.
type AuthService struct {
	accounts ports.AccountRepository
	sessions ports.SessionManager
	audit    auditor
	cost     int
	now      func() time.Time
	log      zerolog.Logger

	// compared against when the email is unknown so both login failures
	// cost one bcrypt comparison
	dummyHash []byte
}

type AuthOption func(*AuthService)

// WithBcryptCost sets the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewAuthService(
	accounts ports.AccountRepository,
	audit ports.AuditRepository,
	sessions ports.SessionManager,
	log zerolog.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		accounts: accounts,
		sessions: sessions,
		cost:     bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.audit = auditor{repo: audit, now: s.now, log: log}

	hash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	if err != nil {
		log.Warn().Err(err).Msg("could not prepare dummy hash")
	}
	s.dummyHash = hash
	return s
}

// Register creates a regular account and opens a session for it.
func (s *AuthService) Register(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "invalid").Inc()
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "invalid").Inc()
		return nil, err
	}

	acc, err := s.createAccount(ctx, email, password, domain.RoleRegular)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.AuthAttemptsTotal.WithLabelValues("register", "conflict").Inc()
			return nil, err
		}
		metrics.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
		return nil, fmt.Errorf("register: %w", err)
	}
	s.audit.record(ctx, acc, domain.ActionRegistered, acc.ID, nil)

	res, err := s.openSession(ctx, acc)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
		return nil, fmt.Errorf("register: %w", err)
	}
	metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	s.log.Info().Str("account_id", acc.ID).Msg("account registered")
	return res, nil
}

// Login verifies credentials. Unknown email and wrong password produce the
// same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "invalid").Inc()
		return nil, domain.Invalid("email", "email is required")
	}
	if password == "" {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "invalid").Inc()
		return nil, domain.Invalid("password", "password is required")
	}

	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			metrics.AuthAttemptsTotal.WithLabelValues("login", "unauthorized").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		metrics.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "unauthorized").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	res, err := s.openSession(ctx, acc)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}
	s.audit.record(ctx, acc, domain.ActionLogin, acc.ID, nil)
	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	return res, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// UpdateProfile changes the caller's own email.
func (s *AuthService) UpdateProfile(ctx context.Context, p *domain.Principal, email string) (*domain.Account, error) {
	if !p.Allows(domain.CapabilitySelf) {
		return nil, domain.ErrSessionInvalid
	}
	email = domain.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if email == p.Account.Email {
		return p.Account.Clone(), nil
	}

	updated, err := s.accounts.Update(ctx, p.Account.ID, domain.AccountUpdate{Email: &email})
	if err != nil {
		return nil, err
	}
	s.audit.record(ctx, updated, domain.ActionProfileUpdated, updated.ID, map[string]any{
		"previous_email": p.Account.Email,
		"email":          updated.Email,
	})
	return updated, nil
}

// EnsureAdmin makes sure an administrator with email exists, creating it with
// password or promoting an existing regular account. An existing password is
// never overwritten. An empty email is a no-op.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (*domain.Account, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}

	acc, err := s.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if acc.IsAdmin() {
			return acc, nil
		}
		promoted, err := s.accounts.ToggleRole(ctx, acc.ID)
		if err != nil {
			return nil, fmt.Errorf("promote admin: %w", err)
		}
		s.audit.record(ctx, nil, domain.ActionRoleToggled, promoted.ID, map[string]any{"is_admin": true, "source": "bootstrap"})
		s.log.Info().Str("account_id", promoted.ID).Msg("existing account promoted to admin")
		return promoted, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("ensure admin: %w", err)
	}

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	created, err := s.createAccount(ctx, email, password, domain.RoleAdmin)
	if err != nil {
		// another replica may have seeded it first
		if errors.Is(err, domain.ErrConflict) {
			return s.accounts.FindByEmail(ctx, email)
		}
		return nil, fmt.Errorf("ensure admin: %w", err)
	}
	s.audit.record(ctx, nil, domain.ActionRegistered, created.ID, map[string]any{"source": "bootstrap"})
	s.log.Info().Str("account_id", created.ID).Msg("admin account created")
	return created, nil
}

func (s *AuthService) createAccount(ctx context.Context, email, password string, role domain.Role) (*domain.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	return s.accounts.Create(ctx, &domain.Account{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (s *AuthService) openSession(ctx context.Context, acc *domain.Account) (*ports.AuthResult, error) {
	token, sess, err := s.sessions.Issue(ctx, acc)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{Account: acc, Token: token, Session: sess}, nil
}

func validateEmail(email string) error {
	if email == "" {
		return domain.Invalid("email", "email is required")
	}
	if !domain.ValidEmail(email) {
		return domain.Invalid("email", "email is not a valid address")
	}
	return nil
}

func validatePassword(password string) error {
	switch {
	case password == "":
		return domain.Invalid("password", "password is required")
	case len(password) < domain.MinPasswordLength:
		return domain.Invalid("password", fmt.Sprintf("password must be at least %d characters", domain.MinPasswordLength))
	case len(password) > domain.MaxPasswordLength:
		return domain.Invalid("password", fmt.Sprintf("password must be at most %d bytes", domain.MaxPasswordLength))
	}
	return nil
}

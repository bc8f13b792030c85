package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
	"github.com/teaqnet/access-api/internal/metrics"
)

const (
	defaultSessionTTL = 24 * time.Hour
	defaultIssuer     = "access-api"
)

var _ ports.SessionManager = (*SessionService)(nil)

// SessionService issues HS256 tokens whose jti names a server-side session.
// A token is only honoured while its session is still in the store, so logout
// and account deletion take effect immediately.
type SessionService struct {
	store  ports.SessionStore
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

type SessionOption func(*SessionService)

func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(s *SessionService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithIssuer(issuer string) SessionOption {
	return func(s *SessionService) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithClock overrides the time source. Tests use it to expire sessions.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSessionService(store ports.SessionStore, secret string, log zerolog.Logger, opts ...SessionOption) *SessionService {
	s := &SessionService{
		store:  store,
		secret: []byte(secret),
		issuer: defaultIssuer,
		ttl:    defaultSessionTTL,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type sessionClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Issue creates a session for acc and returns the signed token.
func (s *SessionService) Issue(ctx context.Context, acc *domain.Account) (string, domain.Session, error) {
	if acc == nil || acc.ID == "" {
		return "", domain.Session{}, domain.ErrSessionInvalid
	}

	now := s.now().Truncate(time.Second)
	sess := domain.Session{
		ID:        uuid.NewString(),
		AccountID: acc.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	// role is informational only, authorization re-reads the account
	claims := sessionClaims{
		Role: string(acc.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   acc.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),
			NotBefore: jwt.NewNumericDate(sess.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", domain.Session{}, fmt.Errorf("sign token: %w", err)
	}

	if err := s.store.Save(ctx, sess); err != nil {
		return "", domain.Session{}, fmt.Errorf("save session: %w", err)
	}
	metrics.SessionsIssuedTotal.Inc()
	return token, sess, nil
}

// Validate checks the token signature, expiry and issuer, then confirms the
// session is still live.
func (s *SessionService) Validate(ctx context.Context, token string) (domain.Session, error) {
	claims, err := s.parse(token,
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return domain.Session{}, domain.ErrSessionInvalid
	}

	sess, err := s.store.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.Session{}, domain.ErrSessionInvalid
		}
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	if sess.AccountID != claims.Subject || sess.Expired(s.now()) {
		return domain.Session{}, domain.ErrSessionInvalid
	}
	return *sess, nil
}

// Revoke ends the session behind token. Expired tokens are accepted so a
// client can always log out; unparseable ones are ignored.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil
	}
	if err := s.store.Delete(ctx, claims.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	metrics.SessionsRevokedTotal.WithLabelValues("single").Inc()
	return nil
}

// RevokeAccount ends every session of accountID.
func (s *SessionService) RevokeAccount(ctx context.Context, accountID string) error {
	if err := s.store.DeleteByAccount(ctx, accountID); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	metrics.SessionsRevokedTotal.WithLabelValues("account").Inc()
	s.log.Info().Str("account_id", accountID).Msg("sessions revoked")
	return nil
}

func (s *SessionService) parse(token string, opts ...jwt.ParserOption) (*sessionClaims, error) {
	if token == "" {
		return nil, domain.ErrSessionInvalid
	}
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	claims := &sessionClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return nil, domain.ErrSessionInvalid
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, domain.ErrSessionInvalid
	}
	return claims, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
	"github.com/teaqnet/access-api/internal/metrics"
)

const recentUsersLimit = 10

var _ ports.AdminService = (*AdminService)(nil)

// AdminService implements user management for administrators. Every method
// checks the capability before touching a store.
type AdminService struct {
	accounts ports.AccountRepository
	sessions ports.SessionManager
	audit    auditor
	now      func() time.Time
	log      zerolog.Logger
}

type AdminOption func(*AdminService)

func WithAdminClock(now func() time.Time) AdminOption {
	return func(s *AdminService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewAdminService(
	accounts ports.AccountRepository,
	audit ports.AuditRepository,
	sessions ports.SessionManager,
	log zerolog.Logger,
	opts ...AdminOption,
) *AdminService {
	s := &AdminService{
		accounts: accounts,
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.audit = auditor{repo: audit, now: s.now, log: log}
	return s
}

func (s *AdminService) ListUsers(ctx context.Context, p *domain.Principal) ([]*domain.Account, error) {
	if !p.Allows(domain.CapabilityAdmin) {
		return nil, domain.ErrAdminRequired
	}
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return accounts, nil
}

// Stats is computed from a single listing so the counts agree with each
// other.
func (s *AdminService) Stats(ctx context.Context, p *domain.Principal) (*ports.Stats, error) {
	if !p.Allows(domain.CapabilityAdmin) {
		return nil, domain.ErrAdminRequired
	}
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return computeStats(accounts, s.now()), nil
}

func computeStats(accounts []*domain.Account, now time.Time) *ports.Stats {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)

	st := &ports.Stats{Total: len(accounts), GeneratedAt: now}
	for _, acc := range accounts {
		if acc.IsAdmin() {
			st.Admins++
		} else {
			st.Regular++
		}
		created := acc.CreatedAt.UTC()
		if !created.Before(today) {
			st.Today++
		}
		if created.After(weekAgo) {
			st.ThisWeek++
		}
		if created.After(monthAgo) {
			st.ThisMonth++
		}
	}

	// accounts are in insertion order, so the newest are at the end
	n := len(accounts)
	if n > recentUsersLimit {
		n = recentUsersLimit
	}
	st.RecentUsers = make([]*domain.Account, 0, n)
	for i := len(accounts) - 1; i >= len(accounts)-n; i-- {
		st.RecentUsers = append(st.RecentUsers, accounts[i])
	}
	return st
}

func (s *AdminService) UpdateUser(ctx context.Context, p *domain.Principal, id string, in ports.UpdateUserInput) (*domain.Account, error) {
	if !p.Allows(domain.CapabilityAdmin) {
		return nil, domain.ErrAdminRequired
	}
	if in.Email == nil {
		return nil, domain.Invalid("email", "email is required")
	}
	email := domain.NormalizeEmail(*in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	before, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.accounts.Update(ctx, id, domain.AccountUpdate{Email: &email})
	if err != nil {
		return nil, err
	}

	s.audit.record(ctx, p.Account, domain.ActionUpdated, id, map[string]any{
		"previous_email": before.Email,
		"email":          updated.Email,
	})
	metrics.AdminActionsTotal.WithLabelValues(string(domain.ActionUpdated)).Inc()
	return updated, nil
}

func (s *AdminService) ToggleAdmin(ctx context.Context, p *domain.Principal, id string) (bool, error) {
	if !p.Allows(domain.CapabilityAdmin) {
		return false, domain.ErrAdminRequired
	}
	if id == p.Account.ID {
		return false, domain.ErrSelfRoleChange
	}

	acc, err := s.accounts.ToggleRole(ctx, id)
	if err != nil {
		return false, err
	}

	s.audit.record(ctx, p.Account, domain.ActionRoleToggled, id, map[string]any{
		"email":    acc.Email,
		"is_admin": acc.IsAdmin(),
	})
	metrics.AdminActionsTotal.WithLabelValues(string(domain.ActionRoleToggled)).Inc()
	s.log.Info().
		Str("actor_id", p.Account.ID).
		Str("account_id", id).
		Bool("is_admin", acc.IsAdmin()).
		Msg("admin flag toggled")
	return acc.IsAdmin(), nil
}

// DeleteUser removes the account and ends all of its sessions.
func (s *AdminService) DeleteUser(ctx context.Context, p *domain.Principal, id string) error {
	if !p.Allows(domain.CapabilityAdmin) {
		return domain.ErrAdminRequired
	}
	if id == p.Account.ID {
		return domain.ErrSelfDelete
	}

	target, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.sessions.RevokeAccount(ctx, id); err != nil {
		// the guard rejects sessions of deleted accounts anyway
		s.log.Warn().Err(err).Str("account_id", id).Msg("failed to revoke sessions of deleted account")
	}

	s.audit.record(ctx, p.Account, domain.ActionDeleted, id, map[string]any{"email": target.Email})
	metrics.AdminActionsTotal.WithLabelValues(string(domain.ActionDeleted)).Inc()
	s.log.Info().Str("actor_id", p.Account.ID).Str("account_id", id).Msg("account deleted")
	return nil
}

package ports

import (
	"context"
	"time"

	"github.com/teaqnet/access-api/internal/core/domain"
)

// UpdateUserInput carries the fields an administrator may change.
type UpdateUserInput struct {
	Email *string
}

// Stats summarises the account population. Total always equals
// Admins + Regular.
type Stats struct {
	Total       int               `json:"total_users"`
	Admins      int               `json:"admin_users"`
	Regular     int               `json:"regular_users"`
	Today       int               `json:"users_today"`
	ThisWeek    int               `json:"users_week"`
	ThisMonth   int               `json:"users_month"`
	RecentUsers []*domain.Account `json:"recent_users"`
	GeneratedAt time.Time         `json:"generated_at"`
}

type AdminService interface {
	ListUsers(ctx context.Context, p *domain.Principal) ([]*domain.Account, error)
	Stats(ctx context.Context, p *domain.Principal) (*Stats, error)
	UpdateUser(ctx context.Context, p *domain.Principal, id string, in UpdateUserInput) (*domain.Account, error)
	// ToggleAdmin returns the target's new admin flag.
	ToggleAdmin(ctx context.Context, p *domain.Principal, id string) (bool, error)
	DeleteUser(ctx context.Context, p *domain.Principal, id string) error
}

package ports

import (
	"context"

	"github.com/teaqnet/access-api/internal/core/domain"
)

// AuditRepository is an append-only log. There is no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	// List returns matching entries newest first.
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error)
}

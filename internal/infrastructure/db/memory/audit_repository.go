package memory

import (
	"context"
	"sync"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
	"github.com/teaqnet/access-api/internal/ids"
)

var _ ports.AuditRepository = (*AuditRepository)(nil)

type AuditRepository struct {
	mu      sync.RWMutex
	entries []*domain.AuditEntry
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Append(_ context.Context, entry *domain.AuditEntry) error {
	if entry == nil {
		return domain.Invalid("entry", "audit entry is required")
	}
	stored := entry.Clone()
	if stored.ID == "" {
		stored.ID = ids.New()
	}

	r.mu.Lock()
	r.entries = append(r.entries, stored)
	r.mu.Unlock()
	return nil
}

func (r *AuditRepository) List(_ context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	r.mu.RLock()
	out := make([]*domain.AuditEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if filter.Matches(e) {
			out = append(out, e.Clone())
		}
	}
	r.mu.RUnlock()

	domain.SortNewestFirst(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

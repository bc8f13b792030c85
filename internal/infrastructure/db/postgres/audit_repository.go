package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
	"github.com/teaqnet/access-api/internal/ids"
)

var _ ports.AuditRepository = (*AuditRepository)(nil)

// AuditRepository writes to an insert-only table. No update or delete
// statement exists for it.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if entry == nil {
		return domain.Invalid("entry", "audit entry is required")
	}
	id := entry.ID
	if id == "" {
		id = ids.New()
	}
	payload := []byte("{}")
	if len(entry.Payload) > 0 {
		var err error
		if payload, err = json.Marshal(entry.Payload); err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx,
		`insert into audit_entries(id, actor_id, actor_email, action, subject_id, occurred_at, payload)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		id, entry.ActorID, entry.ActorEmail, string(entry.Action), entry.SubjectID, entry.OccurredAt.UTC(), payload,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	query, args := listAuditQuery(filter)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	out := []*domain.AuditEntry{}
	for rows.Next() {
		var (
			e       domain.AuditEntry
			action  string
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorEmail, &action, &e.SubjectID, &e.OccurredAt, &payload); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = domain.Action(action)
		e.OccurredAt = e.OccurredAt.UTC()
		if len(payload) > 0 && string(payload) != "{}" {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("decode payload: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func listAuditQuery(f domain.AuditFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.ActorID != "" {
		args = append(args, f.ActorID)
		where = append(where, fmt.Sprintf("actor_id = $%d", len(args)))
	}
	if f.Action != "" {
		args = append(args, string(f.Action))
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(`select id, actor_id, actor_email, action, subject_id, occurred_at, payload from audit_entries`)
	if len(where) > 0 {
		b.WriteString(" where ")
		b.WriteString(strings.Join(where, " and "))
	}
	b.WriteString(" order by occurred_at desc, id desc")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " limit $%d", len(args))
	}
	return b.String(), args
}

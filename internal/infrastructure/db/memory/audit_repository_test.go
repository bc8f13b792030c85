package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teaqnet/access-api/internal/core/domain"
)

func TestAuditRepository_ListNewestFirstWithFilter(t *testing.T) {
	r := NewAuditRepository()
	ctx := context.Background()
	t0 := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, r.Append(ctx, &domain.AuditEntry{ActorID: "u1", Action: domain.ActionPrediction, OccurredAt: t0}))
	require.NoError(t, r.Append(ctx, &domain.AuditEntry{ActorID: "u2", Action: domain.ActionPrediction, OccurredAt: t0.Add(time.Minute)}))
	require.NoError(t, r.Append(ctx, &domain.AuditEntry{ActorID: "u1", Action: domain.ActionLogin, OccurredAt: t0.Add(2 * time.Minute)}))

	all, err := r.List(ctx, domain.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, domain.ActionLogin, all[0].Action)
	assert.Equal(t, "u2", all[1].ActorID)

	own, err := r.List(ctx, domain.AuditFilter{ActorID: "u1", Action: domain.ActionPrediction})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, t0, own[0].OccurredAt)

	limited, err := r.List(ctx, domain.AuditFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestAuditRepository_AppendAssignsIDAndCopies(t *testing.T) {
	r := NewAuditRepository()
	ctx := context.Background()
	entry := &domain.AuditEntry{Action: domain.ActionLogin, Payload: map[string]any{"ip": "1.2.3.4"}}

	require.NoError(t, r.Append(ctx, entry))
	entry.Payload["ip"] = "tampered"

	list, err := r.List(ctx, domain.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotEmpty(t, list[0].ID)
	assert.Equal(t, "1.2.3.4", list[0].Payload["ip"])
}

func TestAuditRepository_AppendRejectsNil(t *testing.T) {
	assert.ErrorIs(t, NewAuditRepository().Append(context.Background(), nil), domain.ErrInvalid)
}

package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
	"github.com/teaqnet/access-api/internal/ids"
	"github.com/teaqnet/access-api/internal/metrics"
)

// auditor appends entries on behalf of the services. A failed append is
// logged and counted but never fails the operation it describes.
type auditor struct {
	repo ports.AuditRepository
	now  func() time.Time
	log  zerolog.Logger
}

func (a auditor) record(ctx context.Context, actor *domain.Account, action domain.Action, subjectID string, payload map[string]any) {
	entry := &domain.AuditEntry{
		ID:         ids.New(),
		Action:     action,
		SubjectID:  subjectID,
		OccurredAt: a.now(),
		Payload:    payload,
	}
	if actor != nil {
		entry.ActorID = actor.ID
		entry.ActorEmail = actor.Email
	}

	if err := a.repo.Append(ctx, entry); err != nil {
		metrics.AuditAppendErrorsTotal.Inc()
		a.log.Error().Err(err).Str("action", string(action)).Str("subject_id", subjectID).Msg("failed to append audit entry")
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
	"github.com/teaqnet/access-api/internal/ids"
	"github.com/teaqnet/access-api/internal/metrics"
)

const maxHistoryLimit = 1000

var _ ports.HistoryService = (*HistoryService)(nil)

// HistoryService records predictions and serves the audit log.
type HistoryService struct {
	audit    ports.AuditRepository
	accounts ports.AccountRepository
	now      func() time.Time
	log      zerolog.Logger
}

func NewHistoryService(audit ports.AuditRepository, accounts ports.AccountRepository, log zerolog.Logger) *HistoryService {
	return &HistoryService{
		audit:    audit,
		accounts: accounts,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

func (s *HistoryService) RecordPrediction(ctx context.Context, p *domain.Principal, in ports.PredictionInput) (*domain.AuditEntry, error) {
	if !p.Allows(domain.CapabilitySelf) {
		return nil, domain.ErrSessionInvalid
	}
	prediction := strings.TrimSpace(in.Prediction)
	if prediction == "" {
		return nil, domain.Invalid("prediction", "prediction is required")
	}
	if math.IsNaN(in.Confidence) || in.Confidence < 0 || in.Confidence > 100 {
		return nil, domain.Invalid("confidence", "confidence must be between 0 and 100")
	}
	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = "unknown"
	}

	entry := &domain.AuditEntry{
		ID:         ids.New(),
		ActorID:    p.Account.ID,
		ActorEmail: p.Account.Email,
		Action:     domain.ActionPrediction,
		SubjectID:  p.Account.ID,
		OccurredAt: s.now(),
		Payload: map[string]any{
			"prediction": prediction,
			"confidence": in.Confidence,
			"model":      model,
			"filename":   strings.TrimSpace(in.Filename),
		},
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("record prediction: %w", err)
	}
	metrics.PredictionsRecordedTotal.WithLabelValues(model).Inc()
	return entry, nil
}

func (s *HistoryService) Own(ctx context.Context, p *domain.Principal) ([]*domain.AuditEntry, error) {
	if !p.Allows(domain.CapabilitySelf) {
		return nil, domain.ErrSessionInvalid
	}
	entries, err := s.audit.List(ctx, domain.AuditFilter{ActorID: p.Account.ID, Action: domain.ActionPrediction})
	if err != nil {
		return nil, fmt.Errorf("own history: %w", err)
	}
	return entries, nil
}

func (s *HistoryService) All(ctx context.Context, p *domain.Principal, q ports.HistoryQuery) ([]*domain.AuditEntry, error) {
	if !p.Allows(domain.CapabilityAdmin) {
		return nil, domain.ErrAdminRequired
	}
	if q.Action != "" && !q.Action.Valid() {
		return nil, domain.Invalid("action", "unknown action")
	}
	if q.Limit < 0 || q.Limit > maxHistoryLimit {
		return nil, domain.Invalid("limit", fmt.Sprintf("limit must be between 0 and %d", maxHistoryLimit))
	}

	filter := domain.AuditFilter{Action: q.Action, Limit: q.Limit}
	if email := domain.NormalizeEmail(q.UserEmail); email != "" {
		acc, err := s.accounts.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return []*domain.AuditEntry{}, nil
			}
			return nil, fmt.Errorf("history: %w", err)
		}
		filter.ActorID = acc.ID
	}

	entries, err := s.audit.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return entries, nil
}

package ports

import (
	"context"

	"github.com/teaqnet/access-api/internal/core/domain"
)

// PredictionInput is a prediction result submitted by a client.
type PredictionInput struct {
	Prediction string
	Confidence float64
	Model      string
	Filename   string
}

// HistoryQuery filters the administrator's view of the log.
type HistoryQuery struct {
	UserEmail string
	Action    domain.Action
	Limit     int
}

type HistoryService interface {
	RecordPrediction(ctx context.Context, p *domain.Principal, in PredictionInput) (*domain.AuditEntry, error)
	// Own lists the caller's predictions, newest first.
	Own(ctx context.Context, p *domain.Principal) ([]*domain.AuditEntry, error)
	// All lists the whole log, newest first. Admin only.
	All(ctx context.Context, p *domain.Principal, q HistoryQuery) ([]*domain.AuditEntry, error)
}

package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
	"github.com/teaqnet/access-api/internal/ids"
)

const auditCollection = "audit_entries"

var _ ports.AuditRepository = (*AuditRepository)(nil)

// AuditRepository implements ports.AuditRepository using an insert-only
// MongoDB collection.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

type auditDoc struct {
	ID         string    `bson:"_id"`
	ActorID    string    `bson:"actor_id"`
	ActorEmail string    `bson:"actor_email"`
	Action     string    `bson:"action"`
	SubjectID  string    `bson:"subject_id,omitempty"`
	OccurredAt time.Time `bson:"occurred_at"`
	Payload    bson.M    `bson:"payload,omitempty"`
}

func toAuditDoc(e *domain.AuditEntry) auditDoc {
	doc := auditDoc{
		ID:         e.ID,
		ActorID:    e.ActorID,
		ActorEmail: e.ActorEmail,
		Action:     string(e.Action),
		SubjectID:  e.SubjectID,
		OccurredAt: e.OccurredAt.UTC(),
	}
	if len(e.Payload) > 0 {
		doc.Payload = bson.M(e.Payload)
	}
	return doc
}

func (d auditDoc) toDomain() *domain.AuditEntry {
	e := &domain.AuditEntry{
		ID:         d.ID,
		ActorID:    d.ActorID,
		ActorEmail: d.ActorEmail,
		Action:     domain.Action(d.Action),
		SubjectID:  d.SubjectID,
		OccurredAt: d.OccurredAt.UTC(),
	}
	if len(d.Payload) > 0 {
		e.Payload = map[string]any(d.Payload)
	}
	return e
}

// EnsureIndexes creates the listing indexes.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "occurred_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create audit indexes: %w", err)
	}
	return nil
}

// Append persists an entry to the audit collection.
func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if entry == nil {
		return domain.Invalid("entry", "audit entry is required")
	}
	doc := toAuditDoc(entry)
	if doc.ID == "" {
		doc.ID = ids.New()
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	cur, err := r.coll.Find(ctx, auditFilterDoc(filter), auditFindOptions(filter))
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer cur.Close(ctx)

	var docs []auditDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode audit entries: %w", err)
	}
	out := make([]*domain.AuditEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func auditFilterDoc(f domain.AuditFilter) bson.M {
	q := bson.M{}
	if f.ActorID != "" {
		q["actor_id"] = f.ActorID
	}
	if f.Action != "" {
		q["action"] = string(f.Action)
	}
	return q
}

func auditFindOptions(f domain.AuditFilter) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: -1}, {Key: "_id", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	return opts
}

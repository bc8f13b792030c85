package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
	"github.com/teaqnet/access-api/internal/ids"
)

const (
	accountsCollection = "accounts"

	// attempts for the compare-and-set role flip
	roleFlipAttempts = 3
)

var _ ports.AccountRepository = (*AccountRepository)(nil)

// AccountRepository stores accounts with the ULID as _id, so sorting by _id
// yields insertion order.
//
// The last-admin guard is count-then-conditional-write: the write is
// conditioned on the role it observed, which rules out double flips of the
// same account but not two different admins demoting each other at the same
// instant. Use the postgres driver where that matters.
type AccountRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{
		coll: db.Collection(accountsCollection),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

type accountDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	Role         string    `bson:"role"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toAccountDoc(acc *domain.Account) accountDoc {
	return accountDoc{
		ID:           acc.ID,
		Email:        domain.NormalizeEmail(acc.Email),
		PasswordHash: acc.PasswordHash,
		Role:         string(acc.Role),
		CreatedAt:    acc.CreatedAt.UTC(),
		UpdatedAt:    acc.UpdatedAt.UTC(),
	}
}

func (d accountDoc) toDomain() *domain.Account {
	return &domain.Account{
		ID:           d.ID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         domain.Role(d.Role),
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// EnsureIndexes creates the unique email index.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("accounts_email_unique"),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}},
			Options: options.Index().SetName("accounts_role"),
		},
	})
	if err != nil {
		return fmt.Errorf("create account indexes: %w", err)
	}
	return nil
}

func (r *AccountRepository) Create(ctx context.Context, acc *domain.Account) (*domain.Account, error) {
	stored := acc.Clone()
	if stored.ID == "" {
		stored.ID = ids.New()
	}
	if stored.Role == "" {
		stored.Role = domain.RoleRegular
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now()
		stored.UpdatedAt = stored.CreatedAt
	}

	doc := toAccountDoc(stored)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var doc accountDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer cur.Close(ctx)

	var docs []accountDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	out := make([]*domain.Account, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *AccountRepository) Update(ctx context.Context, id string, upd domain.AccountUpdate) (*domain.Account, error) {
	set := updateDoc(upd, r.now())
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc accountDoc
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, domain.ErrAccountNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("update account: %w", err)
	}
	return doc.toDomain(), nil
}

func updateDoc(upd domain.AccountUpdate, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if upd.Email != nil {
		set["email"] = domain.NormalizeEmail(*upd.Email)
	}
	if upd.PasswordHash != nil {
		set["password_hash"] = *upd.PasswordHash
	}
	return set
}

func (r *AccountRepository) ToggleRole(ctx context.Context, id string) (*domain.Account, error) {
	for attempt := 0; attempt < roleFlipAttempts; attempt++ {
		current, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := r.guardLastAdmin(ctx, current); err != nil {
			return nil, err
		}

		filter := bson.M{"_id": id, "role": string(current.Role)}
		update := bson.M{"$set": bson.M{"role": string(current.Role.Toggled()), "updated_at": r.now()}}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

		var doc accountDoc
		err = r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
		if err == nil {
			return doc.toDomain(), nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("toggle role: %w", err)
		}
		// role changed underneath us, re-read and retry
	}
	return nil, domain.ErrConcurrentUpdate
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.guardLastAdmin(ctx, current); err != nil {
		return err
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "role": string(current.Role)})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if res.DeletedCount == 0 {
		// gone, or its role changed since the guard ran
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrConcurrentUpdate
	}
	return nil
}

func (r *AccountRepository) guardLastAdmin(ctx context.Context, acc *domain.Account) error {
	if !acc.IsAdmin() {
		return nil
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"role": string(domain.RoleAdmin)})
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if n <= 1 {
		return domain.ErrLastAdmin
	}
	return nil
}

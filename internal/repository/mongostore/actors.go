package mongostore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

// ActorStore keeps actors in the actors collection.  Email uniqueness is
// enforced by the unique index created in EnsureIndexes.
type ActorStore struct{ col *mongo.Collection }

var _ repository.ActorStore = (*ActorStore)(nil)

func (s *ActorStore) Create(ctx context.Context, a *model.Actor) error {
	a.Email = repository.NormalizeEmail(a.Email)
	if _, err := s.col.InsertOne(ctx, fromActor(a)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrEmailExists
		}
		return err
	}
	return nil
}

func (s *ActorStore) GetByID(ctx context.Context, id string) (model.Actor, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *ActorStore) GetByEmail(ctx context.Context, email string) (model.Actor, error) {
	return s.findOne(ctx, bson.M{"email": repository.NormalizeEmail(email)})
}

func (s *ActorStore) GetMany(ctx context.Context, ids []string) (map[string]model.Actor, error) {
	out := make(map[string]model.Actor, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var docs []actorDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.ID] = d.model()
	}
	return out, nil
}

func (s *ActorStore) findOne(ctx context.Context, filter bson.M) (model.Actor, error) {
	var d actorDoc
	if err := s.col.FindOne(ctx, filter).Decode(&d); err != nil {
		return model.Actor{}, notFound(err)
	}
	return d.model(), nil
}

// TokenStore keeps hashed refresh tokens.
type TokenStore struct{ col *mongo.Collection }

var _ repository.TokenStore = (*TokenStore)(nil)

func (s *TokenStore) StoreRefresh(ctx context.Context, actorID, tokenHash string, exp time.Time) error {
	_, err := s.col.InsertOne(ctx, tokenDoc{
		ID: uuid.NewString(), ActorID: actorID, TokenHash: tokenHash,
		ExpiresAt: exp, CreatedAt: time.Now().UTC(),
	})
	return err
}

func (s *TokenStore) ValidateRefresh(ctx context.Context, tokenHash string) (string, error) {
	var d tokenDoc
	if err := s.col.FindOne(ctx, bson.M{"token_hash": tokenHash}).Decode(&d); err != nil {
		return "", notFound(err)
	}
	if d.RevokedAt != nil || time.Now().UTC().After(d.ExpiresAt) {
		return "", repository.ErrNotFound
	}
	return d.ActorID, nil
}

func (s *TokenStore) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"token_hash": tokenHash, "revoked_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"revoked_at": time.Now().UTC()}})
	return err
}

func (s *TokenStore) RevokeAllForActor(ctx context.Context, actorID string) error {
	_, err := s.col.UpdateMany(ctx,
		bson.M{"actor_id": actorID, "revoked_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"revoked_at": time.Now().UTC()}})
	return err
}

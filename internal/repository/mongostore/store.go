// Package mongostore implements the repository ports on MongoDB.  Each
// entity lives in its own collection keyed by the string ID used
// throughout the service.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/service-marketplace/internal/repository"
)

const (
	colActors   = "actors"
	colTokens   = "refresh_tokens"
	colListings = "listings"
	colBookings = "bookings"
	colReviews  = "reviews"
)

// Connect dials uri and pings the primary before returning.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// New wires every port onto db.  The returned Close disconnects client.
func New(client *mongo.Client, db *mongo.Database) repository.Store {
	return repository.Store{
		Actors:   &ActorStore{col: db.Collection(colActors)},
		Tokens:   &TokenStore{col: db.Collection(colTokens)},
		Listings: &ListingStore{db: db},
		Bookings: &BookingStore{db: db},
		Reviews:  &ReviewStore{col: db.Collection(colReviews)},
		Close:    client.Disconnect,
	}
}

// EnsureIndexes creates the indexes the stores rely on.  It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		colActors: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colTokens: {
			{Keys: bson.D{{Key: "token_hash", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "actor_id", Value: 1}}},
		},
		colListings: {
			{Keys: bson.D{{Key: "provider_id", Value: 1}}},
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "aggregate_rating", Value: -1}, {Key: "created_at", Value: -1}}},
		},
		colBookings: {
			{Keys: bson.D{{Key: "customer_id", Value: 1}}},
			{Keys: bson.D{{Key: "listing_id", Value: 1}}},
		},
		colReviews: {
			{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}

package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

// BookingStore keeps bookings.  Status changes use FindOneAndUpdate with a
// status predicate so each one is a single atomic document write.
type BookingStore struct{ db *mongo.Database }

var _ repository.BookingStore = (*BookingStore)(nil)

func (s *BookingStore) col() *mongo.Collection { return s.db.Collection(colBookings) }

func (s *BookingStore) Create(ctx context.Context, b *model.Booking) error {
	_, err := s.col().InsertOne(ctx, fromBooking(b))
	return err
}

func (s *BookingStore) GetByID(ctx context.Context, id string) (model.Booking, error) {
	var d bookingDoc
	if err := s.col().FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return model.Booking{}, notFound(err)
	}
	return d.model(), nil
}

func (s *BookingStore) ListByCustomer(ctx context.Context, customerID string) ([]model.Booking, error) {
	return s.list(ctx, bson.M{"customer_id": customerID})
}

func (s *BookingStore) ListByProvider(ctx context.Context, providerID string) ([]model.Booking, error) {
	ids, err := s.db.Collection(colListings).Distinct(ctx, "_id", bson.M{"provider_id": providerID})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Booking{}, nil
	}
	return s.list(ctx, bson.M{"listing_id": bson.M{"$in": ids}})
}

func (s *BookingStore) Transition(ctx context.Context, id string, from []model.BookingStatus, to model.BookingStatus, now time.Time) (model.Booking, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$in": repository.StatusStrings(from)}}
	update := bson.M{"$set": bson.M{"status": string(to), "updated_at": now}}
	return s.guardedUpdate(ctx, id, filter, update)
}

// MarkComplete runs a two-stage pipeline update: the first stage ORs the
// marks into the flags, the second derives status from the new flags.
func (s *BookingStore) MarkComplete(ctx context.Context, id string, m model.CompletionMark, now time.Time) (model.Booking, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$in": bson.A{
		string(model.BookingConfirmed), string(model.BookingComplete),
	}}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"customer_completed": bson.M{"$or": bson.A{"$customer_completed", m.Customer}},
			"provider_completed": bson.M{"$or": bson.A{"$provider_completed", m.Provider}},
			"updated_at":         now,
		}}},
		{{Key: "$set", Value: bson.M{
			"status": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{"$customer_completed", "$provider_completed"}},
				string(model.BookingComplete),
				string(model.BookingConfirmed),
			}},
		}}},
	}
	return s.guardedUpdate(ctx, id, filter, update)
}

func (s *BookingStore) HasCompleted(ctx context.Context, customerID, listingID string) (bool, error) {
	n, err := s.col().CountDocuments(ctx, bson.M{
		"customer_id": customerID, "listing_id": listingID, "status": string(model.BookingComplete),
	}, options.Count().SetLimit(1))
	return n > 0, err
}

// guardedUpdate applies update when filter matches.  A miss is resolved
// into ErrNotFound or ErrConflict by reloading the booking.
func (s *BookingStore) guardedUpdate(ctx context.Context, id string, filter, update any) (model.Booking, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d bookingDoc
	err := s.col().FindOneAndUpdate(ctx, filter, update, opts).Decode(&d)
	if err == nil {
		return d.model(), nil
	}
	if err != mongo.ErrNoDocuments {
		return model.Booking{}, err
	}
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	return current, repository.ErrConflict
}

func (s *BookingStore) list(ctx context.Context, filter bson.M) ([]model.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.col().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []bookingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

package mongostore

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

// ListingStore keeps the catalog.  It needs the database handle rather
// than a single collection because DeleteCascade touches bookings and
// reviews as well.
type ListingStore struct{ db *mongo.Database }

var _ repository.ListingStore = (*ListingStore)(nil)

func (s *ListingStore) col() *mongo.Collection { return s.db.Collection(colListings) }

func (s *ListingStore) Create(ctx context.Context, l *model.Listing) error {
	d, err := fromListing(l)
	if err != nil {
		return err
	}
	_, err = s.col().InsertOne(ctx, d)
	return err
}

func (s *ListingStore) GetByID(ctx context.Context, id string) (model.Listing, error) {
	var d listingDoc
	if err := s.col().FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return model.Listing{}, notFound(err)
	}
	return d.model()
}

func (s *ListingStore) Update(ctx context.Context, id, providerID string, f model.ListingFields, now time.Time) (model.Listing, error) {
	price, err := toDecimal128(f.Price)
	if err != nil {
		return model.Listing{}, err
	}
	set := bson.M{
		"title": f.Title, "description": f.Description, "price": price,
		"location": f.Location, "contact": f.Contact, "category": f.Category,
		"updated_at": now,
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d listingDoc
	err = s.col().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "provider_id": providerID}, bson.M{"$set": set}, opts).Decode(&d)
	if err == nil {
		return d.model()
	}
	if err != mongo.ErrNoDocuments {
		return model.Listing{}, err
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return model.Listing{}, err
	}
	return model.Listing{}, repository.ErrForbidden
}

func (s *ListingStore) Search(ctx context.Context, f model.ListingFilter, limit int) ([]model.Listing, error) {
	filter := bson.M{}
	if q := strings.TrimSpace(f.Query); q != "" {
		re := bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"title": re}, bson.M{"description": re}, bson.M{"location": re},
		}
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.ProviderID != "" {
		filter["provider_id"] = f.ProviderID
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "aggregate_rating", Value: -1}, {Key: "created_at", Value: -1},
	})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.col().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []listingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Listing, 0, len(docs))
	for _, d := range docs {
		l, err := d.model()
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *ListingStore) Categories(ctx context.Context) ([]string, error) {
	vals, err := s.col().Distinct(ctx, "category", bson.M{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if c, ok := v.(string); ok {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *ListingStore) SetAggregateRating(ctx context.Context, id string, rating float64) error {
	res, err := s.col().UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"aggregate_rating": rating}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteCascade removes dependents before the listing.  Standalone
// servers have no multi-document transactions, so the order guarantees
// that an interrupted cascade never leaves orphans pointing at a
// deleted listing.
func (s *ListingStore) DeleteCascade(ctx context.Context, id string) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if _, err := s.db.Collection(colBookings).DeleteMany(ctx, bson.M{"listing_id": id}); err != nil {
		return err
	}
	if _, err := s.db.Collection(colReviews).DeleteMany(ctx, bson.M{"listing_id": id}); err != nil {
		return err
	}
	res, err := s.col().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

// ReviewStore keeps reviews.
type ReviewStore struct{ col *mongo.Collection }

var _ repository.ReviewStore = (*ReviewStore)(nil)

func (s *ReviewStore) Create(ctx context.Context, r *model.Review) error {
	_, err := s.col.InsertOne(ctx, reviewDoc{
		ID: r.ID, CustomerID: r.CustomerID, ProviderID: r.ProviderID, ListingID: r.ListingID,
		Rating: r.Rating, Comment: r.Comment, CreatedAt: r.CreatedAt,
	})
	return err
}

func (s *ReviewStore) ListByListing(ctx context.Context, listingID string) ([]model.Review, error) {
	docs, err := s.find(ctx, listingID, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	out := make([]model.Review, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *ReviewStore) Ratings(ctx context.Context, listingID string) ([]int, error) {
	docs, err := s.find(ctx, listingID, options.Find().SetProjection(bson.M{"rating": 1}))
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Rating)
	}
	return out, nil
}

func (s *ReviewStore) find(ctx context.Context, listingID string, opts *options.FindOptions) ([]reviewDoc, error) {
	cur, err := s.col.Find(ctx, bson.M{"listing_id": listingID}, opts)
	if err != nil {
		return nil, err
	}
	var docs []reviewDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

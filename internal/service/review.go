package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/monitoring"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

// ReviewInput is the review form.
type ReviewInput struct {
	Rating  int
	Comment string
}

// ReviewService records reviews and maintains each listing's aggregate
// rating.
type ReviewService struct {
	actors   repository.ActorStore
	listings repository.ListingStore
	bookings repository.BookingStore
	reviews  repository.ReviewStore
	// requireCompleted limits reviews to customers with a complete booking
	// for the listing.
	requireCompleted bool
	now              func() time.Time
}

func NewReviewService(store repository.Store, requireCompleted bool) *ReviewService {
	return &ReviewService{
		actors:           store.Actors,
		listings:         store.Listings,
		bookings:         store.Bookings,
		reviews:          store.Reviews,
		requireCompleted: requireCompleted,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores a review and recomputes the listing's aggregate rating
// from every review on record.
func (s *ReviewService) Submit(ctx context.Context, id model.Identity, listingID string, in ReviewInput) (model.Review, error) {
	if err := requireRole(id, model.RoleCustomer); err != nil {
		return model.Review{}, err
	}
	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return model.Review{}, storeErr("submit review", err)
	}
	if _, err := s.actors.GetByID(ctx, l.ProviderID); err != nil {
		return model.Review{}, storeErr("submit review provider", err)
	}
	if in.Rating < model.MinRating || in.Rating > model.MaxRating {
		return model.Review{}, invalid("rating", "must be between 1 and 5")
	}
	if s.requireCompleted {
		ok, err := s.bookings.HasCompleted(ctx, id.ActorID, l.ID)
		if err != nil {
			return model.Review{}, storeErr("submit review", err)
		}
		if !ok {
			return model.Review{}, unauthorized("a completed booking is required to review this listing")
		}
	}

	r := model.Review{
		ID:         uuid.NewString(),
		CustomerID: id.ActorID,
		ProviderID: l.ProviderID,
		ListingID:  l.ID,
		Rating:     in.Rating,
		Comment:    strings.TrimSpace(in.Comment),
		CreatedAt:  s.now(),
	}
	if err := s.reviews.Create(ctx, &r); err != nil {
		return model.Review{}, storeErr("submit review", err)
	}
	monitoring.RecordReviewSubmitted()
	if _, err := s.Recompute(ctx, l.ID); err != nil {
		return model.Review{}, err
	}
	return r, nil
}

// Recompute rescans the listing's ratings and stores their mean.
func (s *ReviewService) Recompute(ctx context.Context, listingID string) (float64, error) {
	ratings, err := s.reviews.Ratings(ctx, listingID)
	if err != nil {
		return 0, storeErr("recompute rating", err)
	}
	avg := Mean(ratings)
	if err := s.listings.SetAggregateRating(ctx, listingID, avg); err != nil {
		return 0, storeErr("recompute rating", err)
	}
	return avg, nil
}

// List returns a listing's reviews with their authors, newest first.
func (s *ReviewService) List(ctx context.Context, listingID string) ([]model.ReviewDetail, error) {
	if _, err := s.listings.GetByID(ctx, listingID); err != nil {
		return nil, storeErr("list reviews", err)
	}
	reviews, err := s.reviews.ListByListing(ctx, listingID)
	if err != nil {
		return nil, storeErr("list reviews", err)
	}
	return withAuthors(ctx, s.actors, reviews)
}

// Mean is the arithmetic mean of ratings, 0 for none.
func Mean(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings))
}

package repository

import (
	"context"
	"time"

	"github.com/iliyamo/service-marketplace/internal/model"
)

// ActorStore persists registered identities.
type ActorStore interface {
	Create(ctx context.Context, a *model.Actor) error
	GetByID(ctx context.Context, id string) (model.Actor, error)
	GetByEmail(ctx context.Context, email string) (model.Actor, error)
	// GetMany returns the actors found for ids keyed by ID.  Missing ids
	// are simply absent from the map.
	GetMany(ctx context.Context, ids []string) (map[string]model.Actor, error)
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, actorID, tokenHash string, exp time.Time) error
	// ValidateRefresh returns the owning actor ID of a live token or ErrNotFound.
	ValidateRefresh(ctx context.Context, tokenHash string) (string, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForActor(ctx context.Context, actorID string) error
}

// ListingStore persists the catalog.
type ListingStore interface {
	Create(ctx context.Context, l *model.Listing) error
	GetByID(ctx context.Context, id string) (model.Listing, error)
	// Update replaces the editable fields of a listing owned by providerID.
	Update(ctx context.Context, id, providerID string, f model.ListingFields, now time.Time) (model.Listing, error)
	// Search applies the filter and returns listings sorted by aggregate
	// rating descending.  limit <= 0 means no limit.
	Search(ctx context.Context, f model.ListingFilter, limit int) ([]model.Listing, error)
	Categories(ctx context.Context) ([]string, error)
	SetAggregateRating(ctx context.Context, id string, rating float64) error
	// DeleteCascade removes every booking and review referencing the
	// listing, then the listing itself.
	DeleteCascade(ctx context.Context, id string) error
}

// BookingStore persists bookings.  Status changes are conditional
// single-record updates so concurrent callers cannot clobber each other.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id string) (model.Booking, error)
	ListByCustomer(ctx context.Context, customerID string) ([]model.Booking, error)
	ListByProvider(ctx context.Context, providerID string) ([]model.Booking, error)
	// Transition moves the booking to `to` only when its current status is
	// one of `from`.  It returns ErrNotFound for a missing booking and
	// ErrConflict when the status guard did not match.
	Transition(ctx context.Context, id string, from []model.BookingStatus, to model.BookingStatus, now time.Time) (model.Booking, error)
	// MarkComplete sets the flags in m and derives the status in the same
	// write: complete when both flags are set, confirmed otherwise.  Only
	// confirmed or complete bookings match; others yield ErrConflict.
	MarkComplete(ctx context.Context, id string, m model.CompletionMark, now time.Time) (model.Booking, error)
	HasCompleted(ctx context.Context, customerID, listingID string) (bool, error)
}

// ReviewStore persists reviews.
type ReviewStore interface {
	Create(ctx context.Context, r *model.Review) error
	ListByListing(ctx context.Context, listingID string) ([]model.Review, error)
	Ratings(ctx context.Context, listingID string) ([]int, error)
}

// Store bundles every port so backends can be swapped as one unit.
type Store struct {
	Actors   ActorStore
	Tokens   TokenStore
	Listings ListingStore
	Bookings BookingStore
	Reviews  ReviewStore
	// Close releases backend resources.  It may be nil.
	Close func(ctx context.Context) error
}

// StatusStrings converts statuses for use as query arguments.
func StatusStrings(ss []model.BookingStatus) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, string(s))
	}
	return out
}

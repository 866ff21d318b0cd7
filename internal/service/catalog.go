package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/monitoring"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

// FeaturedCount is the number of listings on the landing page.
const FeaturedCount = 3

// ListingInput is the add/edit form.  Price arrives as text and is parsed
// into a decimal.
type ListingInput struct {
	Title       string
	Description string
	Price       string
	Location    string
	Contact     string
	Category    string
}

// SearchResult is the listing page: matching listings plus the category
// facet computed over the whole catalog.
type SearchResult struct {
	Listings   []model.Listing `json:"listings"`
	Categories []string        `json:"categories"`
}

// CatalogService manages listings.
type CatalogService struct {
	actors   repository.ActorStore
	listings repository.ListingStore
	reviews  repository.ReviewStore
	now      func() time.Time
}

func NewCatalogService(store repository.Store) *CatalogService {
	return &CatalogService{
		actors:   store.Actors,
		listings: store.Listings,
		reviews:  store.Reviews,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Add creates a listing owned by the calling provider.
func (s *CatalogService) Add(ctx context.Context, id model.Identity, in ListingInput) (model.Listing, error) {
	if err := requireRole(id, model.RoleProvider); err != nil {
		return model.Listing{}, err
	}
	if _, err := s.actors.GetByID(ctx, id.ActorID); err != nil {
		return model.Listing{}, storeErr("add listing", err)
	}
	f, err := parseListing(in)
	if err != nil {
		return model.Listing{}, err
	}
	now := s.now()
	l := model.Listing{
		ID:          uuid.NewString(),
		Title:       f.Title,
		Description: f.Description,
		Price:       f.Price,
		Location:    f.Location,
		Contact:     f.Contact,
		Category:    f.Category,
		ProviderID:  id.ActorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.listings.Create(ctx, &l); err != nil {
		return model.Listing{}, storeErr("add listing", err)
	}
	monitoring.RecordListingCreated()
	return l, nil
}

// Update edits a listing owned by the caller.  The aggregate rating is
// not part of the form.
func (s *CatalogService) Update(ctx context.Context, id model.Identity, listingID string, in ListingInput) (model.Listing, error) {
	if err := requireRole(id, model.RoleProvider); err != nil {
		return model.Listing{}, err
	}
	f, err := parseListing(in)
	if err != nil {
		return model.Listing{}, err
	}
	l, err := s.listings.Update(ctx, listingID, id.ActorID, f, s.now())
	if err != nil {
		return model.Listing{}, storeErr("update listing", err)
	}
	return l, nil
}

// Get returns a listing with its provider and reviews, newest first.
func (s *CatalogService) Get(ctx context.Context, listingID string) (model.ListingDetail, error) {
	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return model.ListingDetail{}, storeErr("get listing", err)
	}
	provider, err := s.actors.GetByID(ctx, l.ProviderID)
	if err != nil {
		return model.ListingDetail{}, storeErr("get listing provider", err)
	}
	reviews, err := s.reviews.ListByListing(ctx, l.ID)
	if err != nil {
		return model.ListingDetail{}, storeErr("get listing reviews", err)
	}
	details, err := withAuthors(ctx, s.actors, reviews)
	if err != nil {
		return model.ListingDetail{}, err
	}
	return model.ListingDetail{Listing: l, Provider: &provider, Reviews: details}, nil
}

// Search filters the catalog.  A provider only sees their own listings;
// customers and anonymous callers see everything.
func (s *CatalogService) Search(ctx context.Context, id model.Identity, query, category string) (SearchResult, error) {
	f := model.ListingFilter{Query: strings.TrimSpace(query), Category: strings.TrimSpace(category)}
	if id.IsProvider() {
		f.ProviderID = id.ActorID
	}
	listings, err := s.listings.Search(ctx, f, 0)
	if err != nil {
		return SearchResult{}, storeErr("search listings", err)
	}
	cats, err := s.listings.Categories(ctx)
	if err != nil {
		return SearchResult{}, storeErr("search categories", err)
	}
	return SearchResult{Listings: listings, Categories: cats}, nil
}

// Featured returns the n best rated listings.
func (s *CatalogService) Featured(ctx context.Context, n int) ([]model.Listing, error) {
	if n <= 0 {
		n = FeaturedCount
	}
	out, err := s.listings.Search(ctx, model.ListingFilter{}, n)
	if err != nil {
		return nil, storeErr("featured listings", err)
	}
	return out, nil
}

// Categories merges the preset categories with those in use.  Presets
// keep their order; extra categories follow alphabetically.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	used, err := s.listings.Categories(ctx)
	if err != nil {
		return nil, storeErr("categories", err)
	}
	seen := make(map[string]bool, len(model.DefaultCategories)+len(used))
	out := make([]string, 0, len(model.DefaultCategories)+len(used))
	for _, c := range model.DefaultCategories {
		seen[c] = true
		out = append(out, c)
	}
	var extra []string
	for _, c := range used {
		if !seen[c] {
			seen[c] = true
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(out, extra...), nil
}

// Delete removes a listing owned by the caller together with its bookings
// and reviews.
func (s *CatalogService) Delete(ctx context.Context, id model.Identity, listingID string) error {
	if err := requireRole(id, model.RoleProvider); err != nil {
		return err
	}
	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return storeErr("delete listing", err)
	}
	if !isOwner(id, l) {
		return unauthorized("only the owner can delete this listing")
	}
	return storeErr("delete listing", s.listings.DeleteCascade(ctx, l.ID))
}

func parseListing(in ListingInput) (model.ListingFields, error) {
	f := model.ListingFields{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		Contact:     strings.TrimSpace(in.Contact),
		Category:    strings.TrimSpace(in.Category),
	}
	required := []struct{ field, value string }{
		{"title", f.Title},
		{"description", f.Description},
		{"price", strings.TrimSpace(in.Price)},
		{"location", f.Location},
		{"contact", f.Contact},
		{"category", f.Category},
	}
	for _, r := range required {
		if r.value == "" {
			return model.ListingFields{}, invalid(r.field, "is required")
		}
	}
	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil {
		return model.ListingFields{}, invalid("price", "must be a number")
	}
	if price.IsNegative() {
		return model.ListingFields{}, invalid("price", "must not be negative")
	}
	f.Price = price
	return f, nil
}

// withAuthors attaches the author of each review.  Reviews whose author
// no longer exists are kept with a nil Author.
func withAuthors(ctx context.Context, actors repository.ActorStore, reviews []model.Review) ([]model.ReviewDetail, error) {
	ids := make([]string, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.CustomerID)
	}
	authors, err := actors.GetMany(ctx, ids)
	if err != nil {
		return nil, storeErr("review authors", err)
	}
	out := make([]model.ReviewDetail, 0, len(reviews))
	for _, r := range reviews {
		d := model.ReviewDetail{Review: r}
		if a, ok := authors[r.CustomerID]; ok {
			a := a
			d.Author = &a
		}
		out = append(out, d)
	}
	return out, nil
}

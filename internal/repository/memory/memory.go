// Package memory is an in-process implementation of the repository ports.
// It backs tests and local development (STORE_DRIVER=memory).  One mutex
// guards every collection, which gives the same single-record atomicity
// the real backends provide.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

type state struct {
	mu       sync.RWMutex
	actors   map[string]model.Actor
	emails   map[string]string
	tokens   map[string]model.RefreshToken
	listings map[string]model.Listing
	bookings map[string]model.Booking
	reviews  map[string]model.Review
}

// New returns an empty store with every port wired.
func New() repository.Store {
	s := &state{
		actors:   make(map[string]model.Actor),
		emails:   make(map[string]string),
		tokens:   make(map[string]model.RefreshToken),
		listings: make(map[string]model.Listing),
		bookings: make(map[string]model.Booking),
		reviews:  make(map[string]model.Review),
	}
	return repository.Store{
		Actors:   &ActorStore{s},
		Tokens:   &TokenStore{s},
		Listings: &ListingStore{s},
		Bookings: &BookingStore{s},
		Reviews:  &ReviewStore{s},
		Close:    func(context.Context) error { return nil },
	}
}

// ---- actors ----

// ActorStore is the in-memory repository.ActorStore.
type ActorStore struct{ s *state }

var _ repository.ActorStore = (*ActorStore)(nil)

func (a *ActorStore) Create(_ context.Context, actor *model.Actor) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	actor.Email = repository.NormalizeEmail(actor.Email)
	if _, ok := a.s.emails[actor.Email]; ok {
		return repository.ErrEmailExists
	}
	a.s.actors[actor.ID] = *actor
	a.s.emails[actor.Email] = actor.ID
	return nil
}

func (a *ActorStore) GetByID(_ context.Context, id string) (model.Actor, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	actor, ok := a.s.actors[id]
	if !ok {
		return model.Actor{}, repository.ErrNotFound
	}
	return actor, nil
}

func (a *ActorStore) GetByEmail(_ context.Context, email string) (model.Actor, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	id, ok := a.s.emails[repository.NormalizeEmail(email)]
	if !ok {
		return model.Actor{}, repository.ErrNotFound
	}
	return a.s.actors[id], nil
}

func (a *ActorStore) GetMany(_ context.Context, ids []string) (map[string]model.Actor, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	out := make(map[string]model.Actor, len(ids))
	for _, id := range ids {
		if actor, ok := a.s.actors[id]; ok {
			out[id] = actor
		}
	}
	return out, nil
}

// ---- refresh tokens ----

// TokenStore is the in-memory repository.TokenStore keyed by token hash.
type TokenStore struct{ s *state }

var _ repository.TokenStore = (*TokenStore)(nil)

func (t *TokenStore) StoreRefresh(_ context.Context, actorID, tokenHash string, exp time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.tokens[tokenHash] = model.RefreshToken{
		ID: tokenHash, ActorID: actorID, TokenHash: tokenHash, ExpiresAt: exp, CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (t *TokenStore) ValidateRefresh(_ context.Context, tokenHash string) (string, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	tok, ok := t.s.tokens[tokenHash]
	if !ok || tok.RevokedAt != nil || time.Now().UTC().After(tok.ExpiresAt) {
		return "", repository.ErrNotFound
	}
	return tok.ActorID, nil
}

func (t *TokenStore) RevokeByHash(_ context.Context, tokenHash string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if tok, ok := t.s.tokens[tokenHash]; ok && tok.RevokedAt == nil {
		now := time.Now().UTC()
		tok.RevokedAt = &now
		t.s.tokens[tokenHash] = tok
	}
	return nil
}

func (t *TokenStore) RevokeAllForActor(_ context.Context, actorID string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	now := time.Now().UTC()
	for h, tok := range t.s.tokens {
		if tok.ActorID == actorID && tok.RevokedAt == nil {
			tok.RevokedAt = &now
			t.s.tokens[h] = tok
		}
	}
	return nil
}

// ---- listings ----

// ListingStore is the in-memory repository.ListingStore.
type ListingStore struct{ s *state }

var _ repository.ListingStore = (*ListingStore)(nil)

func (l *ListingStore) Create(_ context.Context, listing *model.Listing) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.listings[listing.ID] = *listing
	return nil
}

func (l *ListingStore) GetByID(_ context.Context, id string) (model.Listing, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	listing, ok := l.s.listings[id]
	if !ok {
		return model.Listing{}, repository.ErrNotFound
	}
	return listing, nil
}

func (l *ListingStore) Update(_ context.Context, id, providerID string, f model.ListingFields, now time.Time) (model.Listing, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	listing, ok := l.s.listings[id]
	if !ok {
		return model.Listing{}, repository.ErrNotFound
	}
	if listing.ProviderID != providerID {
		return model.Listing{}, repository.ErrForbidden
	}
	listing.Title, listing.Description, listing.Price = f.Title, f.Description, f.Price
	listing.Location, listing.Contact, listing.Category = f.Location, f.Contact, f.Category
	listing.UpdatedAt = now
	l.s.listings[id] = listing
	return listing, nil
}

func (l *ListingStore) Search(_ context.Context, f model.ListingFilter, limit int) ([]model.Listing, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := []model.Listing{}
	for _, listing := range l.s.listings {
		if f.ProviderID != "" && listing.ProviderID != f.ProviderID {
			continue
		}
		if f.Category != "" && listing.Category != f.Category {
			continue
		}
		if q != "" && !containsFold(q, listing.Title, listing.Description, listing.Location) {
			continue
		}
		out = append(out, listing)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AggregateRating != out[j].AggregateRating {
			return out[i].AggregateRating > out[j].AggregateRating
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *ListingStore) Categories(_ context.Context) ([]string, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	seen := map[string]struct{}{}
	out := []string{}
	for _, listing := range l.s.listings {
		if _, ok := seen[listing.Category]; ok {
			continue
		}
		seen[listing.Category] = struct{}{}
		out = append(out, listing.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (l *ListingStore) SetAggregateRating(_ context.Context, id string, rating float64) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	listing, ok := l.s.listings[id]
	if !ok {
		return repository.ErrNotFound
	}
	listing.AggregateRating = rating
	l.s.listings[id] = listing
	return nil
}

func (l *ListingStore) DeleteCascade(_ context.Context, id string) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if _, ok := l.s.listings[id]; !ok {
		return repository.ErrNotFound
	}
	for bid, b := range l.s.bookings {
		if b.ListingID == id {
			delete(l.s.bookings, bid)
		}
	}
	for rid, r := range l.s.reviews {
		if r.ListingID == id {
			delete(l.s.reviews, rid)
		}
	}
	delete(l.s.listings, id)
	return nil
}

func containsFold(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// ---- bookings ----

// BookingStore is the in-memory repository.BookingStore.
type BookingStore struct{ s *state }

var _ repository.BookingStore = (*BookingStore)(nil)

func (b *BookingStore) Create(_ context.Context, booking *model.Booking) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	b.s.bookings[booking.ID] = *booking
	return nil
}

func (b *BookingStore) GetByID(_ context.Context, id string) (model.Booking, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	booking, ok := b.s.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	return booking, nil
}

func (b *BookingStore) ListByCustomer(_ context.Context, customerID string) ([]model.Booking, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	return b.filter(func(bk model.Booking) bool { return bk.CustomerID == customerID }), nil
}

func (b *BookingStore) ListByProvider(_ context.Context, providerID string) ([]model.Booking, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	return b.filter(func(bk model.Booking) bool {
		l, ok := b.s.listings[bk.ListingID]
		return ok && l.ProviderID == providerID
	}), nil
}

func (b *BookingStore) Transition(_ context.Context, id string, from []model.BookingStatus, to model.BookingStatus, now time.Time) (model.Booking, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	booking, ok := b.s.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	if !statusIn(booking.Status, from) {
		return booking, repository.ErrConflict
	}
	booking.Status = to
	booking.UpdatedAt = now
	b.s.bookings[id] = booking
	return booking, nil
}

func (b *BookingStore) MarkComplete(_ context.Context, id string, m model.CompletionMark, now time.Time) (model.Booking, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	booking, ok := b.s.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	if !statusIn(booking.Status, []model.BookingStatus{model.BookingConfirmed, model.BookingComplete}) {
		return booking, repository.ErrConflict
	}
	booking.CustomerCompleted = booking.CustomerCompleted || m.Customer
	booking.ProviderCompleted = booking.ProviderCompleted || m.Provider
	if booking.CustomerCompleted && booking.ProviderCompleted {
		booking.Status = model.BookingComplete
	} else {
		booking.Status = model.BookingConfirmed
	}
	booking.UpdatedAt = now
	b.s.bookings[id] = booking
	return booking, nil
}

func (b *BookingStore) HasCompleted(_ context.Context, customerID, listingID string) (bool, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	for _, bk := range b.s.bookings {
		if bk.CustomerID == customerID && bk.ListingID == listingID && bk.Status == model.BookingComplete {
			return true, nil
		}
	}
	return false, nil
}

func (b *BookingStore) filter(keep func(model.Booking) bool) []model.Booking {
	out := []model.Booking{}
	for _, bk := range b.s.bookings {
		if keep(bk) {
			out = append(out, bk)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func statusIn(s model.BookingStatus, set []model.BookingStatus) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// ---- reviews ----

// ReviewStore is the in-memory repository.ReviewStore.
type ReviewStore struct{ s *state }

var _ repository.ReviewStore = (*ReviewStore)(nil)

func (r *ReviewStore) Create(_ context.Context, rv *model.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.reviews[rv.ID] = *rv
	return nil
}

func (r *ReviewStore) ListByListing(_ context.Context, listingID string) ([]model.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Review{}
	for _, rv := range r.s.reviews {
		if rv.ListingID == listingID {
			out = append(out, rv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *ReviewStore) Ratings(ctx context.Context, listingID string) ([]int, error) {
	reviews, _ := r.ListByListing(ctx, listingID)
	out := make([]int, 0, len(reviews))
	for _, rv := range reviews {
		out = append(out, rv.Rating)
	}
	return out, nil
}

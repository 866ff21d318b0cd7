// Package storetest holds the behavioural checks every repository.Store
// backend must pass.  Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) repository.Store

// Run executes the conformance suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Actors", func(t *testing.T) { testActors(t, newStore(t)) })
	t.Run("Tokens", func(t *testing.T) { testTokens(t, newStore(t)) })
	t.Run("ListingSearch", func(t *testing.T) { testListingSearch(t, newStore(t)) })
	t.Run("ListingUpdate", func(t *testing.T) { testListingUpdate(t, newStore(t)) })
	t.Run("BookingTransitions", func(t *testing.T) { testBookingTransitions(t, newStore(t)) })
	t.Run("ConcurrentCompletion", func(t *testing.T) { testConcurrentCompletion(t, newStore(t)) })
	t.Run("Reviews", func(t *testing.T) { testReviews(t, newStore(t)) })
	t.Run("DeleteCascade", func(t *testing.T) { testDeleteCascade(t, newStore(t)) })
}

var epoch = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newActor(t *testing.T, s repository.Store, email string, role model.Role) model.Actor {
	t.Helper()
	a := model.Actor{ID: uuid.NewString(), Name: "n", Email: email, Role: role,
		PasswordHash: "h", CreatedAt: epoch}
	require.NoError(t, s.Actors.Create(context.Background(), &a))
	return a
}

func newListing(t *testing.T, s repository.Store, providerID, title, category string, offset time.Duration) model.Listing {
	t.Helper()
	l := model.Listing{ID: uuid.NewString(), Title: title, Description: "desc", Location: "Austin",
		Price: decimal.RequireFromString("25.50"), Category: category, ProviderID: providerID,
		CreatedAt: epoch.Add(offset), UpdatedAt: epoch.Add(offset)}
	require.NoError(t, s.Listings.Create(context.Background(), &l))
	return l
}

func newBooking(t *testing.T, s repository.Store, customerID, listingID string, status model.BookingStatus) model.Booking {
	t.Helper()
	b := model.Booking{ID: uuid.NewString(), CustomerID: customerID, ListingID: listingID,
		Date: epoch.AddDate(0, 0, 7), Hours: 2, Status: status, CreatedAt: epoch, UpdatedAt: epoch}
	require.NoError(t, s.Bookings.Create(context.Background(), &b))
	return b
}

func testActors(t *testing.T, s repository.Store) {
	ctx := context.Background()
	a := newActor(t, s, "Ann@Example.com ", model.RoleCustomer)
	assert.Equal(t, "ann@example.com", a.Email)

	dup := model.Actor{ID: uuid.NewString(), Email: "ann@example.COM", Role: model.RoleProvider, CreatedAt: epoch}
	assert.ErrorIs(t, s.Actors.Create(ctx, &dup), repository.ErrEmailExists)

	got, err := s.Actors.GetByEmail(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, model.RoleCustomer, got.Role)

	_, err = s.Actors.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	many, err := s.Actors.GetMany(ctx, []string{a.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, many, 1)
	assert.Equal(t, a.Email, many[a.ID].Email)
}

func testTokens(t *testing.T, s repository.Store) {
	ctx := context.Background()
	require.NoError(t, s.Tokens.StoreRefresh(ctx, "actor-1", "h1", time.Now().Add(time.Hour)))
	require.NoError(t, s.Tokens.StoreRefresh(ctx, "actor-1", "h2", time.Now().Add(time.Hour)))
	require.NoError(t, s.Tokens.StoreRefresh(ctx, "actor-1", "old", time.Now().Add(-time.Hour)))

	id, err := s.Tokens.ValidateRefresh(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "actor-1", id)

	_, err = s.Tokens.ValidateRefresh(ctx, "old")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, s.Tokens.RevokeByHash(ctx, "h1"))
	_, err = s.Tokens.ValidateRefresh(ctx, "h1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, s.Tokens.RevokeAllForActor(ctx, "actor-1"))
	_, err = s.Tokens.ValidateRefresh(ctx, "h2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testListingSearch(t *testing.T, s repository.Store) {
	ctx := context.Background()
	p := newActor(t, s, "p@example.com", model.RoleProvider)
	a := newListing(t, s, p.ID, "Deep Cleaning", "Cleaning", 0)
	b := newListing(t, s, p.ID, "Lawn mowing", "Gardening", time.Minute)
	c := newListing(t, s, p.ID, "Window cleaning 100%", "Cleaning", 2*time.Minute)
	require.NoError(t, s.Listings.SetAggregateRating(ctx, a.ID, 4.5))
	require.NoError(t, s.Listings.SetAggregateRating(ctx, b.ID, 3))

	all, err := s.Listings.Search(ctx, model.ListingFilter{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, ids(all))

	hits, err := s.Listings.Search(ctx, model.ListingFilter{Query: "CLEAN"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, c.ID}, ids(hits))

	hits, err = s.Listings.Search(ctx, model.ListingFilter{Query: "100%"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, ids(hits))

	hits, err = s.Listings.Search(ctx, model.ListingFilter{Query: "austin", Category: "Gardening"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids(hits))

	top, err := s.Listings.Search(ctx, model.ListingFilter{}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, ids(top))

	got, err := s.Listings.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("25.5")))
	assert.InDelta(t, 4.5, got.AggregateRating, 1e-9)

	cats, err := s.Listings.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cleaning", "Gardening"}, cats)

	assert.ErrorIs(t, s.Listings.SetAggregateRating(ctx, uuid.NewString(), 1), repository.ErrNotFound)
}

func testListingUpdate(t *testing.T, s repository.Store) {
	ctx := context.Background()
	p := newActor(t, s, "p@example.com", model.RoleProvider)
	other := newActor(t, s, "q@example.com", model.RoleProvider)
	l := newListing(t, s, p.ID, "Old", "Cleaning", 0)

	f := model.ListingFields{Title: "New", Description: "d2", Price: decimal.NewFromInt(40),
		Location: "Dallas", Contact: "555", Category: "Moving"}
	updated, err := s.Listings.Update(ctx, l.ID, p.ID, f, epoch.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, "Moving", updated.Category)
	assert.Equal(t, p.ID, updated.ProviderID)

	_, err = s.Listings.Update(ctx, l.ID, other.ID, f, epoch)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	_, err = s.Listings.Update(ctx, uuid.NewString(), p.ID, f, epoch)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testBookingTransitions(t *testing.T, s repository.Store) {
	ctx := context.Background()
	p := newActor(t, s, "p@example.com", model.RoleProvider)
	c := newActor(t, s, "c@example.com", model.RoleCustomer)
	l := newListing(t, s, p.ID, "Job", "Cleaning", 0)
	b := newBooking(t, s, c.ID, l.ID, model.BookingPending)

	pending := []model.BookingStatus{model.BookingPending}
	got, err := s.Bookings.Transition(ctx, b.ID, pending, model.BookingConfirmed, epoch.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, got.Status)

	got, err = s.Bookings.Transition(ctx, b.ID, pending, model.BookingCancelled, epoch)
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.Equal(t, model.BookingConfirmed, got.Status)

	_, err = s.Bookings.Transition(ctx, uuid.NewString(), pending, model.BookingCancelled, epoch)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err = s.Bookings.MarkComplete(ctx, b.ID, model.CompletionMark{Customer: true}, epoch)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, got.Status)
	assert.True(t, got.CustomerCompleted)
	assert.False(t, got.ProviderCompleted)

	got, err = s.Bookings.MarkComplete(ctx, b.ID, model.CompletionMark{Provider: true}, epoch)
	require.NoError(t, err)
	assert.Equal(t, model.BookingComplete, got.Status)

	done, err := s.Bookings.HasCompleted(ctx, c.ID, l.ID)
	require.NoError(t, err)
	assert.True(t, done)

	pend := newBooking(t, s, c.ID, l.ID, model.BookingPending)
	_, err = s.Bookings.MarkComplete(ctx, pend.ID, model.CompletionMark{Customer: true}, epoch)
	assert.ErrorIs(t, err, repository.ErrConflict)

	mine, err := s.Bookings.ListByCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	theirs, err := s.Bookings.ListByProvider(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, theirs, 2)
	none, err := s.Bookings.ListByProvider(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// Both parties mark completion at the same moment; the booking must end
// complete with both flags set regardless of interleaving.
func testConcurrentCompletion(t *testing.T, s repository.Store) {
	ctx := context.Background()
	p := newActor(t, s, "p@example.com", model.RoleProvider)
	c := newActor(t, s, "c@example.com", model.RoleCustomer)
	l := newListing(t, s, p.ID, "Job", "Cleaning", 0)
	b := newBooking(t, s, c.ID, l.ID, model.BookingConfirmed)

	var wg sync.WaitGroup
	for _, m := range []model.CompletionMark{{Customer: true}, {Provider: true}} {
		wg.Add(1)
		go func(m model.CompletionMark) {
			defer wg.Done()
			_, err := s.Bookings.MarkComplete(ctx, b.ID, m, epoch)
			assert.NoError(t, err)
		}(m)
	}
	wg.Wait()

	got, err := s.Bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingComplete, got.Status)
	assert.True(t, got.CustomerCompleted && got.ProviderCompleted)
}

func testReviews(t *testing.T, s repository.Store) {
	ctx := context.Background()
	lid := uuid.NewString()
	for i, rating := range []int{5, 3, 4} {
		rv := model.Review{ID: uuid.NewString(), CustomerID: "c", ProviderID: "p", ListingID: lid,
			Rating: rating, Comment: "ok", CreatedAt: epoch.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, s.Reviews.Create(ctx, &rv))
	}
	list, err := s.Reviews.ListByListing(ctx, lid)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 4, list[0].Rating)
	assert.Equal(t, 5, list[2].Rating)

	ratings, err := s.Reviews.Ratings(ctx, lid)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{5, 3, 4}, ratings)
}

func testDeleteCascade(t *testing.T, s repository.Store) {
	ctx := context.Background()
	p := newActor(t, s, "p@example.com", model.RoleProvider)
	c := newActor(t, s, "c@example.com", model.RoleCustomer)
	l := newListing(t, s, p.ID, "Job", "Cleaning", 0)
	keep := newListing(t, s, p.ID, "Other", "Cleaning", time.Minute)
	b := newBooking(t, s, c.ID, l.ID, model.BookingPending)
	kb := newBooking(t, s, c.ID, keep.ID, model.BookingPending)
	rv := model.Review{ID: uuid.NewString(), CustomerID: c.ID, ProviderID: p.ID, ListingID: l.ID,
		Rating: 4, CreatedAt: epoch}
	require.NoError(t, s.Reviews.Create(ctx, &rv))

	require.NoError(t, s.Listings.DeleteCascade(ctx, l.ID))

	_, err := s.Listings.GetByID(ctx, l.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.Bookings.GetByID(ctx, b.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	ratings, err := s.Reviews.Ratings(ctx, l.ID)
	require.NoError(t, err)
	assert.Empty(t, ratings)

	_, err = s.Bookings.GetByID(ctx, kb.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, s.Listings.DeleteCascade(ctx, l.ID), repository.ErrNotFound)
}

func ids(ls []model.Listing) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.ID)
	}
	return out
}

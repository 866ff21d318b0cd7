package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/model"
)

func TestAddListingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	valid := ListingInput{Title: "Clean", Description: "d", Price: "20", Location: "x", Contact: "c", Category: "Cleaning"}

	_, err := f.catalog.Add(ctx, f.customer, valid)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.catalog.Add(ctx, model.Identity{}, valid)
	assert.ErrorIs(t, err, ErrUnauthorized)

	for _, tc := range []struct {
		field  string
		mutate func(*ListingInput)
	}{
		{"title", func(in *ListingInput) { in.Title = "  " }},
		{"price", func(in *ListingInput) { in.Price = "" }},
		{"price", func(in *ListingInput) { in.Price = "abc" }},
		{"price", func(in *ListingInput) { in.Price = "-1" }},
		{"category", func(in *ListingInput) { in.Category = "" }},
	} {
		in := valid
		tc.mutate(&in)
		_, err := f.catalog.Add(ctx, f.provider, in)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, tc.field, ve.Field)
	}

	l, err := f.catalog.Add(ctx, f.provider, valid)
	require.NoError(t, err)
	assert.Equal(t, f.provider.ActorID, l.ProviderID)
	assert.Zero(t, l.AggregateRating)
	assert.Equal(t, "20", l.Price.String())
}

func TestSearchNarrowsForProviders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.listing(t, "Deep clean", "Cleaning", "20")
	other := f.actor(t, model.RoleProvider)
	theirs, err := f.catalog.Add(ctx, other, ListingInput{Title: "Garden care", Description: "weeding",
		Price: "35.5", Location: "Dallas", Contact: "c", Category: "Gardening"})
	require.NoError(t, err)

	res, err := f.catalog.Search(ctx, f.customer, "", "")
	require.NoError(t, err)
	assert.Len(t, res.Listings, 2)
	assert.Equal(t, []string{"Cleaning", "Gardening"}, res.Categories)

	res, err = f.catalog.Search(ctx, model.Identity{}, "DALLAS", "")
	require.NoError(t, err)
	require.Len(t, res.Listings, 1)
	assert.Equal(t, theirs.ID, res.Listings[0].ID)

	res, err = f.catalog.Search(ctx, f.provider, "", "")
	require.NoError(t, err)
	require.Len(t, res.Listings, 1)
	assert.Equal(t, mine.ID, res.Listings[0].ID)
	assert.Len(t, res.Categories, 2, "facet always spans the whole catalog")

	res, err = f.catalog.Search(ctx, f.customer, "clean", "Gardening")
	require.NoError(t, err)
	assert.Empty(t, res.Listings)
}

func TestSearchSortsByRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	low := f.listing(t, "A", "Cleaning", "1")
	high := f.listing(t, "B", "Cleaning", "1")
	mid := f.listing(t, "C", "Cleaning", "1")
	require.NoError(t, f.store.Listings.SetAggregateRating(ctx, high.ID, 5))
	require.NoError(t, f.store.Listings.SetAggregateRating(ctx, mid.ID, 3))

	res, err := f.catalog.Search(ctx, model.Identity{}, "", "")
	require.NoError(t, err)
	require.Len(t, res.Listings, 3)
	assert.Equal(t, []string{high.ID, mid.ID, low.ID},
		[]string{res.Listings[0].ID, res.Listings[1].ID, res.Listings[2].ID})

	top, err := f.catalog.Featured(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, top, FeaturedCount)
	top, err = f.catalog.Featured(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, high.ID, top[0].ID)
}

func TestCategoriesMergePresets(t *testing.T) {
	f := newFixture(t)
	f.listing(t, "Bike fix", "Bicycles", "10")
	f.listing(t, "Clean", "Cleaning", "10")

	cats, err := f.catalog.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultCategories, cats[:len(model.DefaultCategories)])
	assert.Equal(t, []string{"Bicycles"}, cats[len(model.DefaultCategories):])
}

func TestUpdateListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.listing(t, "Clean", "Cleaning", "10")
	in := ListingInput{Title: "Cleaner", Description: "d", Price: "12.50", Location: "x", Contact: "c", Category: "Cleaning"}

	other := f.actor(t, model.RoleProvider)
	_, err := f.catalog.Update(ctx, other, l.ID, in)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.catalog.Update(ctx, f.provider, "missing", in)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.catalog.Update(ctx, f.provider, l.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Cleaner", got.Title)
	assert.Equal(t, "12.5", got.Price.String())
}

func TestGetListingDetail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.listing(t, "Clean", "Cleaning", "10")
	_, err := f.reviews.Submit(ctx, f.customer, l.ID, ReviewInput{Rating: 4, Comment: "good"})
	require.NoError(t, err)

	d, err := f.catalog.Get(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, d.Provider)
	assert.Equal(t, f.provider.ActorID, d.Provider.ID)
	require.Len(t, d.Reviews, 1)
	require.NotNil(t, d.Reviews[0].Author)
	assert.Equal(t, f.customer.ActorID, d.Reviews[0].Author.ID)
	assert.InDelta(t, 4.0, d.Listing.AggregateRating, 1e-9)

	_, err = f.catalog.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.listing(t, "Clean", "Cleaning", "10")
	b := f.book(t, l.ID)
	_, err := f.reviews.Submit(ctx, f.customer, l.ID, ReviewInput{Rating: 5})
	require.NoError(t, err)

	other := f.actor(t, model.RoleProvider)
	assert.ErrorIs(t, f.catalog.Delete(ctx, other, l.ID), ErrUnauthorized)
	assert.ErrorIs(t, f.catalog.Delete(ctx, f.customer, l.ID), ErrUnauthorized)
	_, err = f.bookings.Get(ctx, f.customer, b.ID)
	require.NoError(t, err, "rejected delete must not mutate")

	require.NoError(t, f.catalog.Delete(ctx, f.provider, l.ID))
	_, err = f.catalog.Get(ctx, l.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.bookings.Get(ctx, f.customer, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	ratings, err := f.store.Reviews.Ratings(ctx, l.ID)
	require.NoError(t, err)
	assert.Empty(t, ratings)

	assert.ErrorIs(t, f.catalog.Delete(ctx, f.provider, l.ID), ErrNotFound)
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/queue"
	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/repository/memory"
)

// recorder captures published events and can be told to fail.
type recorder struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	fail   bool
}

func (r *recorder) PublishBookingEvent(_ context.Context, ev queue.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broker down")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store    repository.Store
	events   *recorder
	catalog  *CatalogService
	bookings *BookingService
	reviews  *ReviewService
	provider model.Identity
	customer model.Identity
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		store:   store,
		events:  &recorder{},
		catalog: NewCatalogService(store),
		reviews: NewReviewService(store, false),
	}
	f.bookings = NewBookingService(store, f.events, zerolog.Nop())
	f.provider = f.actor(t, model.RoleProvider)
	f.customer = f.actor(t, model.RoleCustomer)
	return f
}

func (f *fixture) actor(t testing.TB, role model.Role) model.Identity {
	t.Helper()
	a := model.Actor{ID: uuid.NewString(), Name: string(role), Email: uuid.NewString() + "@example.com",
		Contact: "555-0100", Role: role, PasswordHash: "x", CreatedAt: time.Now().UTC()}
	require.NoError(t, f.store.Actors.Create(context.Background(), &a))
	return model.Identity{ActorID: a.ID, Role: role}
}

func (f *fixture) listing(t testing.TB, title, category, price string) model.Listing {
	t.Helper()
	l, err := f.catalog.Add(context.Background(), f.provider, ListingInput{
		Title: title, Description: "We do " + title, Price: price,
		Location: "Austin", Contact: "555-0101", Category: category,
	})
	require.NoError(t, err)
	return l
}

func (f *fixture) book(t testing.TB, listingID string) model.Booking {
	t.Helper()
	b, err := f.bookings.Create(context.Background(), f.customer, BookingInput{
		ListingID: listingID, Date: "2024-06-01", Hours: "3",
	})
	require.NoError(t, err)
	return b
}

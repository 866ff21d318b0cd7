package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/service-marketplace/internal/model"
	"github.com/iliyamo/service-marketplace/internal/monitoring"
	"github.com/iliyamo/service-marketplace/internal/queue"
	"github.com/iliyamo/service-marketplace/internal/repository"
)

// DateLayout is the accepted calendar date format for bookings.  RFC 3339
// timestamps are accepted as well.
const DateLayout = "2006-01-02"

// BookingInput is the booking form.  Hours is text so that a missing or
// unparsable value can be told apart from zero.
type BookingInput struct {
	ListingID string
	Date      string
	Hours     string
}

// BookingService runs the booking state machine:
//
//	pending -> confirmed   (owning provider)
//	pending -> cancelled   (booking customer)
//	confirmed -> complete  (once both parties have marked completion)
//
// cancelled and complete are terminal.
type BookingService struct {
	actors   repository.ActorStore
	listings repository.ListingStore
	bookings repository.BookingStore
	events   EventPublisher
	log      zerolog.Logger
	now      func() time.Time
}

func NewBookingService(store repository.Store, events EventPublisher, log zerolog.Logger) *BookingService {
	if events == nil {
		events = NoopPublisher{}
	}
	return &BookingService{
		actors:   store.Actors,
		listings: store.Listings,
		bookings: store.Bookings,
		events:   events,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create books a listing for the calling customer.  Hours outside [1,8]
// are clamped.  Overlapping bookings are allowed.
func (s *BookingService) Create(ctx context.Context, id model.Identity, in BookingInput) (b model.Booking, err error) {
	defer func() { monitoring.RecordBookingTransition("create", Class(err)) }()

	if err := requireRole(id, model.RoleCustomer); err != nil {
		return model.Booking{}, err
	}
	l, err := s.listings.GetByID(ctx, in.ListingID)
	if err != nil {
		return model.Booking{}, storeErr("create booking", err)
	}
	date, err := parseDate(in.Date)
	if err != nil {
		return model.Booking{}, err
	}
	hours, err := parseHours(in.Hours)
	if err != nil {
		return model.Booking{}, err
	}
	now := s.now()
	b = model.Booking{
		ID:         uuid.NewString(),
		CustomerID: id.ActorID,
		ListingID:  l.ID,
		Date:       date,
		Hours:      model.ClampHours(hours),
		Status:     model.BookingPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.bookings.Create(ctx, &b); err != nil {
		return model.Booking{}, storeErr("create booking", err)
	}
	s.publish(ctx, queue.EventBookingCreated, id, b, l)
	return b, nil
}

// Cancel withdraws a pending booking.  Cancelling a cancelled booking is
// a no-op; any other state is rejected.
func (s *BookingService) Cancel(ctx context.Context, id model.Identity, bookingID string) (b model.Booking, err error) {
	result := "ok"
	defer func() { monitoring.RecordBookingTransition("cancel", classOr(err, result)) }()

	b, err = s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return model.Booking{}, storeErr("cancel booking", err)
	}
	if !isBookingCustomer(id, b) {
		return model.Booking{}, unauthorized("only the booking's customer can cancel it")
	}
	switch b.Status {
	case model.BookingCancelled:
		result = "noop"
		return b, nil
	case model.BookingPending:
	default:
		return model.Booking{}, invalidTransition("only pending bookings can be cancelled")
	}

	updated, err := s.bookings.Transition(ctx, b.ID,
		[]model.BookingStatus{model.BookingPending}, model.BookingCancelled, s.now())
	if errors.Is(err, repository.ErrConflict) {
		// Lost a race; a concurrent cancel reaches the same end state.
		if updated.Status == model.BookingCancelled {
			result = "noop"
			return updated, nil
		}
		return model.Booking{}, invalidTransition("only pending bookings can be cancelled")
	}
	if err != nil {
		return model.Booking{}, storeErr("cancel booking", err)
	}
	s.publishWithListing(ctx, queue.EventBookingCancelled, id, updated)
	return updated, nil
}

// Confirm accepts a pending booking on one of the caller's listings.
// Confirming a confirmed booking is a no-op; terminal bookings cannot be
// confirmed.
func (s *BookingService) Confirm(ctx context.Context, id model.Identity, bookingID string) (b model.Booking, err error) {
	result := "ok"
	defer func() { monitoring.RecordBookingTransition("confirm", classOr(err, result)) }()

	b, l, err := s.load(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if !isOwner(id, l) {
		return model.Booking{}, unauthorized("only the listing's provider can confirm")
	}
	switch b.Status {
	case model.BookingConfirmed:
		result = "noop"
		return b, nil
	case model.BookingPending:
	default:
		return model.Booking{}, invalidTransition("booking is " + string(b.Status))
	}

	updated, err := s.bookings.Transition(ctx, b.ID,
		[]model.BookingStatus{model.BookingPending}, model.BookingConfirmed, s.now())
	if errors.Is(err, repository.ErrConflict) {
		if updated.Status == model.BookingConfirmed {
			result = "noop"
			return updated, nil
		}
		return model.Booking{}, invalidTransition("booking is " + string(updated.Status))
	}
	if err != nil {
		return model.Booking{}, storeErr("confirm booking", err)
	}
	s.publish(ctx, queue.EventBookingConfirmed, id, updated, l)
	return updated, nil
}

// Complete marks the job done on behalf of the caller.  The customer and
// the owning provider mark independently; the booking becomes complete
// once both have.  Flags are never cleared.
func (s *BookingService) Complete(ctx context.Context, id model.Identity, bookingID string) (b model.Booking, err error) {
	defer func() { monitoring.RecordBookingTransition("complete", Class(err)) }()

	b, l, err := s.load(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if !isParticipant(id, b, l) {
		return model.Booking{}, unauthorized("only the booking's customer or provider can complete it")
	}
	if b.Status != model.BookingConfirmed && b.Status != model.BookingComplete {
		return model.Booking{}, invalidTransition("only confirmed bookings can be completed")
	}
	mark := model.CompletionMark{
		Customer: isBookingCustomer(id, b),
		Provider: isOwner(id, l),
	}
	updated, err := s.bookings.MarkComplete(ctx, b.ID, mark, s.now())
	if errors.Is(err, repository.ErrConflict) {
		return model.Booking{}, invalidTransition("only confirmed bookings can be completed")
	}
	if err != nil {
		return model.Booking{}, storeErr("complete booking", err)
	}
	ev := queue.EventCompletionMarked
	if updated.Status == model.BookingComplete && b.Status != model.BookingComplete {
		ev = queue.EventBookingCompleted
	}
	s.publish(ctx, ev, id, updated, l)
	return updated, nil
}

// List returns the caller's bookings: a provider sees bookings on owned
// listings, a customer their own.
func (s *BookingService) List(ctx context.Context, id model.Identity) ([]model.BookingDetail, error) {
	var (
		list []model.Booking
		err  error
	)
	switch {
	case id.IsProvider():
		list, err = s.bookings.ListByProvider(ctx, id.ActorID)
	case id.IsCustomer():
		list, err = s.bookings.ListByCustomer(ctx, id.ActorID)
	default:
		return nil, unauthorized("authentication required")
	}
	if err != nil {
		return nil, storeErr("list bookings", err)
	}
	return s.details(ctx, list)
}

// Get returns one booking to either of its participants.
func (s *BookingService) Get(ctx context.Context, id model.Identity, bookingID string) (model.BookingDetail, error) {
	b, l, err := s.load(ctx, bookingID)
	if err != nil {
		return model.BookingDetail{}, err
	}
	if !isParticipant(id, b, l) {
		return model.BookingDetail{}, unauthorized("not a participant of this booking")
	}
	out, err := s.details(ctx, []model.Booking{b})
	if err != nil {
		return model.BookingDetail{}, err
	}
	return out[0], nil
}

func (s *BookingService) load(ctx context.Context, bookingID string) (model.Booking, model.Listing, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return model.Booking{}, model.Listing{}, storeErr("load booking", err)
	}
	l, err := s.listings.GetByID(ctx, b.ListingID)
	if err != nil {
		return model.Booking{}, model.Listing{}, storeErr("load booked listing", err)
	}
	return b, l, nil
}

// details populates listing, provider and customer for each booking.
func (s *BookingService) details(ctx context.Context, list []model.Booking) ([]model.BookingDetail, error) {
	listings := make(map[string]model.Listing)
	actorIDs := make([]string, 0, 2*len(list))
	for _, b := range list {
		if _, ok := listings[b.ListingID]; !ok {
			l, err := s.listings.GetByID(ctx, b.ListingID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, storeErr("booking listing", err)
			}
			listings[b.ListingID] = l
			actorIDs = append(actorIDs, l.ProviderID)
		}
		actorIDs = append(actorIDs, b.CustomerID)
	}
	actors, err := s.actors.GetMany(ctx, actorIDs)
	if err != nil {
		return nil, storeErr("booking actors", err)
	}
	lookup := func(id string) *model.Actor {
		if a, ok := actors[id]; ok {
			return &a
		}
		return nil
	}
	out := make([]model.BookingDetail, 0, len(list))
	for _, b := range list {
		d := model.BookingDetail{Booking: b, Customer: lookup(b.CustomerID)}
		if l := listings[b.ListingID]; l.ID != "" {
			l := l
			d.Listing = &l
			d.Provider = lookup(l.ProviderID)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *BookingService) publishWithListing(ctx context.Context, typ string, id model.Identity, b model.Booking) {
	l, err := s.listings.GetByID(ctx, b.ListingID)
	if err != nil {
		s.log.Warn().Err(err).Str("booking_id", b.ID).Msg("event listing lookup failed")
	}
	s.publish(ctx, typ, id, b, l)
}

// publish never fails the caller; broker errors are logged only.
func (s *BookingService) publish(ctx context.Context, typ string, id model.Identity, b model.Booking, l model.Listing) {
	ev := queue.BookingEvent{
		EventID:           uuid.NewString(),
		Type:              typ,
		BookingID:         b.ID,
		ListingID:         b.ListingID,
		ListingTitle:      l.Title,
		CustomerID:        b.CustomerID,
		ProviderID:        l.ProviderID,
		ActorID:           id.ActorID,
		Status:            string(b.Status),
		Date:              b.Date.Format(DateLayout),
		Hours:             b.Hours,
		CustomerCompleted: b.CustomerCompleted,
		ProviderCompleted: b.ProviderCompleted,
		OccurredAt:        s.now(),
	}
	if err := s.events.PublishBookingEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("type", typ).Str("booking_id", b.ID).Msg("booking event not published")
	}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, invalid("date", "is required")
	}
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, invalid("date", "must be YYYY-MM-DD")
}

func parseHours(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalid("hours", "is required")
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	// Accept "2.0" style input from number fields.  Values too large for
	// an int are bounded here, before the conversion can overflow.
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, invalid("hours", "must be a whole number")
	}
	switch {
	case math.IsNaN(f):
		return 0, invalid("hours", "must be a whole number")
	case f >= model.MaxBookingHours:
		return model.MaxBookingHours, nil
	case f < model.MinBookingHours:
		return model.MinBookingHours, nil
	}
	return int(f), nil
}

func classOr(err error, result string) string {
	if err != nil {
		return Class(err)
	}
	return result
}

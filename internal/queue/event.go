// Package queue defines message payloads exchanged over the message broker,
// the publisher used by the booking engine and the background consumer.
package queue

import "time"

// Booking event types.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventCompletionMarked = "booking.completion_marked"
	EventBookingCompleted = "booking.completed"
)

// BookingEvent is published after every applied booking transition.  It
// carries enough context for downstream consumers to log, notify or
// trigger analytics without querying the primary store.
type BookingEvent struct {
	EventID           string    `json:"event_id"`
	Type              string    `json:"type"`
	BookingID         string    `json:"booking_id"`
	ListingID         string    `json:"listing_id"`
	ListingTitle      string    `json:"listing_title"`
	CustomerID        string    `json:"customer_id"`
	ProviderID        string    `json:"provider_id"`
	ActorID           string    `json:"actor_id"`
	Status            string    `json:"status"`
	Date              string    `json:"date"`
	Hours             int       `json:"hours"`
	CustomerCompleted bool      `json:"customer_completed"`
	ProviderCompleted bool      `json:"provider_completed"`
	OccurredAt        time.Time `json:"occurred_at"`
}

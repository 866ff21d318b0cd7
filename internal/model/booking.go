package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingComplete  BookingStatus = "complete"
)

// Terminal reports whether no further transition is possible.
func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingComplete
}

const (
	// MinBookingHours and MaxBookingHours bound the hours accepted at creation.
	MinBookingHours = 1
	MaxBookingHours = 8
	// MaxStoredHours is the schema bound enforced by the store.
	MaxStoredHours = 24
)

// ClampHours forces a requested duration into [MinBookingHours, MaxBookingHours].
func ClampHours(h int) int {
	if h < MinBookingHours {
		return MinBookingHours
	}
	if h > MaxBookingHours {
		return MaxBookingHours
	}
	return h
}

// Booking records a customer's reservation of a listing.  Completion
// is confirmed independently by both sides; Status is complete exactly
// when both flags are set.
//
// Fields:
//  ID                – opaque identifier (UUID string).
//  CustomerID        – booking customer.
//  ListingID         – booked listing.
//  Date              – requested service date, stored as given.
//  Hours             – duration, 1–8 at creation.
//  Status            – pending, confirmed, cancelled or complete.
//  CustomerCompleted – the customer marked the job done.
//  ProviderCompleted – the provider marked the job done.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Booking struct {
	ID                string        `json:"id"`
	CustomerID        string        `json:"customer_id"`
	ListingID         string        `json:"listing_id"`
	Date              time.Time     `json:"date"`
	Hours             int           `json:"hours"`
	Status            BookingStatus `json:"status"`
	CustomerCompleted bool          `json:"customer_completed"`
	ProviderCompleted bool          `json:"provider_completed"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// CompletionMark describes which completion flags a caller sets in one
// atomic update.
type CompletionMark struct {
	Customer bool
	Provider bool
}

// BookingDetail is a booking populated with its listing, the listing's
// provider and the customer.
type BookingDetail struct {
	Booking  Booking  `json:"booking"`
	Listing  *Listing `json:"listing,omitempty"`
	Provider *Actor   `json:"provider,omitempty"`
	Customer *Actor   `json:"customer,omitempty"`
}

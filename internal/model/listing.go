package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCategories are offered to providers when they create a listing.
// Listings are not restricted to this set.
var DefaultCategories = []string{
	"Cleaning", "Handyman", "Mounting", "Moving", "Gardening",
	"Furniture Assembly", "Personal Assistant", "Event Staffing",
	"Pet Care", "Tutoring", "Tech Support", "Beauty & Wellness", "Delivery",
}

// Listing is a bookable service offering owned by exactly one provider.
//
// Fields:
//  ID              – opaque identifier (UUID string).
//  Title           – short name of the service.
//  Description     – long description.
//  Price           – non-negative price per booking.
//  Location        – where the service is offered.
//  Contact         – how to reach the provider for this listing.
//  Category        – free-form category used for faceting.
//  ProviderID      – owning actor (role=provider).
//  AggregateRating – mean of all review ratings, 0 when none.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Listing struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	Location        string          `json:"location"`
	Contact         string          `json:"contact"`
	Category        string          `json:"category"`
	ProviderID      string          `json:"provider_id"`
	AggregateRating float64         `json:"aggregate_rating"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ListingFields carries the editable attributes of a listing.
type ListingFields struct {
	Title       string
	Description string
	Price       decimal.Decimal
	Location    string
	Contact     string
	Category    string
}

// ListingFilter selects listings for the search facade.  Empty fields
// do not constrain the result.
type ListingFilter struct {
	Query      string // substring of title, description or location (case-insensitive)
	Category   string // exact category
	ProviderID string // restrict to one owner
}

// ListingDetail is a listing populated with its provider and reviews.
type ListingDetail struct {
	Listing  Listing        `json:"listing"`
	Provider *Actor         `json:"provider,omitempty"`
	Reviews  []ReviewDetail `json:"reviews"`
}

package model

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Review is an immutable rating left by a customer for a listing.
type Review struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	ProviderID string    `json:"provider_id"`
	ListingID  string    `json:"listing_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReviewDetail is a review populated with its author.
type ReviewDetail struct {
	Review Review `json:"review"`
	Author *Actor `json:"author,omitempty"`
}

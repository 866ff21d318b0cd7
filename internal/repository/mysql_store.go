package repository

import (
	"context"
	"database/sql"
)

// NewMySQLStore wires every MySQL repository onto one handle.
func NewMySQLStore(db *sql.DB) Store {
	return Store{
		Actors:   NewActorRepo(db),
		Tokens:   NewTokenRepo(db),
		Listings: NewListingRepo(db),
		Bookings: NewBookingRepo(db),
		Reviews:  NewReviewRepo(db),
		Close:    func(context.Context) error { return db.Close() },
	}
}

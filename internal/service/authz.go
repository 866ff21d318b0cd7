package service

import "github.com/iliyamo/service-marketplace/internal/model"

// Capability predicates.  Every engine checks these before mutating.

func isRole(id model.Identity, r model.Role) bool {
	return !id.Anonymous() && id.Role == r
}

func isOwner(id model.Identity, l model.Listing) bool {
	return isRole(id, model.RoleProvider) && l.ProviderID == id.ActorID
}

func isBookingCustomer(id model.Identity, b model.Booking) bool {
	return isRole(id, model.RoleCustomer) && b.CustomerID == id.ActorID
}

// isParticipant reports whether id is the booking's customer or the owner
// of the booked listing.
func isParticipant(id model.Identity, b model.Booking, l model.Listing) bool {
	return isBookingCustomer(id, b) || isOwner(id, l)
}

func requireRole(id model.Identity, r model.Role) error {
	if id.Anonymous() {
		return unauthorized("authentication required")
	}
	if id.Role != r {
		return unauthorized("requires role " + string(r))
	}
	return nil
}

package model

import "time"

// Role is the fixed capability class of an Actor.  It is chosen at
// registration and never changes afterwards.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleProvider
}

// Actor represents a registered identity as stored in the `actors`
// collection/table.  Handlers never expose PasswordHash; they build
// their own response types.
//
// Fields:
//  ID           – opaque identifier (UUID string).
//  Name         – display name.
//  Email        – unique, lower-cased email address.
//  Contact      – free-form contact information (phone, handle).
//  Role         – customer or provider.
//  PasswordHash – bcrypt hash of the password.
//  CreatedAt    – registration timestamp.
type Actor struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Contact      string    `json:"contact"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the resolved "current actor" of a request.  It is produced
// by the JWT middleware and passed explicitly into every service call.
// The zero value is an anonymous caller.
type Identity struct {
	ActorID string
	Role    Role
}

// Anonymous reports whether no actor was resolved for the request.
func (i Identity) Anonymous() bool { return i.ActorID == "" }

// IsProvider reports whether the identity is an authenticated provider.
func (i Identity) IsProvider() bool { return !i.Anonymous() && i.Role == RoleProvider }

// IsCustomer reports whether the identity is an authenticated customer.
func (i Identity) IsCustomer() bool { return !i.Anonymous() && i.Role == RoleCustomer }

// RefreshToken models an entry in the `refresh_tokens` store.  Only the
// SHA-256 hash of the raw token is kept.
type RefreshToken struct {
	ID        string
	ActorID   string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

package mongostore

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/service-marketplace/internal/model"
)

type actorDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	Contact      string    `bson:"contact"`
	Role         string    `bson:"role"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

func fromActor(a *model.Actor) actorDoc {
	return actorDoc{ID: a.ID, Name: a.Name, Email: a.Email, Contact: a.Contact,
		Role: string(a.Role), PasswordHash: a.PasswordHash, CreatedAt: a.CreatedAt}
}

func (d actorDoc) model() model.Actor {
	return model.Actor{ID: d.ID, Name: d.Name, Email: d.Email, Contact: d.Contact,
		Role: model.Role(d.Role), PasswordHash: d.PasswordHash, CreatedAt: d.CreatedAt.UTC()}
}

type tokenDoc struct {
	ID        string     `bson:"_id"`
	ActorID   string     `bson:"actor_id"`
	TokenHash string     `bson:"token_hash"`
	ExpiresAt time.Time  `bson:"expires_at"`
	RevokedAt *time.Time `bson:"revoked_at,omitempty"`
	CreatedAt time.Time  `bson:"created_at"`
}

type listingDoc struct {
	ID              string               `bson:"_id"`
	Title           string               `bson:"title"`
	Description     string               `bson:"description"`
	Price           primitive.Decimal128 `bson:"price"`
	Location        string               `bson:"location"`
	Contact         string               `bson:"contact"`
	Category        string               `bson:"category"`
	ProviderID      string               `bson:"provider_id"`
	AggregateRating float64              `bson:"aggregate_rating"`
	CreatedAt       time.Time            `bson:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at"`
}

func fromListing(l *model.Listing) (listingDoc, error) {
	price, err := toDecimal128(l.Price)
	if err != nil {
		return listingDoc{}, err
	}
	return listingDoc{ID: l.ID, Title: l.Title, Description: l.Description, Price: price,
		Location: l.Location, Contact: l.Contact, Category: l.Category, ProviderID: l.ProviderID,
		AggregateRating: l.AggregateRating, CreatedAt: l.CreatedAt, UpdatedAt: l.UpdatedAt}, nil
}

func (d listingDoc) model() (model.Listing, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return model.Listing{}, err
	}
	return model.Listing{ID: d.ID, Title: d.Title, Description: d.Description, Price: price,
		Location: d.Location, Contact: d.Contact, Category: d.Category, ProviderID: d.ProviderID,
		AggregateRating: d.AggregateRating, CreatedAt: d.CreatedAt.UTC(), UpdatedAt: d.UpdatedAt.UTC()}, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

type bookingDoc struct {
	ID                string    `bson:"_id"`
	CustomerID        string    `bson:"customer_id"`
	ListingID         string    `bson:"listing_id"`
	Date              time.Time `bson:"date"`
	Hours             int       `bson:"hours"`
	Status            string    `bson:"status"`
	CustomerCompleted bool      `bson:"customer_completed"`
	ProviderCompleted bool      `bson:"provider_completed"`
	CreatedAt         time.Time `bson:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

func fromBooking(b *model.Booking) bookingDoc {
	return bookingDoc{ID: b.ID, CustomerID: b.CustomerID, ListingID: b.ListingID, Date: b.Date,
		Hours: b.Hours, Status: string(b.Status), CustomerCompleted: b.CustomerCompleted,
		ProviderCompleted: b.ProviderCompleted, CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt}
}

func (d bookingDoc) model() model.Booking {
	return model.Booking{ID: d.ID, CustomerID: d.CustomerID, ListingID: d.ListingID, Date: d.Date.UTC(),
		Hours: d.Hours, Status: model.BookingStatus(d.Status), CustomerCompleted: d.CustomerCompleted,
		ProviderCompleted: d.ProviderCompleted, CreatedAt: d.CreatedAt.UTC(), UpdatedAt: d.UpdatedAt.UTC()}
}

type reviewDoc struct {
	ID         string    `bson:"_id"`
	CustomerID string    `bson:"customer_id"`
	ProviderID string    `bson:"provider_id"`
	ListingID  string    `bson:"listing_id"`
	Rating     int       `bson:"rating"`
	Comment    string    `bson:"comment"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (d reviewDoc) model() model.Review {
	return model.Review{ID: d.ID, CustomerID: d.CustomerID, ProviderID: d.ProviderID,
		ListingID: d.ListingID, Rating: d.Rating, Comment: d.Comment, CreatedAt: d.CreatedAt.UTC()}
}

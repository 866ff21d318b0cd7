package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/service-marketplace/internal/model"
)

// BookingRepo provides persistence for bookings.  All status changes are
// expressed as guarded UPDATE statements so the row lock taken by MySQL
// serializes concurrent callers.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

var _ BookingStore = (*BookingRepo)(nil)

const bookingColumns = `b.id, b.customer_id, b.listing_id, b.date, b.hours, b.status,
	b.customer_completed, b.provider_completed, b.created_at, b.updated_at`

// Create inserts a new booking.  ID, status and timestamps are set by the caller.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (id, customer_id, listing_id, date, hours, status,
		customer_completed, provider_completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, b.ID, b.CustomerID, b.ListingID, b.Date, b.Hours,
		string(b.Status), b.CustomerCompleted, b.ProviderCompleted, b.CreatedAt, b.UpdatedAt)
	return err
}

// GetByID returns the booking or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = ?`, id)
	return scanBooking(row)
}

// ListByCustomer returns the customer's bookings, newest first.
func (r *BookingRepo) ListByCustomer(ctx context.Context, customerID string) ([]model.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings b
		WHERE b.customer_id = ? ORDER BY b.created_at DESC`, customerID)
}

// ListByProvider returns bookings on any listing owned by the provider,
// newest first.
func (r *BookingRepo) ListByProvider(ctx context.Context, providerID string) ([]model.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings b
		JOIN listings l ON l.id = b.listing_id
		WHERE l.provider_id = ? ORDER BY b.created_at DESC`, providerID)
}

// Transition performs a guarded status change.
func (r *BookingRepo) Transition(ctx context.Context, id string, from []model.BookingStatus, to model.BookingStatus, now time.Time) (model.Booking, error) {
	if len(from) == 0 {
		return model.Booking{}, ErrConflict
	}
	args := []any{string(to), now, id}
	for _, s := range from {
		args = append(args, string(s))
	}
	q := `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status IN (` + placeholders(len(from)) + `)`
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return model.Booking{}, err
	}
	return r.afterGuardedUpdate(ctx, id, res)
}

// MarkComplete sets the requested completion flags and derives the status
// in one statement.  The status expression is evaluated first, against
// the pre-update flags ORed with the new marks, so it does not depend on
// MySQL's left-to-right assignment semantics.
func (r *BookingRepo) MarkComplete(ctx context.Context, id string, m model.CompletionMark, now time.Time) (model.Booking, error) {
	const q = `UPDATE bookings SET
		status = CASE WHEN (customer_completed OR ?) AND (provider_completed OR ?)
			THEN 'complete' ELSE 'confirmed' END,
		customer_completed = customer_completed OR ?,
		provider_completed = provider_completed OR ?,
		updated_at = ?
		WHERE id = ? AND status IN ('confirmed', 'complete')`
	res, err := r.db.ExecContext(ctx, q, m.Customer, m.Provider, m.Customer, m.Provider, now, id)
	if err != nil {
		return model.Booking{}, err
	}
	b, err := r.afterGuardedUpdate(ctx, id, res)
	if errors.Is(err, ErrConflict) && (b.Status == model.BookingConfirmed || b.Status == model.BookingComplete) {
		// A repeated mark in the same second changes no column, so a
		// driver counting changed rows reports zero.
		return b, nil
	}
	return b, err
}

// HasCompleted reports whether the customer holds a complete booking for the listing.
func (r *BookingRepo) HasCompleted(ctx context.Context, customerID, listingID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM bookings WHERE customer_id = ? AND listing_id = ? AND status = 'complete')`,
		customerID, listingID).Scan(&ok)
	return ok, err
}

// afterGuardedUpdate reloads the row.  Zero affected rows means either the
// booking is missing (ErrNotFound) or the status guard rejected it
// (ErrConflict).
func (r *BookingRepo) afterGuardedUpdate(ctx context.Context, id string, res sql.Result) (model.Booking, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return model.Booking{}, err
	}
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if n == 0 {
		return b, ErrConflict
	}
	return b, nil
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(s rowScanner) (model.Booking, error) {
	var b model.Booking
	var status string
	err := s.Scan(&b.ID, &b.CustomerID, &b.ListingID, &b.Date, &b.Hours, &status,
		&b.CustomerCompleted, &b.ProviderCompleted, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	return b, nil
}

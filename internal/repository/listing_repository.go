package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/service-marketplace/internal/model"
)

// ListingRepo provides CRUD operations for the listings table.  The
// aggregate_rating column is only written by SetAggregateRating.
type ListingRepo struct {
	db *sql.DB
}

// NewListingRepo returns a new ListingRepo bound to the given database.
func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

var _ ListingStore = (*ListingRepo)(nil)

// DB exposes the underlying handle for callers that need transactions.
func (r *ListingRepo) DB() *sql.DB { return r.db }

const listingColumns = `id, title, description, price, location, contact, category,
	provider_id, aggregate_rating, created_at, updated_at`

// Create inserts a listing.  ID and timestamps are set by the caller.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
	const q = `INSERT INTO listings (id, title, description, price, location, contact, category,
		provider_id, aggregate_rating, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		l.ID, l.Title, l.Description, l.Price, l.Location, l.Contact, l.Category,
		l.ProviderID, l.AggregateRating, l.CreatedAt, l.UpdatedAt)
	return err
}

// GetByID returns the listing or ErrNotFound.
func (r *ListingRepo) GetByID(ctx context.Context, id string) (model.Listing, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)
	return scanListing(row)
}

// Update rewrites the editable columns.  The provider_id guard makes the
// ownership check part of the write; a mismatch yields ErrForbidden.
func (r *ListingRepo) Update(ctx context.Context, id, providerID string, f model.ListingFields, now time.Time) (model.Listing, error) {
	const q = `UPDATE listings SET title = ?, description = ?, price = ?, location = ?,
		contact = ?, category = ?, updated_at = ?
		WHERE id = ? AND provider_id = ?`
	res, err := r.db.ExecContext(ctx, q,
		f.Title, f.Description, f.Price, f.Location, f.Contact, f.Category, now, id, providerID)
	if err != nil {
		return model.Listing{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return model.Listing{}, err
	}
	l, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Listing{}, err
	}
	if affected == 0 && l.ProviderID != providerID {
		return model.Listing{}, ErrForbidden
	}
	return l, nil
}

// SetAggregateRating stores a recomputed rating.
func (r *ListingRepo) SetAggregateRating(ctx context.Context, id string, rating float64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE listings SET aggregate_rating = ? WHERE id = ?`, rating, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Unchanged rows also report zero; distinguish a missing listing.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Categories returns every distinct category in alphabetical order.
func (r *ListingRepo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT category FROM listings ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCascade deletes bookings, reviews and finally the listing in a
// single transaction.
func (r *ListingRepo) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE listing_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE listing_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func scanListing(s rowScanner) (model.Listing, error) {
	var l model.Listing
	err := s.Scan(&l.ID, &l.Title, &l.Description, &l.Price, &l.Location, &l.Contact,
		&l.Category, &l.ProviderID, &l.AggregateRating, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Listing{}, ErrNotFound
	}
	return l, err
}

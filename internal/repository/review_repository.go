package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/service-marketplace/internal/model"
)

// ReviewRepo persists reviews in the reviews table.
type ReviewRepo struct {
	db *sql.DB
}

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

var _ ReviewStore = (*ReviewRepo)(nil)

// Create inserts a review.  ID and CreatedAt are set by the caller.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	const q = `INSERT INTO reviews (id, customer_id, provider_id, listing_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, rv.ID, rv.CustomerID, rv.ProviderID, rv.ListingID,
		rv.Rating, rv.Comment, rv.CreatedAt); err != nil {
		return fmt.Errorf("ReviewRepo.Create: %w", err)
	}
	return nil
}

// ListByListing returns all reviews for a listing, newest first.
func (r *ReviewRepo) ListByListing(ctx context.Context, listingID string) ([]model.Review, error) {
	const q = `SELECT id, customer_id, provider_id, listing_id, rating, comment, created_at
		FROM reviews WHERE listing_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, listingID)
	if err != nil {
		return nil, fmt.Errorf("ReviewRepo.ListByListing: %w", err)
	}
	defer rows.Close()
	out := []model.Review{}
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.CustomerID, &rv.ProviderID, &rv.ListingID,
			&rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("ReviewRepo.ListByListing: %w", err)
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// Ratings returns every rating recorded for the listing.
func (r *ReviewRepo) Ratings(ctx context.Context, listingID string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT rating FROM reviews WHERE listing_id = ?`, listingID)
	if err != nil {
		return nil, fmt.Errorf("ReviewRepo.Ratings: %w", err)
	}
	defer rows.Close()
	out := []int{}
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("ReviewRepo.Ratings: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/service-marketplace/internal/model"
)

// likeEscaper escapes LIKE wildcards so the query text matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search filters listings and orders them by aggregate rating.  Text
// matching is a case-insensitive substring test over title, description
// and location joined with OR; the category and provider filters are
// ANDed with it.
func (r *ListingRepo) Search(ctx context.Context, f model.ListingFilter, limit int) ([]model.Listing, error) {
	where := []string{}
	args := []any{}

	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(location) LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.ProviderID != "" {
		where = append(where, "provider_id = ?")
		args = append(args, f.ProviderID)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	q := `SELECT ` + listingColumns + ` FROM listings WHERE ` + cond +
		` ORDER BY aggregate_rating DESC, created_at DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

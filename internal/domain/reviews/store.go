package reviews

import (
	"context"
	"fmt"

	"campusmart/internal/infra/dbx"
)

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, rv *Review) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	q := `
INSERT INTO reviews (listing_id, author_id, rating, comment)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`
	if err := r.db.QueryRow(ctx, q, rv.ListingID, rv.AuthorID, rv.Rating, rv.Comment).
		Scan(&rv.ID, &rv.CreatedAt); err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (r *Repository) ListByListing(ctx context.Context, listingID int64) ([]Review, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	q := `
SELECT id, listing_id, author_id, rating, comment, created_at
FROM reviews
WHERE listing_id = $1
ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, q, listingID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := []Review{}
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.ListingID, &rv.AuthorID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// Stats returns the review count and the average rating (0 when there are
// no reviews).
func (r *Repository) Stats(ctx context.Context, listingID int64) (int, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var (
		count int
		avg   float64
	)
	q := `SELECT COUNT(*), COALESCE(AVG(rating), 0)::float8 FROM reviews WHERE listing_id = $1`
	if err := r.db.QueryRow(ctx, q, listingID).Scan(&count, &avg); err != nil {
		return 0, 0, fmt.Errorf("review stats: %w", err)
	}
	return count, avg, nil
}

package reviews

import (
	"context"
	"time"
)

const QueryTimeoutDuration = time.Second * 5

type Review struct {
	ID        int64     `json:"id"`
	ListingID int64     `json:"listing_id"`
	AuthorID  string    `json:"author_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type Store interface {
	Create(ctx context.Context, r *Review) error
	// ListByListing returns reviews oldest first.
	ListByListing(ctx context.Context, listingID int64) ([]Review, error)
	Stats(ctx context.Context, listingID int64) (int, float64, error)
}

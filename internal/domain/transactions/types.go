package transactions

import (
	"context"
	"time"

	"campusmart/internal/domain/listings"
)

const QueryTimeoutDuration = time.Second * 5

// Record is the immutable copy of a listing taken when it was bought or
// rented. Records are never updated or deleted.
type Record struct {
	ID           int64         `json:"id"`
	Reference    string        `json:"reference"`
	Kind         listings.Kind `json:"kind"`
	ListingID    int64         `json:"listing_id"`
	Name         string        `json:"name"`
	Category     string        `json:"category"`
	Description  string        `json:"description"`
	PriceCents   int64         `json:"price_cents"`
	ImageURL     *string       `json:"image_url,omitempty"`
	ContactInfo  string        `json:"contact_info"`
	OwnerID      string        `json:"owner_id"`
	BuyerID      string        `json:"buyer_id"`
	DeliveryZone string        `json:"delivery_zone"`
	RentalDays   *int          `json:"rental_days,omitempty"`
	TotalCents   int64         `json:"total_cents"`
	CreatedAt    time.Time     `json:"created_at"`
}

// FromListing snapshots l for buyerID. days is ignored for sale listings.
func FromListing(l *listings.Listing, reference, buyerID, zone string, days int) *Record {
	rec := &Record{
		Reference:    reference,
		Kind:         l.Kind,
		ListingID:    l.ID,
		Name:         l.Name,
		Category:     l.Category,
		Description:  l.Description,
		PriceCents:   l.PriceCents,
		ImageURL:     l.ImageURL,
		ContactInfo:  l.ContactInfo,
		OwnerID:      l.OwnerID,
		BuyerID:      buyerID,
		DeliveryZone: zone,
		TotalCents:   l.PriceCents,
	}
	if l.Kind == listings.KindRental {
		if days < 1 {
			days = 1
		}
		rec.RentalDays = &days
		rec.TotalCents = l.PriceCents * int64(days)
	}
	return rec
}

type Store interface {
	Create(ctx context.Context, rec *Record) error
	NextCheckoutNumber(ctx context.Context) (int64, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]Record, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Record, error)
}

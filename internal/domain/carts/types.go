package carts

import (
	"context"
	"errors"
	"time"

	"campusmart/internal/domain/listings"
)

var ErrItemNotFound = errors.New("cart item not found")

// Item is one listing in a user's cart. Zone and days are chosen by the
// buyer before checkout.
type Item struct {
	ListingID    int64     `json:"listing_id"`
	DeliveryZone string    `json:"delivery_zone,omitempty"`
	RentalDays   int       `json:"rental_days,omitempty"`
	AddedAt      time.Time `json:"added_at"`
}

type CartLine struct {
	ListingID      int64         `json:"listing_id"`
	Kind           listings.Kind `json:"kind"`
	Name           string        `json:"name"`
	ImageURL       *string       `json:"image_url,omitempty"`
	UnitPriceCents int64         `json:"unit_price_cents"`
	RentalDays     int           `json:"rental_days,omitempty"`
	DeliveryZone   string        `json:"delivery_zone,omitempty"`
	AvailableZones []string      `json:"available_zones"`
	LineTotalCents int64         `json:"line_total_cents"`
	Available      bool          `json:"available"`
}

type CartView struct {
	Items      []CartLine `json:"items"`
	TotalCents int64      `json:"total_cents"`
}

// BuildView prices items against their current listings. Items whose
// listing is gone or unavailable are shown but not counted in the total.
func BuildView(items []Item, byID map[int64]*listings.Listing) *CartView {
	view := &CartView{Items: make([]CartLine, 0, len(items))}
	for _, it := range items {
		l, ok := byID[it.ListingID]
		if !ok {
			view.Items = append(view.Items, CartLine{ListingID: it.ListingID, AvailableZones: []string{}})
			continue
		}

		line := CartLine{
			ListingID:      l.ID,
			Kind:           l.Kind,
			Name:           l.Name,
			ImageURL:       l.ImageURL,
			UnitPriceCents: l.PriceCents,
			DeliveryZone:   it.DeliveryZone,
			AvailableZones: l.DeliveryZones,
			LineTotalCents: l.PriceCents,
			Available:      l.Available(),
		}
		if l.Kind == listings.KindRental {
			days := it.RentalDays
			if days < 1 {
				days = 1
			}
			line.RentalDays = days
			line.LineTotalCents = l.PriceCents * int64(days)
		}
		if line.Available {
			view.TotalCents += line.LineTotalCents
		}
		view.Items = append(view.Items, line)
	}
	return view
}

type Store interface {
	Items(ctx context.Context, userID string) ([]Item, error)
	Get(ctx context.Context, userID string, listingID int64) (*Item, error)
	Put(ctx context.Context, userID string, it Item) error
	Remove(ctx context.Context, userID string, listingID int64) error
	Clear(ctx context.Context, userID string) error
}

package listings

import (
	"context"
	"errors"
	"time"
)

const QueryTimeoutDuration = time.Second * 5

type Kind string

const (
	KindSale   Kind = "sale"
	KindRental Kind = "rental"
)

func (k Kind) Valid() bool {
	return k == KindSale || k == KindRental
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

const DefaultReviewSummary = "No reviews yet."

// DeliveryZones are the campus pickup points a listing can offer.
var DeliveryZones = []string{
	"KE Main Entrance",
	"Woods",
	"Main Block entrance",
	"Canteen",
	"Steag entrance",
	"Bus Bay",
}

const MinDeliveryZones = 3

func IsDeliveryZone(zone string) bool {
	for _, z := range DeliveryZones {
		if z == zone {
			return true
		}
	}
	return false
}

var (
	ErrNotFound    = errors.New("listing not found")
	ErrUnavailable = errors.New("listing is no longer available")
	ErrNotOwner    = errors.New("listing belongs to another user")
)

// Listing is either for sale or for rent. For rentals PriceCents is the
// per-day price.
type Listing struct {
	ID            int64     `json:"id"`
	Kind          Kind      `json:"kind"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Description   string    `json:"description"`
	PriceCents    int64     `json:"price_cents"`
	OwnerID       string    `json:"owner_id"`
	OwnerEmail    string    `json:"-"`
	ImageURL      *string   `json:"image_url,omitempty"`
	ContactInfo   string    `json:"contact_info"`
	DeliveryZones []string  `json:"delivery_zones"`
	Status        Status    `json:"status"`
	IsActive      bool      `json:"is_active"`
	ReviewSummary *string   `json:"review_summary,omitempty"`
	HasEmbedding  bool      `json:"has_embedding"`
	Embedding     []float32 `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Available reports whether the listing can be bought, rented or shown as a
// similar item.
func (l *Listing) Available() bool {
	return l.Status == StatusApproved && l.IsActive
}

const (
	SortNewest    = "newest"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
)

// Filter narrows the public browse query. Zero values mean "any".
type Filter struct {
	Kind          Kind
	Category      string
	Search        string
	Zone          string
	MinPriceCents *int64
	MaxPriceCents *int64
	Sort          string
	Limit         int
	Offset        int
}

type Store interface {
	Create(ctx context.Context, l *Listing) error
	GetByID(ctx context.Context, id int64) (*Listing, error)
	List(ctx context.Context, f Filter) ([]Listing, int, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Listing, error)
	ListPending(ctx context.Context) ([]Listing, error)
	ListSimilarityCandidates(ctx context.Context, kind Kind, excludeID int64) ([]Listing, error)
	Categories(ctx context.Context) ([]string, error)

	Approve(ctx context.Context, id int64) (*Listing, error)
	Delete(ctx context.Context, id int64) error
	MarkUnavailable(ctx context.Context, id int64) (*Listing, error)
	MakeAvailable(ctx context.Context, id int64, ownerID string) (*Listing, error)
	UpdateReviewSummary(ctx context.Context, id int64, summary string) error
	LockForUpdate(ctx context.Context, id int64) error
}

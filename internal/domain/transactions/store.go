package transactions

import (
	"context"
	"fmt"

	"campusmart/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, reference, kind, listing_id, name, category, description, price_cents,
	image_url, contact_info, owner_id, buyer_id, delivery_zone, rental_days, total_cents, created_at`

func (r *Repository) Create(ctx context.Context, rec *Record) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	q := `
INSERT INTO transaction_records (reference, kind, listing_id, name, category, description, price_cents,
	image_url, contact_info, owner_id, buyer_id, delivery_zone, rental_days, total_cents)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id, created_at`
	err := r.db.QueryRow(ctx, q,
		rec.Reference, rec.Kind, rec.ListingID, rec.Name, rec.Category, rec.Description, rec.PriceCents,
		rec.ImageURL, rec.ContactInfo, rec.OwnerID, rec.BuyerID, rec.DeliveryZone, rec.RentalDays, rec.TotalCents,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("create transaction record: %w", err)
	}
	return nil
}

// NextCheckoutNumber draws the number a checkout reference is encoded from.
func (r *Repository) NextCheckoutNumber(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var n int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('checkout_number_seq')`).Scan(&n); err != nil {
		return 0, fmt.Errorf("next checkout number: %w", err)
	}
	return n, nil
}

func (r *Repository) ListByBuyer(ctx context.Context, buyerID string) ([]Record, error) {
	return r.list(ctx, `SELECT `+recordColumns+` FROM transaction_records WHERE buyer_id = $1 ORDER BY created_at DESC, id DESC`, buyerID)
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	return r.list(ctx, `SELECT `+recordColumns+` FROM transaction_records WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`, ownerID)
}

func (r *Repository) list(ctx context.Context, q string, userID string) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list transaction records: %w", err)
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.Reference, &rec.Kind, &rec.ListingID, &rec.Name, &rec.Category, &rec.Description, &rec.PriceCents,
			&rec.ImageURL, &rec.ContactInfo, &rec.OwnerID, &rec.BuyerID, &rec.DeliveryZone, &rec.RentalDays, &rec.TotalCents, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campusmart/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

const listingColumns = `id, kind, name, category, description, price_cents, owner_id, owner_email,
	image_url, contact_info, delivery_zones, status, is_active, review_summary,
	embedding IS NOT NULL AS has_embedding, created_at, updated_at`

const listingColumnsWithEmbedding = listingColumns + `, embedding`

func scanListing(row pgx.Row, withEmbedding bool) (*Listing, error) {
	var l Listing
	dest := []any{
		&l.ID, &l.Kind, &l.Name, &l.Category, &l.Description, &l.PriceCents, &l.OwnerID, &l.OwnerEmail,
		&l.ImageURL, &l.ContactInfo, &l.DeliveryZones, &l.Status, &l.IsActive, &l.ReviewSummary,
		&l.HasEmbedding, &l.CreatedAt, &l.UpdatedAt,
	}
	var emb *pgvector.Vector
	if withEmbedding {
		dest = append(dest, &emb)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if emb != nil {
		l.Embedding = emb.Slice()
	}
	return &l, nil
}

func collect(rows pgx.Rows, withEmbedding bool) ([]Listing, error) {
	defer rows.Close()

	out := []Listing{}
	for rows.Next() {
		l, err := scanListing(rows, withEmbedding)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func embeddingArg(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

// Create inserts l and fills its generated fields. A nil Embedding is stored
// as NULL.
func (r *Repository) Create(ctx context.Context, l *Listing) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if l.Kind == KindRental && l.ReviewSummary == nil {
		s := DefaultReviewSummary
		l.ReviewSummary = &s
	}

	q := `
INSERT INTO listings (kind, name, category, description, price_cents, owner_id, owner_email,
	image_url, contact_info, delivery_zones, status, is_active, review_summary, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE, $12, $13)
RETURNING id, is_active, embedding IS NOT NULL, created_at, updated_at`

	err := r.db.QueryRow(ctx, q,
		l.Kind, l.Name, l.Category, l.Description, l.PriceCents, l.OwnerID, l.OwnerEmail,
		l.ImageURL, l.ContactInfo, l.DeliveryZones, l.Status, l.ReviewSummary, embeddingArg(l.Embedding),
	).Scan(&l.ID, &l.IsActive, &l.HasEmbedding, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

// GetByID returns the listing with its stored embedding.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	q := `SELECT ` + listingColumnsWithEmbedding + ` FROM listings WHERE id = $1`
	l, err := scanListing(r.db.QueryRow(ctx, q, id), true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

func orderBy(sort string) string {
	switch sort {
	case SortPriceAsc:
		return "price_cents ASC, id ASC"
	case SortPriceDesc:
		return "price_cents DESC, id DESC"
	default:
		return "created_at DESC, id DESC"
	}
}

// List returns approved, active listings matching f and the total number of
// matches ignoring Limit and Offset.
func (r *Repository) List(ctx context.Context, f Filter) ([]Listing, int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	where := []string{"status = 'approved'", "is_active"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Kind != "" {
		where = append(where, "kind = "+arg(f.Kind))
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(f.Category))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := arg("%" + s + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}
	if f.Zone != "" {
		where = append(where, arg(f.Zone)+" = ANY(delivery_zones)")
	}
	if f.MinPriceCents != nil {
		where = append(where, "price_cents >= "+arg(*f.MinPriceCents))
	}
	if f.MaxPriceCents != nil {
		where = append(where, "price_cents <= "+arg(*f.MaxPriceCents))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 15
	}

	q := fmt.Sprintf(`
SELECT %s, COUNT(*) OVER() AS total
FROM listings
WHERE %s
ORDER BY %s
LIMIT %s OFFSET %s`,
		listingColumns, strings.Join(where, " AND "), orderBy(f.Sort), arg(limit), arg(f.Offset))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	out := []Listing{}
	total := 0
	for rows.Next() {
		var l Listing
		if err := rows.Scan(
			&l.ID, &l.Kind, &l.Name, &l.Category, &l.Description, &l.PriceCents, &l.OwnerID, &l.OwnerEmail,
			&l.ImageURL, &l.ContactInfo, &l.DeliveryZones, &l.Status, &l.IsActive, &l.ReviewSummary,
			&l.HasEmbedding, &l.CreatedAt, &l.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration: %w", err)
	}
	return out, total, nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	q := `SELECT ` + listingColumns + ` FROM listings WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owner listings: %w", err)
	}
	return collect(rows, false)
}

func (r *Repository) ListPending(ctx context.Context) ([]Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	q := `SELECT ` + listingColumns + ` FROM listings WHERE status = 'pending' ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list pending listings: %w", err)
	}
	return collect(rows, false)
}

// ListSimilarityCandidates returns every other approved, active listing of
// the given kind that has an embedding, in id order.
func (r *Repository) ListSimilarityCandidates(ctx context.Context, kind Kind, excludeID int64) ([]Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	q := `SELECT ` + listingColumnsWithEmbedding + `
FROM listings
WHERE kind = $1
  AND id <> $2
  AND status = 'approved'
  AND is_active
  AND embedding IS NOT NULL
ORDER BY id ASC`
	rows, err := r.db.Query(ctx, q, kind, excludeID)
	if err != nil {
		return nil, fmt.Errorf("list similarity candidates: %w", err)
	}
	return collect(rows, true)
}

func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
SELECT DISTINCT category FROM listings
WHERE status = 'approved' AND is_active
ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) Approve(ctx context.Context, id int64) (*Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	q := `
UPDATE listings SET status = 'approved', updated_at = now()
WHERE id = $1 AND status = 'pending'
RETURNING ` + listingColumns
	l, err := scanListing(r.db.QueryRow(ctx, q, id), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("approve listing: %w", err)
	}
	return l, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	ct, err := r.db.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkUnavailable flips an available listing to inactive. It is the only way
// checkout claims a listing, so two concurrent checkouts cannot both win:
// the loser gets ErrUnavailable.
func (r *Repository) MarkUnavailable(ctx context.Context, id int64) (*Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	q := `
UPDATE listings SET is_active = FALSE, updated_at = now()
WHERE id = $1 AND is_active AND status = 'approved'
RETURNING ` + listingColumns
	l, err := scanListing(r.db.QueryRow(ctx, q, id), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnavailable
		}
		return nil, fmt.Errorf("mark listing unavailable: %w", err)
	}
	return l, nil
}

// MakeAvailable reactivates an owner's listing. The stored embedding is kept.
func (r *Repository) MakeAvailable(ctx context.Context, id int64, ownerID string) (*Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	q := `
UPDATE listings SET is_active = TRUE, updated_at = now()
WHERE id = $1 AND owner_id = $2
RETURNING ` + listingColumns
	l, err := scanListing(r.db.QueryRow(ctx, q, id, ownerID), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("make listing available: %w", err)
	}
	return l, nil
}

// LockForUpdate holds the listing row until the surrounding transaction
// ends. Review writers take it first so each summary sees every committed
// review.
func (r *Repository) LockForUpdate(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var locked int64
	err := r.db.QueryRow(ctx, `SELECT id FROM listings WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock listing: %w", err)
	}
	return nil
}

func (r *Repository) UpdateReviewSummary(ctx context.Context, id int64, summary string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	ct, err := r.db.Exec(ctx, `
UPDATE listings SET review_summary = $2, updated_at = now()
WHERE id = $1 AND kind = 'rental'`, id, summary)
	if err != nil {
		return fmt.Errorf("update review summary: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

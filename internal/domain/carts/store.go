package carts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 7 * 24 * time.Hour

// Repository keeps each cart in a Redis hash keyed by user, one field per
// listing. The whole cart expires ttl after its last write.
type Repository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRepository(rdb *redis.Client) *Repository {
	return &Repository{rdb: rdb, ttl: DefaultTTL}
}

func NewRepositoryWithTTL(rdb *redis.Client, ttl time.Duration) *Repository {
	return &Repository{rdb: rdb, ttl: ttl}
}

func cartKey(userID string) string {
	return "cart:" + userID
}

func (r *Repository) Items(ctx context.Context, userID string) ([]Item, error) {
	raw, err := r.rdb.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	items := make([]Item, 0, len(raw))
	for field, v := range raw {
		var it Item
		if err := json.Unmarshal([]byte(v), &it); err != nil {
			return nil, fmt.Errorf("decode cart item %s: %w", field, err)
		}
		items = append(items, it)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].ListingID < items[j].ListingID
		}
		return items[i].AddedAt.Before(items[j].AddedAt)
	})
	return items, nil
}

func (r *Repository) Get(ctx context.Context, userID string, listingID int64) (*Item, error) {
	v, err := r.rdb.HGet(ctx, cartKey(userID), strconv.FormatInt(listingID, 10)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("load cart item: %w", err)
	}

	var it Item
	if err := json.Unmarshal([]byte(v), &it); err != nil {
		return nil, fmt.Errorf("decode cart item: %w", err)
	}
	return &it, nil
}

// Put adds or replaces the line for it.ListingID and refreshes the cart TTL.
func (r *Repository) Put(ctx context.Context, userID string, it Item) error {
	if it.AddedAt.IsZero() {
		it.AddedAt = time.Now().UTC()
	}
	b, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("encode cart item: %w", err)
	}

	key := cartKey(userID)
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, strconv.FormatInt(it.ListingID, 10), b)
		p.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save cart item: %w", err)
	}
	return nil
}

func (r *Repository) Remove(ctx context.Context, userID string, listingID int64) error {
	n, err := r.rdb.HDel(ctx, cartKey(userID), strconv.FormatInt(listingID, 10)).Result()
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *Repository) Clear(ctx context.Context, userID string) error {
	if err := r.rdb.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

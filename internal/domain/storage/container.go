package storage

import (
	"context"
	"fmt"

	"campusmart/internal/domain/carts"
	"campusmart/internal/domain/listings"
	"campusmart/internal/domain/pushtokens"
	"campusmart/internal/domain/reviews"
	"campusmart/internal/domain/transactions"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	Listings     listings.Store
	Reviews      reviews.Store
	Transactions transactions.Store
	PushTokens   pushtokens.Store
	Carts        carts.Store

	// RunTx executes fn inside one database transaction. NewContainer wires
	// it to the pool; tests may replace it.
	RunTx func(ctx context.Context, fn func(tx *Tx) error) error
}

// Tx is a tx-scoped set of repos for atomic units of work.
type Tx struct {
	Listings     listings.Store
	Reviews      reviews.Store
	Transactions transactions.Store
}

func NewContainer(pool *pgxpool.Pool, rdb *redis.Client) *Container {
	c := &Container{
		Listings:     listings.NewRepository(pool),
		Reviews:      reviews.NewRepository(pool),
		Transactions: transactions.NewRepository(pool),
		PushTokens:   pushtokens.NewRepository(pool),
		Carts:        carts.NewRepository(rdb),
	}
	c.RunTx = func(ctx context.Context, fn func(tx *Tx) error) error {
		return runInTx(ctx, pool, fn)
	}
	return c
}

// WithTx runs fn atomically; any error rolls back everything fn did.
func (c *Container) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	if c.RunTx == nil {
		return fmt.Errorf("storage container has no transaction runner (did you forget NewContainer?)")
	}
	return c.RunTx(ctx, fn)
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

func runInTx(ctx context.Context, db txBeginner, fn func(tx *Tx) error) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx) // safe even if already committed
	}()

	s := &Tx{
		Listings:     listings.NewRepository(tx),
		Reviews:      reviews.NewRepository(tx),
		Transactions: transactions.NewRepository(tx),
	}

	if err := fn(s); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

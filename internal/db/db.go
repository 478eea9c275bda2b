package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

//go:embed schema.sql
var schema string

// EmbeddingDimensions is the width of listings.embedding in schema.sql.
const EmbeddingDimensions = 1024

// CheckEmbeddingDimensions rejects a configured vector size the embedding
// column cannot store.
func CheckEmbeddingDimensions(n int) error {
	if n != EmbeddingDimensions {
		return fmt.Errorf("embedding dimensions %d do not match the listings.embedding column (vector(%d))", n, EmbeddingDimensions)
	}
	return nil
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, addr string) error {
	conn, err := pgx.Connect(ctx, addr)
	if err != nil {
		return fmt.Errorf("connect for migration: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// New sets up a new pgx connection pool. The schema is migrated first so
// the vector type exists by the time pool connections register it.
func New(addr string, maxConns int32, maxIdleTime string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(addr)
	if err != nil {
		return nil, err
	}

	// Configure connection limits
	config.MaxConns = maxConns

	// Set max idle time
	duration, err := time.ParseDuration(maxIdleTime)
	if err != nil {
		return nil, err
	}
	config.MaxConnIdleTime = duration

	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	// This timeout applies to migration and pool initialization, including the Ping() test.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := Migrate(ctx, addr); err != nil {
		return nil, err
	}

	dbpool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, err
	}

	return dbpool, nil
}

// Package store provides the PostgreSQL-backed durable repository for leads,
// campaigns, scheduled calls, and call sessions. It implements the small
// Store interfaces internal/executor, internal/scheduler, and
// internal/webhook each define locally, so none of those packages import
// this one directly.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store holds the connection pool shared by every repository method in this
// package. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a connection pool against dsn, verifies connectivity, and runs
// Migrate to ensure the schema exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping reports whether the database is reachable, for the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

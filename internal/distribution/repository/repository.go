// Package repository implements the distribution storage ports on Postgres.
package repository

import (
	"context"

	"insulationpal_backend/internal/distribution/ports"
	"insulationpal_backend/platform/db"
)

// Repository provides Postgres access for leads, contractors, credits, assignments and cadences.
type Repository struct {
	pool db.Pool
}

// New creates a repository on top of a pool.
func New(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithinTx runs fn in a transaction; repository calls made with the returned ctx join it.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithinTx(ctx, r.pool, fn)
}

func (r *Repository) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

var _ ports.Store = (*Repository)(nil)

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB implements ports.DBPort over a pgx connection pool. Repositories never
// hold the pool themselves; they receive the pool or an open transaction
// through their ports.DBTX parameter, so one transaction can span a plan
// update, its installments and its charge attempts.
type DB struct {
	pool *pgxpool.Pool
}

// NewDB wraps a connection pool
func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

// GetDB exposes the pool for single-statement reads outside a transaction
func (d *DB) GetDB() *pgxpool.Pool {
	return d.pool
}

// WithTransaction runs fn inside a read-write transaction. The transaction
// rolls back when fn returns an error or panics, and commits otherwise.
func (d *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return d.inTx(ctx, pgx.TxOptions{}, fn)
}

// WithReadOnlyTransaction runs fn inside a read-only transaction so multiple
// queries observe one consistent snapshot.
func (d *DB) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return d.inTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, fn)
}

func (d *DB) inTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := d.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

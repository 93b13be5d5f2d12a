package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const txKey contextKey = "pgx_tx"

// TxFromContext retrieves the transaction started by InTx, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	return tx
}

// Tx runs fn inside a transaction. The transaction is injected into the
// context passed to fn so repositories execute against it transparently.
// Nested calls reuse the enclosing transaction.
func Tx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Runner adapts a pool to the transaction-runner interfaces the domain
// services depend on.
type Runner struct {
	pool *pgxpool.Pool
}

// NewRunner wraps pool.
func NewRunner(pool *pgxpool.Pool) *Runner { return &Runner{pool: pool} }

// InTx implements the domain TxRunner contract.
func (r *Runner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return Tx(ctx, r.pool, fn)
}

// Package db provides PostgreSQL storage for ATS configs, job postings,
// daily snapshots and hiring alerts.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the subset of pgx shared by the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB wraps a PostgreSQL connection pool. A DB handed to an InTx callback
// routes every query through that transaction instead.
type DB struct {
	pool *pgxpool.Pool
	q    querier
	inTx bool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool, q: pool}, nil
}

// Close closes the connection pool. It is a no-op on a transaction-scoped DB.
func (db *DB) Close() {
	if db.pool != nil && !db.inTx {
		db.pool.Close()
	}
}

// InTx runs fn inside a single transaction. The transaction is committed when
// fn returns nil and rolled back otherwise.
func (db *DB) InTx(ctx context.Context, fn func(tx *DB) error) error {
	if db.inTx {
		return fn(db)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after a successful commit is a no-op.
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&DB{pool: db.pool, q: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

package collector

import (
	"context"

	"github.com/jonathan/hiring-signals/internal/db"
)

// pgStore adapts *db.DB to Store.
type pgStore struct {
	*db.DB
}

// NewPostgresStore wraps a database handle as a collector Store.
func NewPostgresStore(d *db.DB) Store {
	return pgStore{DB: d}
}

// InTx runs fn against a Store bound to a single database transaction.
func (s pgStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	return s.DB.InTx(ctx, func(tx *db.DB) error {
		return fn(pgStore{DB: tx})
	})
}

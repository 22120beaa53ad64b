package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/pawdesk/pawdesk/libs/db"
)

// Store is the clinic-service's Postgres access layer. Plain reads run on the
// pool; everything a booking mutates goes through InTx so the doctor advisory
// lock, conflict re-check, row writes and outbox insert commit atomically.
type Store struct {
	pool *db.Pool
}

func New(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

// InTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = pgtx.Rollback(ctx) }()

	if err := fn(&Tx{tx: pgtx}); err != nil {
		return err
	}
	return pgtx.Commit(ctx)
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

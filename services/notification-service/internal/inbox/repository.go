// Package inbox deduplicates consumed events. The outbox relay delivers
// at-least-once; recording each event_id under a unique constraint turns that
// into effectively-once processing.
package inbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pawdesk/pawdesk/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// FirstDelivery records the event and reports whether this is the first time
// it has been seen. A unique-violation on event_id means a redelivery.
func (r *Repository) FirstDelivery(ctx context.Context, eventID, eventType string) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
	`, eventID, eventType)
	if err == nil {
		return true, nil
	}
	if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
		return false, nil
	}
	return false, err
}

package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"marketplace/internal/entities"
)

// EventsRepository keeps a raw copy of every external event in postgres.
type EventsRepository struct {
	db *sqlx.DB
}

func NewEventsRepo(db *sqlx.DB) *EventsRepository {
	return &EventsRepository{db: db}
}

// SaveEvent ignores events it has already stored.
func (r *EventsRepository) SaveEvent(ctx context.Context, event entities.StoredEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (event_id, published_at, event_name, event_payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id) DO NOTHING`,
		event.ID, event.PublishedAt, event.Name, string(event.Payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save %s event %s: %w", event.Name, event.ID, err)
	}

	return nil
}

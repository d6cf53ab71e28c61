package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventHeader struct {
	Id             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return NewEventHeaderWithIdempotencyKey(uuid.NewString())
}

// NewEventHeaderWithIdempotencyKey stamps the event with the key of the request that caused it,
// so a replayed request produces events consumers can recognise.
func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		Id:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

// StoredEvent is the raw copy of an external event kept in the events table.
type StoredEvent struct {
	ID          uuid.UUID
	Name        string
	PublishedAt time.Time
	Payload     []byte
}

func (h EventHeader) Store(name string, payload []byte) (StoredEvent, error) {
	id, err := uuid.Parse(h.Id)
	if err != nil {
		return StoredEvent{}, fmt.Errorf("invalid event id %q: %w", h.Id, err)
	}

	return StoredEvent{
		ID:          id,
		Name:        name,
		PublishedAt: h.PublishedAt,
		Payload:     payload,
	}, nil
}

package outbox

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"

	"marketplace/internal/entities"
	"marketplace/internal/infrastructure/event_publisher"
	"marketplace/internal/interfaces/message/events"
	"marketplace/internal/observability"
)

// Topic is the SQL table-backed topic the forwarder drains into Redis.
const Topic = "events_to_forward"

func NewPublisher(
	tx watermillSQL.ContextExecutor,
	logger watermill.LoggerAdapter,
) (message.Publisher, error) {
	publisher, err := watermillSQL.NewPublisher(
		tx,
		watermillSQL.PublisherConfig{
			SchemaAdapter: watermillSQL.DefaultPostgreSQLSchema{},
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	outbox := forwarder.NewPublisher(publisher, forwarder.PublisherConfig{
		ForwarderTopic: Topic,
	})

	// metadata has to be set before the forwarder envelopes the message
	return event_publisher.WithCorrelationID(observability.PublisherWithTracing{Publisher: outbox}), nil
}

// EventPublisher appends events to the outbox inside the caller's transaction,
// so they are only forwarded once the transaction commits.
type EventPublisher struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
	logger watermill.LoggerAdapter
}

func NewEventPublisher(db *sqlx.DB, getter *trmsqlx.CtxGetter, logger watermill.LoggerAdapter) *EventPublisher {
	return &EventPublisher{
		db:     db,
		getter: getter,
		logger: logger,
	}
}

func (p *EventPublisher) Publish(ctx context.Context, event entities.Event) error {
	tr := p.getter.DefaultTrOrDB(ctx, p.db)

	publisher, err := NewPublisher(tr, p.logger)
	if err != nil {
		return err
	}

	eb, err := events.NewEventBus(publisher, p.logger)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}

	return eb.Publish(ctx, event)
}

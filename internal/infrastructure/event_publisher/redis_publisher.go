package event_publisher

import (
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"marketplace/internal/observability"
)

const correlationIDKey = "correlation_id"

// NewRedisPublisher returns a stream publisher that forwards correlation ids and trace context.
func NewRedisPublisher(
	wlogger watermill.LoggerAdapter,
	redisClient *redis.Client,
) (message.Publisher, error) {
	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: redisClient,
	}, wlogger)
	if err != nil {
		return nil, err
	}

	return WithCorrelationID(observability.PublisherWithTracing{Publisher: publisher}), nil
}

// WithCorrelationID stamps messages with the correlation id of their context.
func WithCorrelationID(pub message.Publisher) message.Publisher {
	return correlationPublisher{Publisher: pub}
}

// correlationPublisher keeps an id already set by the outbox, so a forwarded event stays in its request's trail.
type correlationPublisher struct {
	message.Publisher
}

func (c correlationPublisher) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if msg.Metadata.Get(correlationIDKey) == "" {
			msg.Metadata.Set(correlationIDKey, log.CorrelationIDFromContext(msg.Context()))
		}
	}

	return c.Publisher.Publish(topic, messages...)
}

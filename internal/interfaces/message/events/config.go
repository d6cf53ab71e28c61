package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"marketplace/internal/entities"
)

// ConsumerGroupPrefix namespaces this service's Redis stream consumer groups.
const ConsumerGroupPrefix = "svc-bookings."

// Marshaler flags undecodable payloads with ErrJsonUnmarshal so the router drops them instead of retrying.
var Marshaler cqrs.CommandEventMarshaler = jsonMarshaler{
	JSONMarshaler: cqrs.JSONMarshaler{
		GenerateName: cqrs.StructName,
	},
}

type jsonMarshaler struct {
	cqrs.JSONMarshaler
}

func (m jsonMarshaler) Unmarshal(msg *message.Message, v interface{}) error {
	if err := m.JSONMarshaler.Unmarshal(msg, v); err != nil {
		return fmt.Errorf("%w: %s", ErrJsonUnmarshal, err)
	}

	return nil
}

func NewEventProcessorConfig(
	redisClient *redis.Client,
	watermillLogger watermill.LoggerAdapter,
) cqrs.EventProcessorConfig {
	return cqrs.EventProcessorConfig{
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			handlerEvent := params.EventHandler.NewEvent()
			event, ok := handlerEvent.(entities.Event)
			if !ok {
				return "", fmt.Errorf("invalid event type: %T doesn't implement entities.Event", handlerEvent)
			}

			if event.IsInternal() {
				return internalTopicPrefix + params.EventName, nil
			}

			return externalTopicPrefix + params.EventName, nil
		},
		SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        redisClient,
				ConsumerGroup: ConsumerGroupPrefix + params.HandlerName,
			}, watermillLogger)
		},
		Marshaler: Marshaler,
		Logger:    watermillLogger,
	}
}

package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"

	"marketplace/internal/entities"
)

const (
	// EventsTopic receives every external event; the router fans it out per event name.
	EventsTopic = "events"

	internalTopicPrefix = "internal-events.svc-bookings."
	externalTopicPrefix = EventsTopic + "."
)

func NewEventBus(
	pub message.Publisher,
	logger watermill.LoggerAdapter,
) (*cqrs.EventBus, error) {
	return cqrs.NewEventBusWithConfig(
		pub,
		cqrs.EventBusConfig{
			GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
				event, ok := params.Event.(entities.Event)
				if !ok {
					return "", fmt.Errorf("invalid event type: %T doesn't implement entities.Event", params.Event)
				}

				if event.IsInternal() {
					return internalTopicPrefix + params.EventName, nil
				}

				// stored to the data lake and split into the per-event topic by the router
				return EventsTopic, nil
			},
			Marshaler: Marshaler,
			Logger:    logger,
		},
	)
}

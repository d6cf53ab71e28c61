package message

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/redis/go-redis/v9"

	"marketplace/internal/entities"
	"marketplace/internal/infrastructure/event_publisher"
	"marketplace/internal/interfaces/message/events"
	"marketplace/internal/observability"
)

type CallbackReconciler interface {
	Reconcile(ctx context.Context, raw []byte) error
}

func NewRouter(
	watermillLogger watermill.LoggerAdapter,
	redisClient *redis.Client,
	redisPublisher message.Publisher,

	eventHandler *events.Handler,
	callbacks CallbackReconciler,
	eventsRepo events.EventRepository,
) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		return nil, err
	}

	if err := initMiddlewares(watermillLogger, router, redisPublisher); err != nil {
		return nil, err
	}

	eventProcessor, err := cqrs.NewEventProcessorWithConfig(
		router,
		events.NewEventProcessorConfig(redisClient, watermillLogger),
	)
	if err != nil {
		return nil, err
	}

	err = eventProcessor.AddHandlers(
		// BookingMade handlers
		eventHandler.PaymentPromptHandler(),
		eventHandler.PaymentInitiationEmailHandler(),

		// PaymentRetryRequested handlers
		eventHandler.PaymentRetryPromptHandler(),

		// PaymentCompleted handlers
		eventHandler.HostNotificationHandler(),
		eventHandler.GuestPaymentCompletedHandler(),

		// PaymentFailed handlers
		eventHandler.GuestPaymentFailedHandler(),

		// BookingRescheduled handlers
		eventHandler.GuestRescheduleNotificationHandler(),
	)
	if err != nil {
		return nil, err
	}

	newSubscriber := func(handlerName string) (message.Subscriber, error) {
		return redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        redisClient,
			ConsumerGroup: events.ConsumerGroupPrefix + handlerName,
		}, watermillLogger)
	}

	splitterSub, err := newSubscriber("events_splitter")
	if err != nil {
		return nil, err
	}
	router.AddNoPublisherHandler(
		"events_splitter",
		events.EventsTopic,
		splitterSub,
		func(msg *message.Message) error {
			eventName := events.Marshaler.NameFromMessage(msg)

			return redisPublisher.Publish(events.EventsTopic+"."+eventName, msg)
		},
	).AddMiddleware(events.EventNameChecker)

	saverSub, err := newSubscriber("events_saver")
	if err != nil {
		return nil, err
	}
	router.AddNoPublisherHandler(
		"events_saver",
		events.EventsTopic,
		saverSub,
		func(msg *message.Message) error {
			return saveEvent(msg, eventsRepo)
		},
	).AddMiddleware(events.EventNameChecker)

	callbacksSub, err := newSubscriber("payment_callbacks_retry")
	if err != nil {
		return nil, err
	}
	router.AddNoPublisherHandler(
		"payment_callbacks_retry",
		event_publisher.CallbackRetryTopic,
		callbacksSub,
		func(msg *message.Message) error {
			return callbacks.Reconcile(msg.Context(), msg.Payload)
		},
	)

	return router, nil
}

func saveEvent(msg *message.Message, eventsRepo events.EventRepository) error {
	type Event struct {
		Header entities.EventHeader `json:"header"`
	}

	var event Event
	if err := events.Marshaler.Unmarshal(msg, &event); err != nil {
		return err
	}

	stored, err := event.Header.Store(events.Marshaler.NameFromMessage(msg), msg.Payload)
	if err != nil {
		return fmt.Errorf("%w: %s", events.ErrJsonUnmarshal, err)
	}

	return eventsRepo.SaveEvent(msg.Context(), stored)
}

func initMiddlewares(
	watermillLogger watermill.LoggerAdapter,
	router *message.Router,
	redisPublisher message.Publisher,
) error {
	poisonQueue, err := middleware.PoisonQueue(redisPublisher, event_publisher.PoisonQueueTopic)
	if err != nil {
		return err
	}

	router.AddMiddleware(observability.TracingMiddleware)
	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(events.CorrelationIDMiddleware)
	router.AddMiddleware(events.LoggingMiddleware)

	// gives up once retries are exhausted
	router.AddMiddleware(poisonQueue)

	router.AddMiddleware(middleware.Retry{
		MaxRetries:      10,
		InitialInterval: time.Millisecond * 100,
		MaxInterval:     time.Second,
		Multiplier:      2,
		Logger:          watermillLogger,
	}.Middleware)

	// skip marshalling errors before retrying
	router.AddMiddleware(events.SkipMarshallingErrorsMiddleware)
	router.AddMiddleware(events.MetricsMiddleware)

	return nil
}

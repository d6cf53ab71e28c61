package events

import (
	"errors"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var ErrJsonUnmarshal = errors.New("json unmarshal error")

// EventNameChecker drops messages the marshaler cannot name, as they can't be routed to any handler.
func EventNameChecker(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		if Marshaler.NameFromMessage(msg) == "" {
			log.FromContext(msg.Context()).
				WithField("message_uuid", msg.UUID).
				Warn("Message without event name, skipping")

			return nil, nil
		}

		return next(msg)
	}
}

func CorrelationIDMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		correlationID := msg.Metadata.Get("correlation_id")
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		ctx := log.ContextWithCorrelationID(msg.Context(), correlationID)
		ctx = log.ToContext(ctx, logrus.WithFields(logrus.Fields{
			"correlation_id": correlationID,
			"message_uuid":   msg.UUID,
		}))

		msg.SetContext(ctx)

		return next(msg)
	}
}

func LoggingMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		logger := log.FromContext(msg.Context()).WithFields(logrus.Fields{
			"handler":    message.HandlerNameFromCtx(msg.Context()),
			"event_name": Marshaler.NameFromMessage(msg),
		})

		logger.Info("Handling a message")

		msgs, err := next(msg)
		if err != nil {
			logger.
				WithField("payload", string(msg.Payload)).
				WithError(err).
				Error("Message handling error")
		}

		return msgs, err
	}
}

func SkipMarshallingErrorsMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		msgs, err := next(msg)
		if errors.Is(err, ErrJsonUnmarshal) {
			log.FromContext(msg.Context()).
				WithError(err).
				Warn("Error while unmarshalling message, skipping")

			return nil, nil
		}

		return msgs, err
	}
}

var (
	messagesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookings",
		Name:      "messages_processed_total",
		Help:      "Total number of messages processed",
	}, []string{"event_name", "handler"})

	messagesProcessingFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookings",
		Name:      "messages_processing_failed_total",
		Help:      "Total number of messages processing failures",
	}, []string{"event_name", "handler"})

	messagesProcessingDuration = promauto.NewSummaryVec(prometheus.SummaryOpts{
		Namespace:  "bookings",
		Name:       "messages_processing_duration_seconds",
		Help:       "Duration of message processing in seconds",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	}, []string{"event_name", "handler"})
)

func MetricsMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		// callback retries carry raw gateway bodies, they are labelled by topic instead
		eventName := Marshaler.NameFromMessage(msg)
		if eventName == "" {
			eventName = message.SubscribeTopicFromCtx(msg.Context())
		}
		handler := message.HandlerNameFromCtx(msg.Context())

		start := time.Now()
		msgs, err := next(msg)
		messagesProcessingDuration.WithLabelValues(eventName, handler).Observe(time.Since(start).Seconds())

		messagesProcessedTotal.WithLabelValues(eventName, handler).Inc()
		if err != nil {
			messagesProcessingFailedTotal.WithLabelValues(eventName, handler).Inc()
		}

		return msgs, err
	}
}

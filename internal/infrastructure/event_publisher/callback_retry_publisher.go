package event_publisher

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
)

const (
	CallbackRetryTopic = "payments.callbacks.retry"
	PoisonQueueTopic   = "PoisonQueue"
)

// CallbackRetryPublisher hands raw webhook bodies over to the message router.
type CallbackRetryPublisher struct {
	publisher message.Publisher
}

func NewCallbackRetryPublisher(publisher message.Publisher) *CallbackRetryPublisher {
	return &CallbackRetryPublisher{
		publisher: publisher,
	}
}

func (p *CallbackRetryPublisher) PublishForRetry(ctx context.Context, raw []byte, cause error) error {
	msg := newCallbackMessage(ctx, raw)
	msg.Metadata.Set("retry_reason", cause.Error())

	return p.publisher.Publish(CallbackRetryTopic, msg)
}

// PublishDeadLetter skips retries for bodies that can never be processed.
// Requeueing a dead letter hands it back to the retry topic.
func (p *CallbackRetryPublisher) PublishDeadLetter(ctx context.Context, raw []byte, cause error) error {
	msg := newCallbackMessage(ctx, raw)
	msg.Metadata.Set(middleware.ReasonForPoisonedKey, cause.Error())
	msg.Metadata.Set(middleware.PoisonedTopicKey, CallbackRetryTopic)

	return p.publisher.Publish(PoisonQueueTopic, msg)
}

func newCallbackMessage(ctx context.Context, raw []byte) *message.Message {
	msg := message.NewMessage(uuid.NewString(), raw)
	msg.SetContext(ctx)
	msg.Metadata.Set("received_at", time.Now().UTC().Format(time.RFC3339))

	return msg
}

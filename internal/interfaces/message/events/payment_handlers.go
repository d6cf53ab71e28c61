package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"marketplace/internal/entities"
)

const (
	guestPaymentCompletedHandler = "guest_notification_on_payment_completed"
	guestPaymentFailedHandler    = "guest_notification_on_payment_failed"
)

func (h *Handler) PaymentRetryPromptHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"payment_prompt_on_retry_requested",
		func(ctx context.Context, event *entities.PaymentRetryRequested_v1) error {
			if err := h.payments.Initiate(ctx, event.PendingPaymentID, event.Reference); err != nil {
				return fmt.Errorf("failed to retry payment for booking %s: %w", event.BookingID, err)
			}

			return nil
		},
	)
}

func (h *Handler) HostNotificationHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"host_notification_on_payment_completed",
		func(ctx context.Context, event *entities.PaymentCompleted_v1) error {
			return h.notifier.NotifyHostOfPayment(ctx, event.BookingID)
		},
	)
}

func (h *Handler) GuestPaymentCompletedHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		guestPaymentCompletedHandler,
		func(ctx context.Context, event *entities.PaymentCompleted_v1) error {
			id := notificationID(event.Header, guestPaymentCompletedHandler)
			return h.notifier.NotifyGuestOfPayment(ctx, id, event.BookingID, true)
		},
	)
}

func (h *Handler) GuestPaymentFailedHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		guestPaymentFailedHandler,
		func(ctx context.Context, event *entities.PaymentFailed_v1) error {
			log.FromContext(ctx).
				WithField("booking_id", event.BookingID).
				WithField("result_code", event.ResultCode).
				Info("Payment failed")

			id := notificationID(event.Header, guestPaymentFailedHandler)
			return h.notifier.NotifyGuestOfPayment(ctx, id, event.BookingID, false)
		},
	)
}

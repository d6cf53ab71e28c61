package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"marketplace/internal/domain/notifications"
	"marketplace/internal/entities"
)

func (h *Handler) PaymentPromptHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"payment_prompt_on_booking_made",
		func(ctx context.Context, event *entities.BookingMade_v1) error {
			log.FromContext(ctx).
				WithField("booking_id", event.BookingID).
				Info("Sending payment prompt")

			if err := h.payments.Initiate(ctx, event.PendingPaymentID, event.Reference); err != nil {
				return fmt.Errorf("failed to initiate payment for booking %s: %w", event.BookingID, err)
			}

			return nil
		},
	)
}

func (h *Handler) PaymentInitiationEmailHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"payment_initiation_email_on_booking_made",
		func(ctx context.Context, event *entities.BookingMade_v1) error {
			if event.GuestEmail == "" {
				return nil
			}

			_, err := h.notifier.SendPaymentInitiation(ctx, notifications.PaymentInitiation{
				Email:       event.GuestEmail,
				GuestName:   event.GuestName,
				ItemName:    event.ItemName,
				TotalAmount: event.TotalAmount,
				Phone:       event.GuestPhone,
			})
			if err != nil {
				return fmt.Errorf("failed to send payment initiation email: %w", err)
			}

			return nil
		},
	)
}

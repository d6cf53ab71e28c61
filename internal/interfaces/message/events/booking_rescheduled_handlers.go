package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"marketplace/internal/entities"
)

const guestRescheduleHandler = "guest_notification_on_booking_rescheduled"

func (h *Handler) GuestRescheduleNotificationHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		guestRescheduleHandler,
		func(ctx context.Context, event *entities.BookingRescheduled_v1) error {
			return h.notifier.NotifyGuestOfReschedule(ctx, notificationID(event.Header, guestRescheduleHandler), *event)
		},
	)
}

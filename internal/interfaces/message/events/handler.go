package events

import (
	"context"

	"github.com/google/uuid"

	"marketplace/internal/domain/notifications"
	"marketplace/internal/entities"
)

//go:generate mockgen -destination=mocks/payment_initiator_mock.go -package=mocks . PaymentInitiator
type PaymentInitiator interface {
	Initiate(ctx context.Context, pendingPaymentID uuid.UUID, reference string) error
}

//go:generate mockgen -destination=mocks/notifier_mock.go -package=mocks . Notifier
type Notifier interface {
	SendPaymentInitiation(ctx context.Context, req notifications.PaymentInitiation) (notifications.SendResult, error)
	NotifyHostOfPayment(ctx context.Context, bookingID uuid.UUID) error
	NotifyGuestOfPayment(ctx context.Context, id, bookingID uuid.UUID, completed bool) error
	NotifyGuestOfReschedule(ctx context.Context, id uuid.UUID, event entities.BookingRescheduled_v1) error
}

type EventRepository interface {
	SaveEvent(ctx context.Context, event entities.StoredEvent) error
}

type Handler struct {
	payments PaymentInitiator
	notifier Notifier
}

func NewHandler(payments PaymentInitiator, notifier Notifier) *Handler {
	return &Handler{
		payments: payments,
		notifier: notifier,
	}
}

// notificationID keys in-app notifications by the event that caused them, so redelivery stores one row.
func notificationID(header entities.EventHeader, handlerName string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(header.Id+"/"+handlerName))
}

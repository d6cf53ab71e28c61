package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"

	"marketplace/internal/domain/bookings"
	"marketplace/internal/domain/payments"
	"marketplace/internal/entities"
	"marketplace/internal/transaction"
)

type PaymentsRepo interface {
	GetPendingPayment(ctx context.Context, id uuid.UUID) (payments.PendingPayment, error)
	GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (payments.PendingPayment, error)
	ApplyOutcome(ctx context.Context, id uuid.UUID, o payments.Outcome) error
	SetCheckoutRequest(ctx context.Context, id uuid.UUID, checkoutRequestID, merchantRequestID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, resultDesc string) error
	InsertCallbackLog(ctx context.Context, entry payments.CallbackLogEntry) error
}

type BookingsRepo interface {
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status bookings.PaymentStatus) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event entities.Event) error
}

// CallbackRetrier moves callbacks that could not be reconciled out of the request path.
type CallbackRetrier interface {
	PublishForRetry(ctx context.Context, raw []byte, cause error) error
	PublishDeadLetter(ctx context.Context, raw []byte, cause error) error
}

type CallbackUsecase struct {
	payments  PaymentsRepo
	bookings  BookingsRepo
	trManager transaction.Runner
	publisher EventPublisher
	retrier   CallbackRetrier
	now       func() time.Time
}

func NewCallbackUsecase(
	paymentsRepo PaymentsRepo,
	bookingsRepo BookingsRepo,
	trManager transaction.Runner,
	publisher EventPublisher,
	retrier CallbackRetrier,
) *CallbackUsecase {
	return &CallbackUsecase{
		payments:  paymentsRepo,
		bookings:  bookingsRepo,
		trManager: trManager,
		publisher: publisher,
		retrier:   retrier,
		now:       time.Now,
	}
}

// Receive handles a webhook delivery. It never fails: the gateway gets the same
// acknowledgement whatever happens, and anything not reconciled here is handed to the retrier.
func (u *CallbackUsecase) Receive(ctx context.Context, raw []byte) {
	logger := log.FromContext(ctx)

	cb, parseErr := payments.ParseCallback(raw)

	var logged *payments.StkCallback
	if parseErr == nil {
		logged = &cb
	}
	if err := u.payments.InsertCallbackLog(ctx, payments.NewCallbackLogEntry(raw, logged)); err != nil {
		logger.WithError(err).Error("failed to store payment callback log")
	}

	if parseErr != nil {
		logger.WithError(parseErr).Warn("received malformed payment callback")
		if err := u.retrier.PublishDeadLetter(ctx, raw, parseErr); err != nil {
			logger.WithError(err).Error("failed to dead-letter malformed payment callback")
		}
		return
	}

	logger = logger.
		WithField("checkout_request_id", cb.CheckoutRequestID).
		WithField("result_code", cb.ResultCode)

	if err := u.reconcile(ctx, cb); err != nil {
		logger.WithError(err).Warn("payment callback not reconciled, scheduling retry")
		if err := u.retrier.PublishForRetry(ctx, raw, err); err != nil {
			logger.WithError(err).Error("failed to schedule payment callback retry")
		}
		return
	}

	logger.Info("payment callback reconciled")
}

// Reconcile applies a callback that was handed over for retry. Errors are left to the router's retry policy.
func (u *CallbackUsecase) Reconcile(ctx context.Context, raw []byte) error {
	cb, err := payments.ParseCallback(raw)
	if err != nil {
		return err
	}

	return u.reconcile(ctx, cb)
}

func (u *CallbackUsecase) reconcile(ctx context.Context, cb payments.StkCallback) error {
	outcome := cb.Outcome()

	return transaction.RunSerializable(ctx, u.trManager, func(ctx context.Context) error {
		// The callback may arrive before the checkout id of the prompt is stored, so not found is retried.
		payment, err := u.payments.GetByCheckoutRequestID(ctx, outcome.CheckoutRequestID)
		if err != nil {
			return err
		}

		if payment.AlreadyApplied(outcome) {
			log.FromContext(ctx).
				WithField("pending_payment_id", payment.ID).
				Info("payment callback already applied")
			return nil
		}

		if err := u.payments.ApplyOutcome(ctx, payment.ID, outcome); err != nil {
			return err
		}

		bookingStatus := bookings.PaymentFailed
		if outcome.Status == payments.StatusCompleted {
			bookingStatus = bookings.PaymentCompleted
		}
		if err := u.bookings.UpdatePaymentStatus(ctx, payment.BookingID, bookingStatus); err != nil {
			return err
		}

		header := entities.NewEventHeaderWithIdempotencyKey(outcome.CheckoutRequestID + ":" + outcome.ResultCode)
		now := u.now().UTC()

		var event entities.Event
		if outcome.Status == payments.StatusCompleted {
			event = entities.PaymentCompleted_v1{
				Header:            header,
				PendingPaymentID:  payment.ID,
				BookingID:         payment.BookingID,
				CheckoutRequestID: outcome.CheckoutRequestID,
				ReceiptNumber:     outcome.ReceiptNumber,
				Amount:            payment.Amount,
				CompletedAt:       now,
			}
		} else {
			event = entities.PaymentFailed_v1{
				Header:            header,
				PendingPaymentID:  payment.ID,
				BookingID:         payment.BookingID,
				CheckoutRequestID: outcome.CheckoutRequestID,
				ResultCode:        outcome.ResultCode,
				ResultDesc:        outcome.ResultDesc,
				FailedAt:          now,
			}
		}

		if err := u.publisher.Publish(ctx, event); err != nil {
			return fmt.Errorf("failed to publish payment outcome: %w", err)
		}

		return nil
	})
}

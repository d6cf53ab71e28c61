package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"

	"marketplace/internal/domain/bookings"
	"marketplace/internal/domain/payments"
	"marketplace/internal/infrastructure/clients"
)

//go:generate mockgen -destination=mocks/gateway_mock.go -package=mocks . Gateway
type Gateway interface {
	InitiateSTKPush(ctx context.Context, req clients.STKPushRequest) (*clients.STKPushResponse, error)
}

type InitiateUsecase struct {
	payments PaymentsRepo
	bookings BookingsRepo
	gateway  Gateway
}

func NewInitiateUsecase(paymentsRepo PaymentsRepo, bookingsRepo BookingsRepo, gateway Gateway) *InitiateUsecase {
	return &InitiateUsecase{
		payments: paymentsRepo,
		bookings: bookingsRepo,
		gateway:  gateway,
	}
}

// Initiate sends the payment prompt to the guest's phone. Redelivered events are
// ignored once a prompt has been sent. Rejections by the gateway fail the payment;
// other errors are returned so the message is retried.
func (u *InitiateUsecase) Initiate(ctx context.Context, pendingPaymentID uuid.UUID, reference string) error {
	logger := log.FromContext(ctx).WithField("pending_payment_id", pendingPaymentID)

	payment, err := u.payments.GetPendingPayment(ctx, pendingPaymentID)
	if err != nil {
		return err
	}
	if !payment.AwaitingPrompt() {
		logger.WithField("payment_status", payment.PaymentStatus).Info("payment prompt already sent, skipping")
		return nil
	}

	phone, err := payments.NormalizeMSISDN(payment.PhoneNumber)
	if err != nil {
		logger.WithError(err).Warn("cannot prompt for payment")
		return u.fail(ctx, payment, err)
	}

	if reference == "" {
		reference = payment.BookingID.String()
	}

	resp, err := u.gateway.InitiateSTKPush(ctx, clients.STKPushRequest{
		PhoneNumber:      phone,
		Amount:           payment.Amount,
		AccountReference: reference,
		TransactionDesc:  "Booking " + reference,
	})
	if errors.Is(err, clients.ErrSTKPushRejected) {
		logger.WithError(err).Warn("payment prompt rejected")
		return u.fail(ctx, payment, err)
	}
	if err != nil {
		return fmt.Errorf("failed to send payment prompt: %w", err)
	}

	if err := u.payments.SetCheckoutRequest(ctx, payment.ID, resp.CheckoutRequestID, resp.MerchantRequestID); err != nil {
		return err
	}

	logger.WithField("checkout_request_id", resp.CheckoutRequestID).Info("payment prompt sent")
	return nil
}

func (u *InitiateUsecase) fail(ctx context.Context, payment payments.PendingPayment, cause error) error {
	if err := u.payments.MarkFailed(ctx, payment.ID, cause.Error()); err != nil {
		return err
	}

	return u.bookings.UpdatePaymentStatus(ctx, payment.BookingID, bookings.PaymentFailed)
}

package payments_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/application/usecases/payments"
	"marketplace/internal/application/usecases/payments/mocks"
	"marketplace/internal/domain/bookings"
	domain "marketplace/internal/domain/payments"
	"marketplace/internal/entities"
	"marketplace/internal/infrastructure/clients"
	"marketplace/internal/repository/inmemory"
)

type retrierStub struct {
	mu          sync.Mutex
	retried     [][]byte
	deadLetters [][]byte
}

func (r *retrierStub) PublishForRetry(_ context.Context, raw []byte, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retried = append(r.retried, raw)
	return nil
}

func (r *retrierStub) PublishDeadLetter(_ context.Context, raw []byte, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deadLetters = append(r.deadLetters, raw)
	return nil
}

type callbackFixture struct {
	usecase   *payments.CallbackUsecase
	booking   bookings.Booking
	payment   domain.PendingPayment
	bookings  *inmemory.Bookings
	payments  *inmemory.Payments
	publisher *inmemory.Publisher
	retrier   *retrierStub
}

func newCallbackFixture(t *testing.T) callbackFixture {
	t.Helper()

	b := bookings.Booking{
		ID:            uuid.New(),
		ItemID:        uuid.New(),
		GuestName:     "Amina Otieno",
		SlotsBooked:   2,
		TotalAmount:   3000,
		PaymentStatus: bookings.PaymentPending,
		Status:        bookings.StatusActive,
		Reference:     "BK-TEST",
	}
	p := domain.PendingPayment{
		ID:                uuid.New(),
		BookingID:         b.ID,
		PhoneNumber:       "254712345678",
		Amount:            3000,
		CheckoutRequestID: pointer.To("ws_CO_1"),
		PaymentStatus:     domain.StatusPending,
	}

	f := callbackFixture{
		booking:   b,
		payment:   p,
		bookings:  inmemory.NewBookings(b),
		payments:  inmemory.NewPayments(p),
		publisher: &inmemory.Publisher{},
		retrier:   &retrierStub{},
	}
	f.usecase = payments.NewCallbackUsecase(f.payments, f.bookings, &inmemory.Runner{}, f.publisher, f.retrier)

	return f
}

func callbackBody(checkoutID string, resultCode any, receipt string) []byte {
	stk := map[string]any{
		"MerchantRequestID": "mr_1",
		"CheckoutRequestID": checkoutID,
		"ResultCode":        resultCode,
		"ResultDesc":        "desc",
	}
	if receipt != "" {
		stk["CallbackMetadata"] = map[string]any{
			"Item": []map[string]any{
				{"Name": "Amount", "Value": 3000},
				{"Name": "MpesaReceiptNumber", "Value": receipt},
			},
		}
	}

	body, _ := json.Marshal(map[string]any{"Body": map[string]any{"stkCallback": stk}})
	return body
}

func TestCallbackUsecase_Receive_success(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()

	f.usecase.Receive(ctx, callbackBody("ws_CO_1", 0, "QAZ123"))

	p, err := f.payments.GetPendingPayment(ctx, f.payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, p.PaymentStatus)
	require.NotNil(t, p.MpesaReceiptNumber)
	assert.Equal(t, "QAZ123", *p.MpesaReceiptNumber)

	b, err := f.bookings.GetBooking(ctx, f.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, bookings.PaymentCompleted, b.PaymentStatus)

	require.Len(t, f.payments.CallbackLog, 1)
	assert.Equal(t, "ws_CO_1", f.payments.CallbackLog[0].CheckoutRequestID)

	published := f.publisher.Published()
	require.Len(t, published, 1)
	event, ok := published[0].(entities.PaymentCompleted_v1)
	require.True(t, ok)
	assert.Equal(t, f.booking.ID, event.BookingID)
	assert.Equal(t, 3000.0, event.Amount)

	assert.Empty(t, f.retrier.retried)
}

func TestCallbackUsecase_Receive_failure(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()

	f.usecase.Receive(ctx, callbackBody("ws_CO_1", "1032", ""))

	p, err := f.payments.GetPendingPayment(ctx, f.payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, p.PaymentStatus)
	assert.Nil(t, p.MpesaReceiptNumber)
	assert.True(t, p.CanRetry())

	b, err := f.bookings.GetBooking(ctx, f.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, bookings.PaymentFailed, b.PaymentStatus)

	published := f.publisher.Published()
	require.Len(t, published, 1)
	assert.IsType(t, entities.PaymentFailed_v1{}, published[0])
}

func TestCallbackUsecase_Receive_failure_after_success_clears_receipt(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()

	f.usecase.Receive(ctx, callbackBody("ws_CO_1", 0, "QAZ123"))
	f.usecase.Receive(ctx, callbackBody("ws_CO_1", 1032, ""))

	p, err := f.payments.GetPendingPayment(ctx, f.payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, p.PaymentStatus)
	assert.Nil(t, p.MpesaReceiptNumber)

	b, err := f.bookings.GetBooking(ctx, f.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, bookings.PaymentFailed, b.PaymentStatus)
}

func TestCallbackUsecase_Receive_duplicate_delivery(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()

	body := callbackBody("ws_CO_1", 0, "QAZ123")
	f.usecase.Receive(ctx, body)
	f.usecase.Receive(ctx, body)

	assert.Len(t, f.payments.CallbackLog, 2)
	assert.Len(t, f.publisher.Published(), 1)
	assert.Empty(t, f.retrier.retried)
}

func TestCallbackUsecase_Receive_unknown_checkout_is_retried(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()

	body := callbackBody("ws_CO_unknown", 0, "QAZ123")
	f.usecase.Receive(ctx, body)

	require.Len(t, f.retrier.retried, 1)
	assert.Equal(t, body, f.retrier.retried[0])
	assert.Len(t, f.payments.CallbackLog, 1)
	assert.Empty(t, f.publisher.Published())

	err := f.usecase.Reconcile(ctx, body)
	assert.ErrorIs(t, err, domain.ErrPendingPaymentNotFound)
}

func TestCallbackUsecase_Receive_malformed(t *testing.T) {
	f := newCallbackFixture(t)
	ctx := context.Background()

	f.usecase.Receive(ctx, []byte(`{"Body":`))

	require.Len(t, f.retrier.deadLetters, 1)
	assert.Empty(t, f.retrier.retried)
	require.Len(t, f.payments.CallbackLog, 1)
	assert.Empty(t, f.payments.CallbackLog[0].CheckoutRequestID)
	assert.JSONEq(t, `"{\"Body\":"`, string(f.payments.CallbackLog[0].RawPayload))

	p, err := f.payments.GetPendingPayment(ctx, f.payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, p.PaymentStatus)
}

func TestCallbackUsecase_Receive_publish_failure_is_retried(t *testing.T) {
	f := newCallbackFixture(t)
	f.publisher.Err = errors.New("outbox unavailable")
	ctx := context.Background()

	f.usecase.Receive(ctx, callbackBody("ws_CO_1", 0, "QAZ123"))

	assert.Len(t, f.retrier.retried, 1)
}

type initiateFixture struct {
	usecase  *payments.InitiateUsecase
	gateway  *mocks.MockGateway
	payment  domain.PendingPayment
	bookings *inmemory.Bookings
	payments *inmemory.Payments
}

func newInitiateFixture(t *testing.T, phone string) initiateFixture {
	t.Helper()

	b := bookings.Booking{
		ID:            uuid.New(),
		PaymentStatus: bookings.PaymentPending,
		Status:        bookings.StatusActive,
	}
	p := domain.PendingPayment{
		ID:            uuid.New(),
		BookingID:     b.ID,
		PhoneNumber:   phone,
		Amount:        1499.5,
		PaymentStatus: domain.StatusPending,
	}

	ctrl := gomock.NewController(t)
	f := initiateFixture{
		gateway:  mocks.NewMockGateway(ctrl),
		payment:  p,
		bookings: inmemory.NewBookings(b),
		payments: inmemory.NewPayments(p),
	}
	f.usecase = payments.NewInitiateUsecase(f.payments, f.bookings, f.gateway)

	return f
}

func TestInitiateUsecase_Initiate(t *testing.T) {
	f := newInitiateFixture(t, "0712 345 678")
	ctx := context.Background()

	f.gateway.EXPECT().
		InitiateSTKPush(gomock.Any(), clients.STKPushRequest{
			PhoneNumber:      "254712345678",
			Amount:           1499.5,
			AccountReference: "BK-REF",
			TransactionDesc:  "Booking BK-REF",
		}).
		Return(&clients.STKPushResponse{CheckoutRequestID: "ws_CO_9", MerchantRequestID: "mr_9", ResponseCode: "0"}, nil).
		Times(1)

	require.NoError(t, f.usecase.Initiate(ctx, f.payment.ID, "BK-REF"))

	p, err := f.payments.GetPendingPayment(ctx, f.payment.ID)
	require.NoError(t, err)
	require.NotNil(t, p.CheckoutRequestID)
	assert.Equal(t, "ws_CO_9", *p.CheckoutRequestID)

	// redelivery does not prompt the guest again
	require.NoError(t, f.usecase.Initiate(ctx, f.payment.ID, "BK-REF"))
}

func TestInitiateUsecase_Initiate_rejected(t *testing.T) {
	f := newInitiateFixture(t, "254712345678")
	ctx := context.Background()

	f.gateway.EXPECT().
		InitiateSTKPush(gomock.Any(), gomock.Any()).
		Return(nil, clients.ErrSTKPushRejected)

	require.NoError(t, f.usecase.Initiate(ctx, f.payment.ID, "BK-REF"))

	p, err := f.payments.GetPendingPayment(ctx, f.payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, p.PaymentStatus)

	b, err := f.bookings.GetBooking(ctx, f.payment.BookingID)
	require.NoError(t, err)
	assert.Equal(t, bookings.PaymentFailed, b.PaymentStatus)
}

func TestInitiateUsecase_Initiate_transient_error(t *testing.T) {
	f := newInitiateFixture(t, "254712345678")
	ctx := context.Background()

	f.gateway.EXPECT().
		InitiateSTKPush(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("gateway timeout"))

	require.Error(t, f.usecase.Initiate(ctx, f.payment.ID, "BK-REF"))

	p, err := f.payments.GetPendingPayment(ctx, f.payment.ID)
	require.NoError(t, err)
	assert.True(t, p.AwaitingPrompt())
}

func TestInitiateUsecase_Initiate_invalid_phone(t *testing.T) {
	f := newInitiateFixture(t, "12345")
	ctx := context.Background()

	require.NoError(t, f.usecase.Initiate(ctx, f.payment.ID, "BK-REF"))

	p, err := f.payments.GetPendingPayment(ctx, f.payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, p.PaymentStatus)
}

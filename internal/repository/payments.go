package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"marketplace/internal/domain/payments"
)

type pendingPaymentModel struct {
	ID                 uuid.UUID      `db:"id"`
	BookingID          uuid.UUID      `db:"booking_id"`
	UserID             uuid.NullUUID  `db:"user_id"`
	PhoneNumber        string         `db:"phone_number"`
	Amount             float64        `db:"amount"`
	CheckoutRequestID  sql.NullString `db:"checkout_request_id"`
	MerchantRequestID  sql.NullString `db:"merchant_request_id"`
	PaymentStatus      string         `db:"payment_status"`
	ResultCode         sql.NullString `db:"result_code"`
	ResultDesc         sql.NullString `db:"result_desc"`
	MpesaReceiptNumber sql.NullString `db:"mpesa_receipt_number"`
	BookingData        []byte         `db:"booking_data"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

const pendingPaymentColumns = `id, booking_id, user_id, phone_number, amount, checkout_request_id, merchant_request_id,
	payment_status, result_code, result_desc, mpesa_receipt_number, booking_data, created_at, updated_at`

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}

	return &s.String
}

func (m pendingPaymentModel) toDomain() payments.PendingPayment {
	p := payments.PendingPayment{
		ID:                 m.ID,
		BookingID:          m.BookingID,
		PhoneNumber:        m.PhoneNumber,
		Amount:             m.Amount,
		CheckoutRequestID:  nullString(m.CheckoutRequestID),
		MerchantRequestID:  nullString(m.MerchantRequestID),
		PaymentStatus:      payments.Status(m.PaymentStatus),
		ResultCode:         nullString(m.ResultCode),
		ResultDesc:         nullString(m.ResultDesc),
		MpesaReceiptNumber: nullString(m.MpesaReceiptNumber),
		BookingData:        json.RawMessage(m.BookingData),
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	if m.UserID.Valid {
		id := m.UserID.UUID
		p.UserID = &id
	}

	return p
}

type PaymentsRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

func NewPaymentsRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *PaymentsRepo {
	return &PaymentsRepo{db: db, getter: getter}
}

func (r *PaymentsRepo) CreatePendingPayment(ctx context.Context, p payments.PendingPayment) error {
	data := p.BookingData
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}

	_, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, `
		INSERT INTO pending_payments (id, booking_id, user_id, phone_number, amount, payment_status, booking_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.BookingID, p.UserID, p.PhoneNumber, p.Amount, string(p.PaymentStatus), string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to create pending payment: %w", err)
	}

	return nil
}

func (r *PaymentsRepo) getBy(ctx context.Context, where string, arg any) (payments.PendingPayment, error) {
	var m pendingPaymentModel
	err := sqlx.GetContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &m,
		`SELECT `+pendingPaymentColumns+` FROM pending_payments WHERE `+where+` ORDER BY created_at DESC LIMIT 1`, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return payments.PendingPayment{}, fmt.Errorf("%v: %w", arg, payments.ErrPendingPaymentNotFound)
	}
	if err != nil {
		return payments.PendingPayment{}, fmt.Errorf("failed to get pending payment %v: %w", arg, err)
	}

	return m.toDomain(), nil
}

func (r *PaymentsRepo) GetPendingPayment(ctx context.Context, id uuid.UUID) (payments.PendingPayment, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByBookingID returns the latest payment attempt of the booking.
func (r *PaymentsRepo) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (payments.PendingPayment, error) {
	return r.getBy(ctx, "booking_id = $1", bookingID)
}

// GetByCheckoutRequestID locks the row when called inside a transaction.
func (r *PaymentsRepo) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (payments.PendingPayment, error) {
	var m pendingPaymentModel
	err := sqlx.GetContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &m,
		`SELECT `+pendingPaymentColumns+` FROM pending_payments WHERE checkout_request_id = $1 FOR UPDATE`,
		checkoutRequestID)
	if errors.Is(err, sql.ErrNoRows) {
		return payments.PendingPayment{}, fmt.Errorf("checkout %s: %w", checkoutRequestID, payments.ErrPendingPaymentNotFound)
	}
	if err != nil {
		return payments.PendingPayment{}, fmt.Errorf("failed to get pending payment for checkout %s: %w", checkoutRequestID, err)
	}

	return m.toDomain(), nil
}

func (r *PaymentsRepo) ApplyOutcome(ctx context.Context, id uuid.UUID, o payments.Outcome) error {
	return r.exec(ctx, id, `
		UPDATE pending_payments SET
			payment_status = $2,
			result_code = $3,
			result_desc = $4,
			mpesa_receipt_number = $5,
			merchant_request_id = COALESCE(NULLIF($6, ''), merchant_request_id),
			updated_at = NOW()
		WHERE id = $1`,
		string(o.Status), o.ResultCode, o.ResultDesc, o.ReceiptNumber, o.MerchantRequestID,
	)
}

func (r *PaymentsRepo) SetCheckoutRequest(ctx context.Context, id uuid.UUID, checkoutRequestID, merchantRequestID string) error {
	return r.exec(ctx, id, `
		UPDATE pending_payments SET checkout_request_id = $2, merchant_request_id = $3, updated_at = NOW()
		WHERE id = $1`,
		checkoutRequestID, merchantRequestID,
	)
}

func (r *PaymentsRepo) MarkFailed(ctx context.Context, id uuid.UUID, resultDesc string) error {
	return r.exec(ctx, id, `
		UPDATE pending_payments SET payment_status = 'failed', result_desc = $2, updated_at = NOW()
		WHERE id = $1`,
		resultDesc,
	)
}

// ResetForRetry clears the previous attempt so a new prompt can be sent.
func (r *PaymentsRepo) ResetForRetry(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, id, `
		UPDATE pending_payments SET
			payment_status = 'pending',
			checkout_request_id = NULL,
			merchant_request_id = NULL,
			result_code = NULL,
			result_desc = NULL,
			mpesa_receipt_number = NULL,
			updated_at = NOW()
		WHERE id = $1`,
	)
}

func (r *PaymentsRepo) exec(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	res, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update pending payment %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", id, payments.ErrPendingPaymentNotFound)
	}

	return nil
}

// ListOpenByUser returns the user's payments that have not completed yet, newest first.
func (r *PaymentsRepo) ListOpenByUser(ctx context.Context, userID uuid.UUID) ([]payments.PendingPayment, error) {
	var models []pendingPaymentModel
	err := sqlx.SelectContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &models,
		`SELECT `+pendingPaymentColumns+` FROM pending_payments
		WHERE user_id = $1 AND payment_status <> 'completed'
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending payments of user %s: %w", userID, err)
	}

	result := make([]payments.PendingPayment, 0, len(models))
	for _, m := range models {
		result = append(result, m.toDomain())
	}

	return result, nil
}

func (r *PaymentsRepo) InsertCallbackLog(ctx context.Context, entry payments.CallbackLogEntry) error {
	_, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, `
		INSERT INTO mpesa_callback_log (checkout_request_id, merchant_request_id, result_code, result_desc, raw_payload)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.CheckoutRequestID, entry.MerchantRequestID, entry.ResultCode, entry.ResultDesc, string(entry.RawPayload),
	)
	if err != nil {
		return fmt.Errorf("failed to store callback log: %w", err)
	}

	return nil
}

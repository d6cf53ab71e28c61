package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPendingPaymentNotFound = errors.New("pending payment not found")
	ErrInvalidPhoneNumber     = errors.New("invalid phone number")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ResultCodeCancelledByUser is what the gateway reports when the payer dismisses the prompt.
const ResultCodeCancelledByUser = "1032"

type PendingPayment struct {
	ID                 uuid.UUID       `json:"id"`
	BookingID          uuid.UUID       `json:"booking_id"`
	UserID             *uuid.UUID      `json:"user_id,omitempty"`
	PhoneNumber        string          `json:"phone_number"`
	Amount             float64         `json:"amount"`
	CheckoutRequestID  *string         `json:"checkout_request_id,omitempty"`
	MerchantRequestID  *string         `json:"merchant_request_id,omitempty"`
	PaymentStatus      Status          `json:"payment_status"`
	ResultCode         *string         `json:"result_code,omitempty"`
	ResultDesc         *string         `json:"result_desc,omitempty"`
	MpesaReceiptNumber *string         `json:"mpesa_receipt_number,omitempty"`
	BookingData        json.RawMessage `json:"booking_data,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// AwaitingPrompt reports whether no payment prompt has been sent for this attempt yet.
func (p PendingPayment) AwaitingPrompt() bool {
	return p.PaymentStatus == StatusPending && p.CheckoutRequestID == nil
}

// CanRetry reports whether the guest may trigger a new payment prompt.
func (p PendingPayment) CanRetry() bool {
	if p.PaymentStatus == StatusFailed || p.PaymentStatus == StatusCancelled {
		return true
	}

	return p.ResultCode != nil && *p.ResultCode == ResultCodeCancelledByUser
}

// AlreadyApplied reports whether the outcome matches what the payment already records.
// Gateways may deliver the same callback more than once.
func (p PendingPayment) AlreadyApplied(o Outcome) bool {
	if p.PaymentStatus != o.Status || p.ResultCode == nil {
		return false
	}

	return *p.ResultCode == o.ResultCode
}

// NormalizeMSISDN turns local and international Kenyan numbers into the 2547XXXXXXXX form the gateway expects.
func NormalizeMSISDN(phone string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	switch {
	case strings.HasPrefix(digits, "254") && len(digits) == 12:
		return digits, nil
	case strings.HasPrefix(digits, "0") && len(digits) == 10:
		return "254" + digits[1:], nil
	case (strings.HasPrefix(digits, "7") || strings.HasPrefix(digits, "1")) && len(digits) == 9:
		return "254" + digits, nil
	}

	return "", fmt.Errorf("%q: %w", phone, ErrInvalidPhoneNumber)
}

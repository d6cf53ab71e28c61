package entities

import (
	"time"

	"github.com/google/uuid"
)

type Event interface {
	IsInternal() bool
}

type BookingMade_v1 struct {
	Header EventHeader `json:"header"`

	BookingID        uuid.UUID  `json:"booking_id"`
	PendingPaymentID uuid.UUID  `json:"pending_payment_id"`
	ItemID           uuid.UUID  `json:"item_id"`
	ItemName         string     `json:"item_name"`
	BookingType      string     `json:"booking_type"`
	UserID           *uuid.UUID `json:"user_id,omitempty"`
	GuestName        string     `json:"guest_name"`
	GuestEmail       string     `json:"guest_email"`
	GuestPhone       string     `json:"guest_phone"`
	VisitDate        *string    `json:"visit_date,omitempty"`
	SlotsBooked      int        `json:"slots_booked"`
	TotalAmount      float64    `json:"total_amount"`
	Reference        string     `json:"reference"`
	BookedAt         time.Time  `json:"booked_at"`
}

func (e BookingMade_v1) IsInternal() bool {
	return false
}

type BookingCancelled_v1 struct {
	Header EventHeader `json:"header"`

	BookingID   uuid.UUID  `json:"booking_id"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	CancelledAt time.Time  `json:"cancelled_at"`
}

func (e BookingCancelled_v1) IsInternal() bool {
	return false
}

type PaymentRetryRequested_v1 struct {
	Header EventHeader `json:"header"`

	BookingID        uuid.UUID `json:"booking_id"`
	PendingPaymentID uuid.UUID `json:"pending_payment_id"`
	Reference        string    `json:"reference"`
	RequestedAt      time.Time `json:"requested_at"`
}

func (e PaymentRetryRequested_v1) IsInternal() bool {
	return false
}

type PaymentCompleted_v1 struct {
	Header EventHeader `json:"header"`

	PendingPaymentID  uuid.UUID `json:"pending_payment_id"`
	BookingID         uuid.UUID `json:"booking_id"`
	CheckoutRequestID string    `json:"checkout_request_id"`
	ReceiptNumber     *string   `json:"receipt_number,omitempty"`
	Amount            float64   `json:"amount"`
	CompletedAt       time.Time `json:"completed_at"`
}

func (e PaymentCompleted_v1) IsInternal() bool {
	return false
}

type PaymentFailed_v1 struct {
	Header EventHeader `json:"header"`

	PendingPaymentID  uuid.UUID `json:"pending_payment_id"`
	BookingID         uuid.UUID `json:"booking_id"`
	CheckoutRequestID string    `json:"checkout_request_id"`
	ResultCode        string    `json:"result_code"`
	ResultDesc        string    `json:"result_desc"`
	FailedAt          time.Time `json:"failed_at"`
}

func (e PaymentFailed_v1) IsInternal() bool {
	return false
}

type BookingRescheduled_v1 struct {
	Header EventHeader `json:"header"`

	BookingID     uuid.UUID  `json:"booking_id"`
	UserID        *uuid.UUID `json:"user_id,omitempty"`
	ItemName      string     `json:"item_name"`
	OldDate       *string    `json:"old_date,omitempty"`
	NewDate       string     `json:"new_date"`
	RescheduledAt time.Time  `json:"rescheduled_at"`
}

func (e BookingRescheduled_v1) IsInternal() bool {
	return false
}

// IsNewSchedule reports whether the booking had no visit date before.
func (e BookingRescheduled_v1) IsNewSchedule() bool {
	return e.OldDate == nil
}

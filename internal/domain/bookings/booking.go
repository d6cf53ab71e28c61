package bookings

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/domain/listings"
)

var (
	ErrBookingNotFound     = errors.New("booking not found")
	ErrInvalidRequest      = errors.New("invalid booking request")
	ErrInvalidVisitDate    = errors.New("invalid visit date")
	ErrNotEnoughCapacity   = errors.New("not enough capacity")
	ErrListingNotBookable  = errors.New("listing is not open for booking")
	ErrNotOwner            = errors.New("booking belongs to another user")
	ErrAlreadyCancelled    = errors.New("booking is already cancelled")
	ErrPaymentNotRetryable = errors.New("payment cannot be retried")
	ErrBookingNotConfirmed = errors.New("booking payment is not confirmed")
	ErrCancelAfterPayment  = errors.New("paid bookings cannot be cancelled")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

type Booking struct {
	ID             uuid.UUID       `json:"id"`
	ItemID         uuid.UUID       `json:"item_id"`
	BookingType    listings.Kind   `json:"booking_type"`
	UserID         *uuid.UUID      `json:"user_id,omitempty"`
	GuestName      string          `json:"guest_name"`
	GuestEmail     string          `json:"guest_email"`
	GuestPhone     string          `json:"guest_phone"`
	VisitDate      *time.Time      `json:"visit_date,omitempty"`
	SlotsBooked    int             `json:"slots_booked"`
	TotalAmount    float64         `json:"total_amount"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	Status         Status          `json:"status"`
	BookingDetails json.RawMessage `json:"booking_details,omitempty"`
	Reference      string          `json:"reference"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Counts reports whether the booking holds capacity. Cancelled and rejected bookings release it.
func (b Booking) Counts() bool {
	return b.Status != StatusCancelled && b.Status != StatusRejected
}

func (b Booking) IsConfirmed() bool {
	return b.PaymentStatus == PaymentPaid || b.PaymentStatus == PaymentCompleted
}

func (b Booking) OwnedBy(userID uuid.UUID) bool {
	return b.UserID != nil && *b.UserID == userID
}

// Slots returns the slot count used for capacity, treating an unset count as one.
func (b Booking) Slots() int {
	if b.SlotsBooked < 1 {
		return 1
	}

	return b.SlotsBooked
}

func (b Booking) VisitDateString() *string {
	if b.VisitDate == nil {
		return nil
	}

	s := listings.FormatDate(*b.VisitDate)
	return &s
}

// ItemName reads the listing name from the booking details snapshot.
func (b Booking) ItemName() string {
	if len(b.BookingDetails) == 0 {
		return ""
	}

	var details map[string]any
	if err := json.Unmarshal(b.BookingDetails, &details); err != nil {
		return ""
	}

	for _, key := range []string{"trip_name", "event_name", "hotel_name", "place_name", "item_name"} {
		if name, ok := details[key].(string); ok && name != "" {
			return name
		}
	}

	return ""
}

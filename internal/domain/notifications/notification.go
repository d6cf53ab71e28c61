package notifications

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrHostEmailNotFound = errors.New("host email not found")

const (
	TypePaymentConfirmed   = "payment_confirmed"
	TypePaymentFailed      = "payment_failed"
	TypeBookingRescheduled = "booking_rescheduled"
	TypeVisitDateSet       = "visit_date_set"
)

// Notification is an in-app message shown to a signed-in user.
type Notification struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	IsRead    bool            `json:"is_read"`
	CreatedAt time.Time       `json:"created_at"`
}

type Profile struct {
	ID    uuid.UUID
	Name  string
	Email string
}

type HostBookingNotification struct {
	HostID      uuid.UUID
	BookingID   uuid.UUID
	GuestName   string
	ItemName    string
	TotalAmount float64
	VisitDate   *string
}

type PaymentInitiation struct {
	Email       string
	GuestName   string
	ItemName    string
	TotalAmount float64
	Phone       string
}

// Email is a rendered message ready to hand to a mail provider.
type Email struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

type SendResult struct {
	ID string `json:"id"`
}

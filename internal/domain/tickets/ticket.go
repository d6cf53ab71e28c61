package tickets

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"

	"marketplace/internal/domain/bookings"
)

const qrSize = 256

// Ticket is the admission pass of a confirmed booking.
type Ticket struct {
	Reference string
	BookingID string
	VisitDate string
	Slots     int
}

func FromBooking(b bookings.Booking) (Ticket, error) {
	if !b.IsConfirmed() {
		return Ticket{}, fmt.Errorf("payment status %s: %w", b.PaymentStatus, bookings.ErrBookingNotConfirmed)
	}

	visitDate := ""
	if d := b.VisitDateString(); d != nil {
		visitDate = *d
	}

	return Ticket{
		Reference: b.Reference,
		BookingID: b.ID.String(),
		VisitDate: visitDate,
		Slots:     b.Slots(),
	}, nil
}

// Payload is what the gate scanner reads.
func (t Ticket) Payload() string {
	return strings.Join([]string{t.Reference, t.BookingID, t.VisitDate, strconv.Itoa(t.Slots)}, "|")
}

func (t Ticket) PNG() ([]byte, error) {
	png, err := qrcode.Encode(t.Payload(), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket qr code: %w", err)
	}

	return png, nil
}

package tickets

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"

	"marketplace/internal/domain/bookings"
	"marketplace/internal/domain/tickets"
)

type BookingReader interface {
	Get(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (bookings.Booking, error)
}

type Usecase struct {
	bookings BookingReader
}

func NewUsecase(bookingReader BookingReader) *Usecase {
	return &Usecase{bookings: bookingReader}
}

// QRCode renders the ticket of a paid booking as a PNG image.
func (u *Usecase) QRCode(ctx context.Context, bookingID uuid.UUID, userID *uuid.UUID) ([]byte, error) {
	b, err := u.bookings.Get(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}

	ticket, err := tickets.FromBooking(b)
	if err != nil {
		return nil, err
	}

	png, err := ticket.PNG()
	if err != nil {
		return nil, err
	}

	log.FromContext(ctx).WithField("booking_id", bookingID).Info("ticket issued")

	return png, nil
}

package http

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"marketplace/internal/application/usecases/booking"
	"marketplace/internal/domain/bookings"
	"marketplace/internal/domain/listings"
)

type SubmitBookingRequest struct {
	ItemID         uuid.UUID      `json:"item_id"`
	GuestName      string         `json:"guest_name"`
	GuestEmail     string         `json:"guest_email"`
	GuestPhone     string         `json:"guest_phone"`
	VisitDate      *string        `json:"visit_date"`
	SlotsBooked    int            `json:"slots_booked"`
	ChildSlots     int            `json:"child_slots"`
	BookingDetails map[string]any `json:"booking_details"`
}

func (r SubmitBookingRequest) toDomain(userID *uuid.UUID) (bookings.Request, error) {
	req := bookings.Request{
		ItemID:      r.ItemID,
		UserID:      userID,
		GuestName:   r.GuestName,
		GuestEmail:  r.GuestEmail,
		GuestPhone:  r.GuestPhone,
		SlotsBooked: r.SlotsBooked,
		ChildSlots:  r.ChildSlots,
		Details:     r.BookingDetails,
	}

	if r.VisitDate != nil && *r.VisitDate != "" {
		visitDate, err := listings.ParseDate(*r.VisitDate)
		if err != nil {
			return bookings.Request{}, fmt.Errorf("visit_date %q is not YYYY-MM-DD: %w", *r.VisitDate, bookings.ErrInvalidVisitDate)
		}
		req.VisitDate = &visitDate
	}

	return req, nil
}

func (s *Server) SubmitBookingHandler(c echo.Context) error {
	var request SubmitBookingRequest
	if err := c.Bind(&request); err != nil {
		return badRequest(c, "invalid request body")
	}

	req, err := request.toDomain(optionalUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	result, err := s.bookings.Submit(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, result)
}

func (s *Server) GetBookingHandler(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	b, err := s.bookings.Get(c.Request().Context(), id, optionalUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, b)
}

type BookingListItem struct {
	booking.Entry
	CanRetryPayment bool `json:"can_retry_payment"`
}

func (s *Server) MyBookingsHandler(c echo.Context) error {
	entries, err := s.bookings.ListForUser(c.Request().Context(), userID(c))
	if err != nil {
		return respondError(c, err)
	}

	items := make([]BookingListItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, BookingListItem{Entry: e, CanRetryPayment: e.CanRetryPayment()})
	}

	return c.JSON(http.StatusOK, items)
}

func (s *Server) CancelBookingHandler(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	if err := s.bookings.Cancel(c.Request().Context(), id, userID(c)); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

type RetryPaymentResponse struct {
	PendingPaymentID uuid.UUID `json:"pending_payment_id"`
	PaymentStatus    string    `json:"payment_status"`
}

func (s *Server) RetryPaymentHandler(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	payment, err := s.bookings.RetryPayment(c.Request().Context(), id, optionalUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusAccepted, RetryPaymentResponse{
		PendingPaymentID: payment.ID,
		PaymentStatus:    string(payment.PaymentStatus),
	})
}

func (s *Server) TicketHandler(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	png, err := s.tickets.QRCode(c.Request().Context(), id, optionalUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="ticket-`+id.String()+`.png"`)
	return c.Blob(http.StatusOK, "image/png", png)
}

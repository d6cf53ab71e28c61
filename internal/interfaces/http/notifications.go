package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"marketplace/internal/domain/notifications"
)

type SendHostBookingNotificationRequest struct {
	HostID      uuid.UUID `json:"hostId"`
	BookingID   uuid.UUID `json:"bookingId"`
	GuestName   string    `json:"guestName"`
	ItemName    string    `json:"itemName"`
	TotalAmount float64   `json:"totalAmount"`
	VisitDate   *string   `json:"visitDate"`
}

type SendPaymentInitiationRequest struct {
	Email       string  `json:"email"`
	GuestName   string  `json:"guestName"`
	ItemName    string  `json:"itemName"`
	TotalAmount float64 `json:"totalAmount"`
	Phone       string  `json:"phone"`
}

type sendResponse struct {
	Success bool                     `json:"success"`
	Data    notifications.SendResult `json:"data"`
}

type sendFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) SendHostBookingNotificationHandler(c echo.Context) error {
	var request SendHostBookingNotificationRequest
	if err := c.Bind(&request); err != nil {
		return badRequest(c, "invalid request body")
	}

	result, err := s.notifications.SendHostBookingNotification(c.Request().Context(), notifications.HostBookingNotification{
		HostID:      request.HostID,
		BookingID:   request.BookingID,
		GuestName:   request.GuestName,
		ItemName:    request.ItemName,
		TotalAmount: request.TotalAmount,
		VisitDate:   request.VisitDate,
	})
	if errors.Is(err, notifications.ErrHostEmailNotFound) {
		return c.JSON(http.StatusNotFound, sendFailure{Success: false, Error: "Host email not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, sendResponse{Success: true, Data: result})
}

func (s *Server) SendPaymentInitiationHandler(c echo.Context) error {
	var request SendPaymentInitiationRequest
	if err := c.Bind(&request); err != nil {
		return badRequest(c, "invalid request body")
	}
	if request.Email == "" {
		return badRequest(c, "email is required")
	}

	result, err := s.notifications.SendPaymentInitiation(c.Request().Context(), notifications.PaymentInitiation{
		Email:       request.Email,
		GuestName:   request.GuestName,
		ItemName:    request.ItemName,
		TotalAmount: request.TotalAmount,
		Phone:       request.Phone,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, sendResponse{Success: true, Data: result})
}

func (s *Server) MyNotificationsHandler(c echo.Context) error {
	result, err := s.inbox.ListForUser(c.Request().Context(), userID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

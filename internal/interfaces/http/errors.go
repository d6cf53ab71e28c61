package http

import (
	"errors"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"

	"marketplace/internal/domain/bookings"
	"marketplace/internal/domain/listings"
	"marketplace/internal/domain/payments"
	"marketplace/internal/domain/reschedule"
)

type errorBody struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, bookings.ErrInvalidRequest),
		errors.Is(err, bookings.ErrInvalidVisitDate),
		errors.Is(err, bookings.ErrListingNotBookable),
		errors.Is(err, listings.ErrUnknownKind),
		errors.Is(err, payments.ErrInvalidPhoneNumber):
		return http.StatusBadRequest
	case errors.Is(err, bookings.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, bookings.ErrBookingNotFound),
		errors.Is(err, listings.ErrListingNotFound),
		errors.Is(err, payments.ErrPendingPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, bookings.ErrNotEnoughCapacity),
		errors.Is(err, bookings.ErrAlreadyCancelled),
		errors.Is(err, bookings.ErrCancelAfterPayment),
		errors.Is(err, bookings.ErrPaymentNotRetryable),
		errors.Is(err, bookings.ErrBookingNotConfirmed),
		errors.Is(err, reschedule.ErrNotEligible),
		errors.Is(err, reschedule.ErrDateNotSelectable),
		errors.Is(err, reschedule.ErrInvalidTransition):
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

// respondError maps domain errors to their status; anything unrecognised is logged and hidden.
func respondError(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.FromContext(c.Request().Context()).WithError(err).Error("Request failed")
		return c.JSON(status, errorBody{Error: "internal error"})
	}

	return c.JSON(status, errorBody{Error: err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: msg})
}

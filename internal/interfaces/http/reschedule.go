package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"marketplace/internal/domain/bookings"
	"marketplace/internal/domain/listings"
)

type RescheduleRequest struct {
	NewDate string `json:"new_date"`
}

func queryDate(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}

	d, err := listings.ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("%s %q is not YYYY-MM-DD: %w", name, v, bookings.ErrInvalidRequest)
	}
	return &d, nil
}

func (s *Server) RescheduleOptionsHandler(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	from, err := queryDate(c, "from")
	if err != nil {
		return respondError(c, err)
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return respondError(c, err)
	}

	opts, err := s.reschedule.Options(c.Request().Context(), id, userID(c), from, to)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, opts)
}

func (s *Server) RescheduleHandler(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	var request RescheduleRequest
	if err := c.Bind(&request); err != nil {
		return badRequest(c, "invalid request body")
	}

	newDate, err := listings.ParseDate(request.NewDate)
	if err != nil {
		return badRequest(c, "new_date must be YYYY-MM-DD")
	}

	updated, err := s.reschedule.Reschedule(c.Request().Context(), id, userID(c), newDate)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, updated)
}

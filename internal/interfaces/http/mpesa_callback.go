package http

import (
	"io"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"

	"marketplace/internal/domain/payments"
)

// MpesaCallbackHandler always acknowledges; the gateway must never see a failure.
func (s *Server) MpesaCallbackHandler(c echo.Context) error {
	ctx := c.Request().Context()

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		log.FromContext(ctx).WithError(err).Error("Failed to read payment callback body")
		return c.JSON(http.StatusOK, payments.Accepted)
	}

	s.callbacks.Receive(ctx, raw)

	return c.JSON(http.StatusOK, payments.Accepted)
}

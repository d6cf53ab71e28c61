package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type SaveItemRequest struct {
	ItemID   uuid.UUID `json:"item_id"`
	ItemType string    `json:"item_type"`
}

func (s *Server) ListSavedHandler(c echo.Context) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	entries, err := s.saved.List(c.Request().Context(), userID(c), limit, offset)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, entries)
}

func (s *Server) SaveItemHandler(c echo.Context) error {
	var request SaveItemRequest
	if err := c.Bind(&request); err != nil {
		return badRequest(c, "invalid request body")
	}
	if request.ItemID == uuid.Nil {
		return badRequest(c, "item_id is required")
	}

	if err := s.saved.Save(c.Request().Context(), userID(c), request.ItemID, request.ItemType); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) RemoveSavedHandler(c echo.Context) error {
	itemID, err := pathUUID(c, "item_id")
	if err != nil {
		return err
	}

	if err := s.saved.Remove(c.Request().Context(), userID(c), itemID); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

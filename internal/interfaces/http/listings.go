package http

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"marketplace/internal/domain/listings"
	"marketplace/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func pagination(c echo.Context) (limit, offset int, err error) {
	limit, offset = defaultPageSize, 0

	if v := c.QueryParam("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}
	}

	if v := c.QueryParam("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "offset must not be negative")
		}
	}

	return limit, offset, nil
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, name+" is not a valid UUID")
	}
	return id, nil
}

func (s *Server) ListListingsHandler(c echo.Context) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	filter := repository.ListFilter{Limit: limit, Offset: offset}
	if v := c.QueryParam("kind"); v != "" {
		kind, err := listings.ParseKind(v)
		if err != nil {
			return respondError(c, err)
		}
		filter.Kind = &kind
	}

	result, err := s.catalog.ListListings(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) GetListingHandler(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	l, err := s.listings.GetListing(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	if !l.Bookable() {
		return respondError(c, listings.ErrListingNotFound)
	}

	return c.JSON(http.StatusOK, l)
}

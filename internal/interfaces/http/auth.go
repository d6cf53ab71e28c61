package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"marketplace/internal/config"
)

const userIDKey = "user_id"

var errNoToken = errors.New("missing bearer token")

// authenticate resolves the user from the bearer token, if the request carries one.
func (s *Server) authenticate(c echo.Context) (*uuid.UUID, error) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if auth == "" {
		return nil, errNoToken
	}
	if !strings.HasPrefix(auth, "Bearer ") {
		return nil, fmt.Errorf("authorization header is not a bearer token")
	}

	token, err := jwt.Parse(
		strings.TrimPrefix(auth, "Bearer "),
		func(*jwt.Token) (interface{}, error) {
			return s.jwtSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, err
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("subject is not a user id: %w", err)
	}

	return &id, nil
}

func (s *Server) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := s.authenticate(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		}

		c.Set(userIDKey, *id)
		return next(c)
	}
}

// optionalUser lets guests through, but still rejects a token that fails verification.
func (s *Server) optionalUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := s.authenticate(c)
		switch {
		case errors.Is(err, errNoToken):
		case err != nil:
			return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		default:
			c.Set(userIDKey, *id)
		}

		return next(c)
	}
}

func userID(c echo.Context) uuid.UUID {
	id, _ := c.Get(userIDKey).(uuid.UUID)
	return id
}

func optionalUserID(c echo.Context) *uuid.UUID {
	id, ok := c.Get(userIDKey).(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}

// rateLimiter keys a token bucket on the client IP.
func rateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RPS),
		Burst:     cfg.Burst,
		ExpiresIn: 3 * time.Minute,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, errorBody{Error: "too many requests"})
		},
	})
}

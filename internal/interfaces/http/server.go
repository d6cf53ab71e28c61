package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketplace/internal/application/usecases/booking"
	"marketplace/internal/application/usecases/notifications"
	"marketplace/internal/application/usecases/payments"
	"marketplace/internal/application/usecases/reschedule"
	"marketplace/internal/application/usecases/saved"
	"marketplace/internal/application/usecases/tickets"
	"marketplace/internal/config"
	"marketplace/internal/domain/listings"
	domainNotifications "marketplace/internal/domain/notifications"
	"marketplace/internal/idempotency"
	"marketplace/internal/repository"
)

type ListingGetter interface {
	GetListing(ctx context.Context, id uuid.UUID) (listings.Listing, error)
}

type ListingsCatalog interface {
	ListListings(ctx context.Context, f repository.ListFilter) ([]listings.Listing, error)
}

type NotificationsInbox interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domainNotifications.Notification, error)
}

type Deps struct {
	Listings      ListingGetter
	Catalog       ListingsCatalog
	Bookings      *booking.Usecase
	Callbacks     *payments.CallbackUsecase
	Reschedule    *reschedule.Usecase
	Notifications *notifications.Usecase
	Inbox         NotificationsInbox
	Saved         *saved.Usecase
	Tickets       *tickets.Usecase
}

type Server struct {
	e    *echo.Echo
	port string

	jwtSecret []byte

	listings      ListingGetter
	catalog       ListingsCatalog
	bookings      *booking.Usecase
	callbacks     *payments.CallbackUsecase
	reschedule    *reschedule.Usecase
	notifications *notifications.Usecase
	inbox         NotificationsInbox
	saved         *saved.Usecase
	tickets       *tickets.Usecase
}

func NewServer(
	e *echo.Echo,
	cfg config.Config,
	deps Deps,
	routerIsRunning func() bool,
) *Server {
	srv := &Server{
		e:             e,
		port:          cfg.Port,
		jwtSecret:     []byte(cfg.JWTSecret),
		listings:      deps.Listings,
		catalog:       deps.Catalog,
		bookings:      deps.Bookings,
		callbacks:     deps.Callbacks,
		reschedule:    deps.Reschedule,
		notifications: deps.Notifications,
		inbox:         deps.Inbox,
		saved:         deps.Saved,
		tickets:       deps.Tickets,
	}

	e.Use(loggingMiddleware)
	e.Use(idempotencyMiddleware)

	limited := rateLimiter(cfg.RateLimit)

	e.GET("/listings", srv.ListListingsHandler)
	e.GET("/listings/:id", srv.GetListingHandler)

	e.POST("/bookings", srv.SubmitBookingHandler, limited, srv.optionalUser)
	e.GET("/bookings/:id", srv.GetBookingHandler, limited, srv.optionalUser)
	e.GET("/bookings/:id/ticket.png", srv.TicketHandler, limited, srv.optionalUser)
	e.POST("/bookings/:id/cancel", srv.CancelBookingHandler, srv.requireUser)
	e.POST("/bookings/:id/retry-payment", srv.RetryPaymentHandler, srv.requireUser)
	e.GET("/bookings/:id/reschedule", srv.RescheduleOptionsHandler, srv.requireUser)
	e.POST("/bookings/:id/reschedule", srv.RescheduleHandler, srv.requireUser)

	e.POST("/mpesa-callback", srv.MpesaCallbackHandler)

	e.POST("/send-host-booking-notification", srv.SendHostBookingNotificationHandler, limited, srv.requireUser)
	e.POST("/send-payment-initiation", srv.SendPaymentInitiationHandler, limited, srv.requireUser)

	me := e.Group("/me", srv.requireUser)
	me.GET("/bookings", srv.MyBookingsHandler)
	me.GET("/saved", srv.ListSavedHandler)
	me.POST("/saved", srv.SaveItemHandler)
	me.DELETE("/saved/:item_id", srv.RemoveSavedHandler)
	me.GET("/notifications", srv.MyNotificationsHandler)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error {
		if !routerIsRunning() {
			return c.String(http.StatusServiceUnavailable, "router is not running")
		}
		return c.String(http.StatusOK, "ok")
	})

	return srv
}

func loggingMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log.FromContext(c.Request().Context()).
			WithField("method", c.Request().Method).
			WithField("path", c.Request().URL.Path).
			Info("Handling a request")

		err := next(c)
		if err != nil {
			log.FromContext(c.Request().Context()).
				WithError(err).
				Error("Request handling error")
		}

		return err
	}
}

func idempotencyMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Header.Get(idempotency.Header)
		if key != "" {
			ctx := idempotency.WithKey(c.Request().Context(), key)
			c.SetRequest(c.Request().WithContext(ctx))
		}

		return next(c)
	}
}

func (s *Server) Start() error {
	err := s.e.Start(":" + s.port)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

package app

import (
	"context"
	"os"
	"time"

	commonHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	trmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"marketplace/internal/application/usecases/booking"
	"marketplace/internal/application/usecases/notifications"
	"marketplace/internal/application/usecases/payments"
	"marketplace/internal/application/usecases/reschedule"
	"marketplace/internal/application/usecases/saved"
	"marketplace/internal/application/usecases/tickets"
	"marketplace/internal/config"
	"marketplace/internal/infrastructure/event_publisher"
	"marketplace/internal/interfaces/http"
	messageRouter "marketplace/internal/interfaces/message"
	"marketplace/internal/interfaces/message/events"
	"marketplace/internal/interfaces/message/outbox"
	"marketplace/internal/repository"
)

const outboxPollInterval = 100 * time.Millisecond

type App struct {
	logger    zerolog.Logger
	db        *sqlx.DB
	router    *message.Router
	forwarder *outbox.Forwarder
	srv       *http.Server
}

func NewApp(
	watermillLogger watermill.LoggerAdapter,
	cfg config.Config,
	db *sqlx.DB,
	redisClient *redis.Client,
	gateway payments.Gateway,
	mailer notifications.Mailer,
) (*App, error) {
	getter := trmsqlx.DefaultCtxGetter
	trManager := trmanager.Must(trmsqlx.NewDefaultFactory(db))

	listingsRepo := repository.NewListingsRepo(db, getter)
	cachedListings := repository.NewCachedListings(listingsRepo, redisClient, cfg.ListingCacheTTL)
	bookingsRepo := repository.NewBookingsRepo(db, getter)
	paymentsRepo := repository.NewPaymentsRepo(db, getter)
	rescheduleLogRepo := repository.NewRescheduleLogRepo(db, getter)
	savedItemsRepo := repository.NewSavedItemsRepo(db)
	notificationsRepo := repository.NewNotificationsRepo(db)
	profilesRepo := repository.NewProfilesRepo(db)
	eventsRepo := repository.NewEventsRepo(db)

	redisPublisher, err := event_publisher.NewRedisPublisher(watermillLogger, redisClient)
	if err != nil {
		return nil, err
	}
	outboxPublisher := outbox.NewEventPublisher(db, getter, watermillLogger)

	forwarder, err := outbox.NewForwarder(db, redisPublisher, outboxPollInterval, watermillLogger)
	if err != nil {
		return nil, err
	}

	bookingUsecase := booking.NewUsecase(listingsRepo, bookingsRepo, paymentsRepo, trManager, outboxPublisher)
	callbackUsecase := payments.NewCallbackUsecase(
		paymentsRepo,
		bookingsRepo,
		trManager,
		outboxPublisher,
		event_publisher.NewCallbackRetryPublisher(redisPublisher),
	)
	initiateUsecase := payments.NewInitiateUsecase(paymentsRepo, bookingsRepo, gateway)
	rescheduleUsecase := reschedule.NewUsecase(listingsRepo, bookingsRepo, rescheduleLogRepo, trManager, outboxPublisher)
	notificationsUsecase := notifications.NewUsecase(
		mailer,
		profilesRepo,
		notificationsRepo,
		bookingsRepo,
		cachedListings,
		cfg.Mail,
	)

	router, err := messageRouter.NewRouter(
		watermillLogger,
		redisClient,
		redisPublisher,
		events.NewHandler(initiateUsecase, notificationsUsecase),
		callbackUsecase,
		eventsRepo,
	)
	if err != nil {
		return nil, err
	}

	srv := http.NewServer(
		commonHTTP.NewEcho(),
		cfg,
		http.Deps{
			Listings:      cachedListings,
			Catalog:       listingsRepo,
			Bookings:      bookingUsecase,
			Callbacks:     callbackUsecase,
			Reschedule:    rescheduleUsecase,
			Notifications: notificationsUsecase,
			Inbox:         notificationsRepo,
			Saved:         saved.NewUsecase(cachedListings, savedItemsRepo),
			Tickets:       tickets.NewUsecase(bookingUsecase),
		},
		router.IsRunning,
	)

	return &App{
		logger:    zerolog.New(os.Stdout).With().Timestamp().Str("service", "svc-bookings").Logger(),
		db:        db,
		router:    router,
		forwarder: forwarder,
		srv:       srv,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	if err := repository.InitializeDBSchema(ctx, a.db); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Msg("starting outbox forwarder")

		return a.forwarder.Run(ctx)
	})

	g.Go(func() error {
		a.logger.Info().Msg("starting router")

		return a.router.Run(ctx)
	})

	g.Go(func() error {
		<-a.router.Running()
		a.logger.Info().Msg("router is running")

		a.logger.Info().Msg("starting server")
		return a.srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.srv.Stop(shutdownCtx); err != nil {
			a.logger.Err(err).Msg("error stopping server")
			return err
		}
		if err := a.forwarder.Close(); err != nil {
			a.logger.Err(err).Msg("error closing outbox forwarder")
			return err
		}

		a.logger.Info().Msg("stopped")
		return nil
	})

	return g.Wait()
}

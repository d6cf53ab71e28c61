package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"marketplace/internal/app"
	"marketplace/internal/config"
	"marketplace/internal/infrastructure/clients"
	"marketplace/internal/observability"
)

func main() {
	log.Init(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.TracingEnabled {
		shutdown, err := observability.ConfigureTraceProvider(cfg.JaegerEndpoint)
		if err != nil {
			logrus.WithError(err).Fatal("failed to configure tracing")
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logrus.WithError(err).Warn("failed to flush traces")
			}
		}()
	}

	db, err := sqlx.Open("postgres", cfg.PostgresURL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	a, err := app.NewApp(
		log.NewWatermill(logrus.NewEntry(logrus.StandardLogger())),
		cfg,
		db,
		redisClient,
		clients.NewMpesaClient(cfg.Mpesa, nil),
		clients.NewResendMailer(cfg.Mail.ResendAPIKey),
	)
	if err != nil {
		logrus.WithError(err).Fatal("failed to build app")
	}

	if err := a.Run(ctx); err != nil {
		logrus.WithError(err).Fatal("app stopped with error")
	}
}

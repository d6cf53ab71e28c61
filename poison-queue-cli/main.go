package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"marketplace/internal/infrastructure/event_publisher"
)

const consumerGroup = "poison-queue-cli"

var errMessageNotFound = errors.New("message not found")

type Message struct {
	ID          string
	Reason      string
	OriginTopic string
}

type Handler struct {
	subscriber message.Subscriber
	publisher  message.Publisher
}

func NewHandler(redisAddr string) (*Handler, error) {
	logger := watermill.NewStdLogger(false, false)

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})

	sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        rdb,
		ConsumerGroup: consumerGroup,
		OldestId:      "0",
	}, logger)
	if err != nil {
		return nil, err
	}

	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &Handler{
		subscriber: sub,
		publisher:  pub,
	}, nil
}

// walk passes every message in the queue to visit once, putting back the ones visit returns.
// The queue is a stream, so a full pass ends when the first message comes around again.
func (h *Handler) walk(ctx context.Context, visit func(msg *message.Message) (keep bool, stop bool, err error)) error {
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NopLogger{})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	firstMessageID := ""
	var walkErr error

	router.AddHandler(
		"walk_poison_queue",
		event_publisher.PoisonQueueTopic,
		h.subscriber,
		event_publisher.PoisonQueueTopic,
		h.publisher,
		func(msg *message.Message) ([]*message.Message, error) {
			if msg.UUID == firstMessageID {
				cancel()
				return []*message.Message{msg}, nil
			}
			if firstMessageID == "" {
				firstMessageID = msg.UUID
			}

			keep, stop, err := visit(msg)
			if err != nil {
				walkErr = err
				cancel()
				return nil, err
			}
			if stop {
				cancel()
			}
			if !keep {
				return nil, nil
			}

			return []*message.Message{msg}, nil
		},
	)

	if err := router.Run(ctx); err != nil {
		return err
	}

	return walkErr
}

func (h *Handler) Preview(ctx context.Context) ([]Message, error) {
	res := make([]Message, 0)

	err := h.walk(ctx, func(msg *message.Message) (bool, bool, error) {
		res = append(res, Message{
			ID:          msg.UUID,
			Reason:      msg.Metadata.Get(middleware.ReasonForPoisonedKey),
			OriginTopic: msg.Metadata.Get(middleware.PoisonedTopicKey),
		})
		return true, false, nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (h *Handler) Remove(ctx context.Context, id string) error {
	found := false

	err := h.walk(ctx, func(msg *message.Message) (bool, bool, error) {
		if msg.UUID != id {
			return true, false, nil
		}

		found = true
		return false, true, nil
	})
	if err != nil {
		return err
	}
	if !found {
		return errMessageNotFound
	}

	return nil
}

// Requeue publishes the message back to the topic it was poisoned on and drops it from the queue.
func (h *Handler) Requeue(ctx context.Context, id string) error {
	found := false

	err := h.walk(ctx, func(msg *message.Message) (bool, bool, error) {
		if msg.UUID != id {
			return true, false, nil
		}

		topic := msg.Metadata.Get(middleware.PoisonedTopicKey)
		if topic == "" {
			return true, true, fmt.Errorf("message %s has no origin topic", id)
		}

		if err := h.publisher.Publish(topic, msg.Copy()); err != nil {
			return true, true, err
		}

		found = true
		return false, true, nil
	})
	if err != nil {
		return err
	}
	if !found {
		return errMessageNotFound
	}

	return nil
}

func main() {
	withHandler := func(action func(c *cli.Context, h *Handler) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			h, err := NewHandler(c.String("redis-addr"))
			if err != nil {
				return err
			}
			return action(c, h)
		}
	}

	app := &cli.App{
		Name:  "poison-queue-cli",
		Usage: "Manage the Poison Queue",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "redis-addr",
				EnvVars: []string{"REDIS_ADDR"},
				Value:   "localhost:6379",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "preview",
				Usage: "preview messages",
				Action: withHandler(func(c *cli.Context, h *Handler) error {
					messages, err := h.Preview(c.Context)
					if err != nil {
						return err
					}

					for _, m := range messages {
						fmt.Printf("%v\t%v\t%v\n", m.ID, m.OriginTopic, m.Reason)
					}

					return nil
				}),
			},
			{
				Name:      "remove",
				ArgsUsage: "<message_id>",
				Usage:     "remove message",
				Action: withHandler(func(c *cli.Context, h *Handler) error {
					return h.Remove(c.Context, c.Args().First())
				}),
			},
			{
				Name:      "requeue",
				ArgsUsage: "<message_id>",
				Usage:     "send message back to its original topic",
				Action: withHandler(func(c *cli.Context, h *Handler) error {
					return h.Requeue(c.Context, c.Args().First())
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

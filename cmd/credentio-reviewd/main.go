package main

import (
	"context"
	"os"

	"github.com/credentio/credentio/pkg/cmd"
	"github.com/credentio/credentio/pkg/log"
	"github.com/credentio/credentio/pkg/reviewqueue"
	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("reviewd")

	command := &cli.Command{
		Name:                  "credentio-reviewd",
		Usage:                 "Feed open credentialing exceptions into the reviewer queue",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus provider (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the review stream",
				Value:   "localhost:6379",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				Sources: cli.EnvVars("REDIS_PASSWORD"),
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				Sources: cli.EnvVars("REDIS_DB"),
			},
			&cli.StringFlag{
				Name:    "review-stream",
				Usage:   "Redis stream to push open exceptions to",
				Value:   reviewqueue.DefaultStream,
				Sources: cli.EnvVars("REVIEW_STREAM"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Credentio review daemon")

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			queue, err := reviewqueue.NewPublisher(
				ctx,
				command.String("redis-addr"),
				command.String("redis-password"),
				int(command.Int("redis-db")),
				command.String("review-stream"),
				logger,
			)
			if err != nil {
				return err
			}

			defer func() {
				if err := queue.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close review queue", "error", err)
				}
			}()

			daemon := NewReviewDaemon(eventBus, queue, logger)

			return daemon.Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

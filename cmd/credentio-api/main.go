package main

import (
	"context"
	"os"
	"time"

	"github.com/credentio/credentio/pkg/audit"
	"github.com/credentio/credentio/pkg/cmd"
	"github.com/credentio/credentio/pkg/evidence"
	"github.com/credentio/credentio/pkg/exceptions"
	"github.com/credentio/credentio/pkg/freshness"
	"github.com/credentio/credentio/pkg/graph"
	"github.com/credentio/credentio/pkg/log"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/otelhelper"
	"github.com/credentio/credentio/pkg/scheduler"
	"github.com/credentio/credentio/pkg/services"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "credentio-api",
		Usage:                 "Create and manage credentialing workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.IntFlag{
				Name:    "max-in-flight",
				Usage:   "Maximum number of concurrently running tasks",
				Value:   scheduler.DefaultMaxInFlight,
				Sources: cli.EnvVars("MAX_IN_FLIGHT"),
			},
			&cli.DurationFlag{
				Name:    "retry-base-delay",
				Usage:   "Base delay for task retry backoff",
				Value:   500 * time.Millisecond,
				Sources: cli.EnvVars("RETRY_BASE_DELAY"),
			},
			&cli.DurationFlag{
				Name:    "retry-max-delay",
				Usage:   "Cap on the task retry backoff",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("RETRY_MAX_DELAY"),
			},
			&cli.IntFlag{
				Name:    "verification-freshness-days",
				Usage:   "Days a primary source verification stays reusable",
				Value:   90,
				Sources: cli.EnvVars("VERIFICATION_FRESHNESS_DAYS"),
			},
			&cli.IntFlag{
				Name:    "quality-freshness-days",
				Usage:   "Days a quality report stays reusable",
				Value:   30,
				Sources: cli.EnvVars("QUALITY_FRESHNESS_DAYS"),
			},
			&cli.IntFlag{
				Name:    "extraction-freshness-days",
				Usage:   "Days a document extraction stays reusable",
				Value:   180,
				Sources: cli.EnvVars("EXTRACTION_FRESHNESS_DAYS"),
			},
			&cli.StringFlag{
				Name:    "sweep-cron",
				Usage:   "Cron schedule for the freshness sweep",
				Value:   "0 6 * * *",
				Sources: cli.EnvVars("SWEEP_CRON"),
			},
			&cli.BoolFlag{
				Name:    "enable-tracing",
				Usage:   "Export OpenTelemetry traces for task execution",
				Sources: cli.EnvVars("OTEL_ENABLED"),
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

			logger.InfoContext(ctx, "Initializing Credentio API")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			trail := audit.NewTrail(persistence.AuditRepository(), logger)
			registry := cmd.NewRegistry(logger, trail)

			freshnessPolicy := graph.FreshnessPolicy{
				models.TaskKindVerification:       time.Duration(command.Int("verification-freshness-days")) * 24 * time.Hour,
				models.TaskKindQuality:            time.Duration(command.Int("quality-freshness-days")) * 24 * time.Hour,
				models.TaskKindDocumentExtraction: time.Duration(command.Int("extraction-freshness-days")) * 24 * time.Hour,
			}

			manager := exceptions.NewManager(exceptions.Policy{
				BaseDelay:  command.Duration("retry-base-delay"),
				Multiplier: 2,
				MaxDelay:   command.Duration("retry-max-delay"),
			}, logger)

			schedCfg := scheduler.Config{MaxInFlight: int64(command.Int("max-in-flight"))}

			if command.Bool("enable-tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "credentio-api")
				if err != nil {
					return err
				}

				schedCfg.Tracer = tracer
			}

			orchestrator := services.NewOrchestrator(
				persistence,
				registry,
				graph.NewBuilder(registry, freshnessPolicy),
				freshnessPolicy,
				manager,
				trail,
				evidence.NewBuilder(trail, persistence.EvidenceRepository(), logger),
				eventBus,
				schedCfg,
				logger,
			)

			sweeper, err := freshness.NewSweeper(
				persistence.WorkflowRepository(), freshnessPolicy, command.String("sweep-cron"), nil, logger)
			if err != nil {
				return err
			}

			if err := sweeper.Start(); err != nil {
				return err
			}
			defer sweeper.Stop()

			api := NewAPI(logger, orchestrator, registry)

			if err := api.Start(int(command.Int("port"))); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

// Package main provides the Credentio API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/credentio/credentio/pkg/registry"
	"github.com/credentio/credentio/pkg/services"
	"github.com/credentio/credentio/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger       *slog.Logger
	orchestrator *services.Orchestrator
	registry     *registry.Registry
}

func NewAPI(
	logger *slog.Logger,
	orchestrator *services.Orchestrator,
	registry *registry.Registry,
) *API {
	return &API{
		logger:       logger,
		orchestrator: orchestrator,
		registry:     registry,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.orchestrator, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Credentio API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Get("/:id/status", handlers.GetWorkflowStatus)
	w.Post("/:id/cancel", handlers.CancelWorkflow)
	w.Get("/:id/evidence", handlers.GetEvidenceBundle)
	w.Post("/:id/exceptions/:exceptionId/resolve", handlers.ResolveException)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}

// Package main provides the review daemon: it subscribes to exception
// lifecycle events and feeds open exceptions into the Redis review stream.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/credentio/credentio/pkg/eventbus"
	"github.com/credentio/credentio/pkg/events"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/reviewqueue"
)

type ReviewDaemon struct {
	eventBus eventbus.EventBus
	queue    *reviewqueue.Publisher
	logger   *slog.Logger
}

func NewReviewDaemon(eventBus eventbus.EventBus, queue *reviewqueue.Publisher, logger *slog.Logger) *ReviewDaemon {
	return &ReviewDaemon{
		eventBus: eventBus,
		queue:    queue,
		logger:   logger.With("module", "review_daemon"),
	}
}

// Start subscribes to exception events and blocks until SIGINT or SIGTERM.
func (d *ReviewDaemon) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := d.eventBus.Handle(events.ExceptionOpenedEvent, d.handleExceptionOpened); err != nil {
		return err
	}

	if err := d.eventBus.Subscribe(ctx); err != nil {
		return err
	}

	d.logger.InfoContext(ctx, "Review daemon started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	d.logger.InfoContext(ctx, "Shutting down review daemon")

	return nil
}

func (d *ReviewDaemon) handleExceptionOpened(ctx context.Context, event any) error {
	opened, ok := event.(*events.ExceptionOpened)
	if !ok {
		d.logger.ErrorContext(ctx, "Invalid event type for ExceptionOpened")

		return nil
	}

	// Recoverable failures retry on their own; only human-facing exceptions
	// belong on the review stream.
	if opened.Severity == models.SeverityRecoverable {
		return nil
	}

	record := &models.ExceptionRecord{
		ID:        opened.ExceptionID,
		TaskRunID: opened.TaskRunID,
		Severity:  opened.Severity,
		Reason:    opened.Reason,
		OpenedAt:  opened.Timestamp,
	}

	if record.OpenedAt.IsZero() {
		record.OpenedAt = time.Now().UTC()
	}

	return d.queue.Push(ctx, opened.WorkflowID, record)
}

// Package reviewqueue feeds open exceptions into a Redis stream so reviewer
// tooling can consume them without polling the API.
package reviewqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/credentio/credentio/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

// DefaultStream is the stream reviewer tooling reads from.
const DefaultStream = "credentio.review"

const connectTimeout = 5 * time.Second

// Publisher appends exception records to the review stream.
type Publisher struct {
	client redis.UniversalClient
	stream string
	logger *slog.Logger
}

// NewPublisher connects to Redis and verifies the connection before returning.
func NewPublisher(ctx context.Context, addr, password string, db int, stream string, logger *slog.Logger) (*Publisher, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	if stream == "" {
		stream = DefaultStream
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger = logger.With("module", "review_queue", "stream", stream)
	logger.InfoContext(ctx, "Connected to Redis", "addr", addr, "db", db)

	return &Publisher{
		client: client,
		stream: stream,
		logger: logger,
	}, nil
}

// Push appends one open exception to the stream.
func (p *Publisher) Push(ctx context.Context, workflowID string, record *models.ExceptionRecord) error {
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"exception_id": record.ID,
			"workflow_id":  workflowID,
			"task_run_id":  record.TaskRunID,
			"severity":     string(record.Severity),
			"reason":       record.Reason,
			"opened_at":    record.OpenedAt.Format(time.RFC3339),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to push exception %s to review stream: %w", record.ID, err)
	}

	p.logger.InfoContext(ctx, "Pushed exception to review stream",
		"exception_id", record.ID,
		"workflow_id", workflowID,
		"stream_id", id)

	return nil
}

// Pending reports the current stream length.
func (p *Publisher) Pending(ctx context.Context) (int64, error) {
	return p.client.XLen(ctx, p.stream).Result()
}

func (p *Publisher) Close() error {
	return p.client.Close()
}

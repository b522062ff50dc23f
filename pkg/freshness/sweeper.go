// Package freshness re-checks verification validity windows on a schedule.
// A verification that backed a completed workflow does not stay valid forever;
// the sweeper flags the ones that have aged out so re-credentialing can start
// before a payer notices.
package freshness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/credentio/credentio/pkg/graph"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/persistence"
	"github.com/robfig/cron/v3"
)

const pageSize = 100

// StaleFunc is called once per stale verification found during a sweep.
type StaleFunc func(ctx context.Context, workflow *models.Workflow, run *models.TaskRun)

// Sweeper scans completed workflows for verifications past their window.
type Sweeper struct {
	repo     persistence.WorkflowRepository
	policy   graph.FreshnessPolicy
	cronExpr string
	onStale  StaleFunc
	cron     *cron.Cron
	logger   *slog.Logger
}

func NewSweeper(
	repo persistence.WorkflowRepository,
	policy graph.FreshnessPolicy,
	cronExpr string,
	onStale StaleFunc,
	logger *slog.Logger,
) (*Sweeper, error) {
	if policy == nil {
		policy = graph.DefaultFreshnessPolicy()
	}

	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	return &Sweeper{
		repo:     repo,
		policy:   policy,
		cronExpr: cronExpr,
		onStale:  onStale,
		logger:   logger.With("module", "freshness_sweeper", "cron", cronExpr),
	}, nil
}

func (s *Sweeper) Start() error {
	s.logger.Info("Starting freshness sweeper")

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := s.cron.AddFunc(s.cronExpr, s.run); err != nil {
		return fmt.Errorf("failed to add sweep cron job: %w", err)
	}

	s.cron.Start()

	return nil
}

func (s *Sweeper) run() {
	stale, err := s.Sweep(context.Background())
	if err != nil {
		s.logger.Error("Freshness sweep failed", "error", err)

		return
	}

	s.logger.Info("Freshness sweep finished", "stale", stale)
}

// Sweep scans every completed workflow once and reports how many verifications
// have aged past their validity window.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	completed := models.WorkflowStatusCompleted

	var stale int

	for offset := 0; ; offset += pageSize {
		workflows, err := s.repo.List(ctx, persistence.ListWorkflowsOptions{
			Status: &completed,
			Limit:  pageSize,
			Offset: offset,
		})
		if err != nil {
			return stale, fmt.Errorf("failed to list completed workflows: %w", err)
		}

		for _, workflow := range workflows {
			stale += s.sweepWorkflow(ctx, workflow, now)
		}

		if len(workflows) < pageSize {
			return stale, nil
		}
	}
}

func (s *Sweeper) sweepWorkflow(ctx context.Context, workflow *models.Workflow, now time.Time) int {
	var stale int

	for _, run := range workflow.TaskRuns {
		if run.Status != models.TaskStatusSucceeded || run.CompletedAt == nil {
			continue
		}

		// Kinds without a window never expire.
		if s.policy.Fresh(run.Kind, *run.CompletedAt, now) {
			continue
		}

		if _, windowed := s.policy[run.Kind]; !windowed {
			continue
		}

		stale++

		s.logger.Warn("Verification past its validity window",
			"workflow_id", workflow.ID,
			"clinician_id", workflow.ClinicianID,
			"task_run_id", run.ID,
			"kind", run.Kind,
			"verified_at", *run.CompletedAt)

		if s.onStale != nil {
			s.onStale(ctx, workflow, run)
		}
	}

	return stale
}

func (s *Sweeper) Stop() {
	s.logger.Info("Stopping freshness sweeper")

	if s.cron != nil {
		s.cron.Stop()
	}
}

// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"
	"time"

	"github.com/credentio/credentio/pkg/agents/audittask"
	"github.com/credentio/credentio/pkg/agents/docextract"
	"github.com/credentio/credentio/pkg/agents/guardrail"
	"github.com/credentio/credentio/pkg/agents/intake"
	"github.com/credentio/credentio/pkg/agents/payersub"
	"github.com/credentio/credentio/pkg/agents/quality"
	"github.com/credentio/credentio/pkg/agents/requirements"
	"github.com/credentio/credentio/pkg/agents/verification"
	"github.com/credentio/credentio/pkg/audit"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/registry"
)

// NewRegistry declares every built-in task kind with its static dependencies
// and binds the agent factories. Verification gets a longer timeout because it
// waits on the NPPES registry; everything else runs on the defaults.
func NewRegistry(logger *slog.Logger, trail *audit.Trail) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.Register(registry.Definition{
		Kind:           models.TaskKindRequirements,
		CapabilityTags: []string{"checklist"},
		ResultSchema:   registry.StatusResultSchema(),
	}, requirements.NewFactory())

	reg.Register(registry.Definition{
		Kind:           models.TaskKindIntake,
		DependsOn:      []models.TaskKind{models.TaskKindRequirements},
		CapabilityTags: []string{"data_collection"},
		ResultSchema:   registry.StatusResultSchema(),
	}, intake.NewFactory())

	reg.Register(registry.Definition{
		Kind:           models.TaskKindDocumentExtraction,
		DependsOn:      []models.TaskKind{models.TaskKindIntake},
		CapabilityTags: []string{"documents"},
		ResultSchema:   registry.StatusResultSchema(),
	}, docextract.NewFactory())

	reg.Register(registry.Definition{
		Kind:           models.TaskKindQuality,
		DependsOn:      []models.TaskKind{models.TaskKindIntake},
		CapabilityTags: []string{"data_quality"},
		ResultSchema:   registry.StatusResultSchema(),
	}, quality.NewFactory())

	reg.Register(registry.Definition{
		Kind:           models.TaskKindVerification,
		DependsOn:      []models.TaskKind{models.TaskKindRequirements, models.TaskKindIntake},
		CapabilityTags: []string{"primary_source"},
		DefaultTimeout: 60 * time.Second,
		ResultSchema:   registry.StatusResultSchema(),
	}, verification.NewFactory())

	reg.Register(registry.Definition{
		Kind:           models.TaskKindPayerSubmission,
		DependsOn:      []models.TaskKind{models.TaskKindQuality, models.TaskKindVerification},
		CapabilityTags: []string{"enrollment"},
		ResultSchema:   registry.StatusResultSchema(),
	}, payersub.NewFactory())

	reg.Register(registry.Definition{
		Kind:           models.TaskKindGuardrail,
		DependsOn:      []models.TaskKind{models.TaskKindQuality, models.TaskKindVerification},
		CapabilityTags: []string{"compliance"},
		ResultSchema:   registry.StatusResultSchema(),
	}, guardrail.NewFactory())

	reg.Register(registry.Definition{
		Kind:           models.TaskKindAudit,
		CapabilityTags: []string{"audit"},
		ResultSchema:   registry.StatusResultSchema(),
	}, audittask.NewFactory(trail))

	return reg
}

// Package docextract implements the document ingestion agent: it produces one
// extraction envelope per uploaded passport document.
package docextract

import (
	"context"
	"time"

	"github.com/credentio/credentio/pkg/evidence"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/protocol"
)

// Source names the data source consulted by this agent.
const Source = "document_store"

// Agent extracts structured envelopes from the passport's uploaded documents.
type Agent struct{}

func NewAgent() *Agent {
	return &Agent{}
}

func (a *Agent) Execute(ctx context.Context, run models.TaskRun, ectx protocol.ExecutionContext) (map[string]any, error) {
	logger := ectx.Logger.With("module", "docextract_agent")

	if ectx.Passport == nil {
		return nil, protocol.NewExecutionError(protocol.FailureInconsistent,
			"passport is required to extract documents", nil)
	}

	now := time.Now().UTC()
	extractions := make([]map[string]any, 0, len(ectx.Passport.Documents))

	for _, doc := range ectx.Passport.Documents {
		extractions = append(extractions, map[string]any{
			"document_id":   doc.ID,
			"file_name":     doc.FileName,
			"document_type": doc.DocumentType,
			"extracted_at":  now.Format(time.RFC3339),
		})
	}

	logger.InfoContext(ctx, "Extracted documents",
		"workflow_id", run.WorkflowID,
		"documents", len(extractions))

	result := map[string]any{
		"status":                "ok",
		"extractions":           extractions,
		evidence.ResultSourceKey: Source,
	}

	if len(extractions) > 0 {
		result[evidence.ResultFieldsKey] = []string{"documents"}
	}

	return result, nil
}

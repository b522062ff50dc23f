package graph

import (
	"errors"
	"fmt"
)

// ConstructionError is fatal to workflow creation: the workflow stays in draft
// and is never persisted.
type ConstructionError struct {
	WorkflowID string
	Reason     string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("graph construction failed for workflow %s: %s", e.WorkflowID, e.Reason)
}

// IsConstructionError checks whether an error is a graph construction failure.
func IsConstructionError(err error) bool {
	var constructionErr *ConstructionError

	return errors.As(err, &constructionErr)
}

package evidence

import (
	"errors"
	"fmt"
)

// AssemblyError indicates the bundle could not be built because a referenced
// task run result is missing or corrupted. The condition is recoverable: the
// workflow stays approved and assembly is retried on the next access.
type AssemblyError struct {
	WorkflowID string
	TaskRunID  string
	Reason     string
}

func (e *AssemblyError) Error() string {
	if e.TaskRunID != "" {
		return fmt.Sprintf("evidence assembly failed for workflow %s (task run %s): %s", e.WorkflowID, e.TaskRunID, e.Reason)
	}

	return fmt.Sprintf("evidence assembly failed for workflow %s: %s", e.WorkflowID, e.Reason)
}

// IsAssemblyError checks whether an error is an evidence assembly failure.
func IsAssemblyError(err error) bool {
	var assemblyErr *AssemblyError

	return errors.As(err, &assemblyErr)
}

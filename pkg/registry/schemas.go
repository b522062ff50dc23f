package registry

import (
	"fmt"

	"github.com/credentio/credentio/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ValidateResult checks an agent result payload against the kind's declared
// JSON schema. Kinds without a schema accept any payload.
func (r *Registry) ValidateResult(kind models.TaskKind, result map[string]any) error {
	e, ok := r.entries[kind]
	if !ok {
		return fmt.Errorf("task kind '%s' not registered", kind)
	}

	if e.definition.ResultSchema == nil {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(e.definition.ResultSchema)
	documentLoader := gojsonschema.NewGoLoader(result)

	validation, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate result for kind '%s': %w", kind, err)
	}

	if !validation.Valid() {
		errs := validation.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("result for kind '%s' does not match schema: %s", kind, errs[0].String())
		}

		return fmt.Errorf("result for kind '%s' does not match schema", kind)
	}

	return nil
}

// StatusResultSchema is the minimal schema shared by the built-in agents:
// every result carries a status string.
func StatusResultSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status": map[string]any{
				"type": "string",
			},
		},
		"required": []string{"status"},
	}
}

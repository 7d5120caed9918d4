package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildSpanJSONSchema returns a JSON-Schema (draft 2020-12 subset) for the span
// payload as a generic map. We pass this to the model as an output constraint
// and also use it locally to validate.
func BuildSpanJSONSchema() map[string]any {
	span := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"extraction_class": map[string]any{"type": "string", "minLength": 1},
			"extraction_text":  map[string]any{"type": "string"},
			"attributes":       map[string]any{"type": "object"},
			"start_pos":        map[string]any{"type": "integer", "minimum": 0},
			"end_pos":          map[string]any{"type": "integer", "minimum": 0},
			"group_index":      map[string]any{"type": "integer"},
			"extraction_index": map[string]any{"type": "integer"},
		},
		"required": []string{"extraction_class", "extraction_text"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"extractions": map[string]any{
				"type":  "array",
				"items": span,
			},
		},
		"required": []string{"extractions"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

package registry

import (
	"encoding/json"
	"fmt"

	"github.com/eino-contrib/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// JSONSchema describes the record document of kind. Property order follows the
// field declaration order so prompts list fields the way they are asked.
func JSONSchema(kind Kind) *jsonschema.Schema {
	fields := Fields(kind)
	props := orderedmap.New[string, *jsonschema.Schema]()
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		prop := &jsonschema.Schema{
			Type:        "string",
			Title:       f.Label,
			Description: f.Description,
		}
		if f.Numeric {
			prop.Type = "number"
		}
		if f.Name == "date_of_birth" || f.Name == "date_of_death" {
			prop.Format = "date"
			prop.Pattern = datePattern.String()
		}
		props.Set(f.Name, prop)
		required = append(required, f.Name)
	}
	return &jsonschema.Schema{
		Type:        "object",
		Title:       string(kind),
		Description: fmt.Sprintf("Application data for a %s", kind),
		Properties:  props,
		Required:    required,
	}
}

// JSONSchemaString is JSONSchema encoded for prompts.
func JSONSchemaString(kind Kind) (string, error) {
	b, err := json.Marshal(JSONSchema(kind))
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON schema: %w", err)
	}
	return string(b), nil
}

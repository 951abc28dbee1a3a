// internal/engine/templates/schema.go
package templates

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateDocument checks doc against a JSON Schema and returns one message
// per violation. An empty schema accepts everything.
func ValidateDocument(schema, doc map[string]interface{}) ([]string, error) {
	if len(schema) == 0 {
		return nil, nil
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		violations[i] = desc.String()
	}
	return violations, nil
}

// CompileSchema reports whether schema is a loadable JSON Schema.
func CompileSchema(schema map[string]interface{}) error {
	if len(schema) == 0 {
		return nil
	}
	if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema)); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return nil
}

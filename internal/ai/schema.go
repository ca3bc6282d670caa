package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// schemaCache holds compiled schemas by Schema.Name.
var schemaCache sync.Map // map[string]*gojsonschema.Schema

// ValidateJSON checks that raw is valid JSON satisfying schema. A nil schema
// accepts anything. Failures are returned as *ErrInvalidResponse.
func ValidateJSON(schema *Schema, raw string) error {
	if schema == nil {
		return nil
	}

	if !json.Valid([]byte(raw)) {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("response is not valid JSON")}
	}

	compiled, err := compiledSchema(schema)
	if err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("compile schema %q: %w", schema.Name, err)}
	}

	result, err := compiled.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("validate: %w", err)}
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return &ErrInvalidResponse{
			Content: raw,
			Err:     fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; ")),
		}
	}
	return nil
}

func compiledSchema(schema *Schema) (*gojsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*gojsonschema.Schema), nil
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema.Definition))
	if err != nil {
		return nil, err
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}

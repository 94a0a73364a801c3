// Package validation generates JSON schemas from Go types and validates
// documents against them.
package validation

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// Result describes the outcome of validating one document.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// GenerateSchema reflects T into a closed, dereferenced schema. Only fields
// tagged `jsonschema:"required"` are required.
func GenerateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	m, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	// gojsonschema only understands drafts up to 7; the keywords used here are common to all.
	delete(m, "$schema")
	delete(m, "$id")
	return m
}

// SchemaJSON renders GenerateSchema[T] as indented JSON, for prompts and registries.
func SchemaJSON[T any]() string {
	b, err := json.MarshalIndent(GenerateSchema[T](), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func schemaToMap(schema *jsonschema.Schema) (map[string]interface{}, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ValidateDocument checks doc against schema. Null members of doc are dropped
// before validation so that optional pointer fields may be absent or null.
func ValidateDocument(schema map[string]interface{}, doc interface{}) (*Result, error) {
	normalized, err := normalize(doc)
	if err != nil {
		return nil, err
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(normalized))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &Result{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, desc.String())
	}
	return out, nil
}

func normalize(doc interface{}) (interface{}, error) {
	if m, ok := doc.(map[string]interface{}); ok {
		return dropNulls(m), nil
	}
	if doc == nil || reflect.ValueOf(doc).Kind() == reflect.String {
		return doc, nil
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if m, ok := generic.(map[string]interface{}); ok {
		return dropNulls(m), nil
	}
	return generic, nil
}

func dropNulls(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		if nested, ok := v.(map[string]interface{}); ok {
			v = dropNulls(nested)
		}
		out[k] = v
	}
	return out
}

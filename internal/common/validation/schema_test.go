package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  *string  `json:"name"`
	Price *float64 `json:"price" jsonschema:"minimum=0"`
	Tags  []string `json:"tags"`
	Score float64  `json:"score" jsonschema:"required,minimum=0,maximum=1"`
}

func strPtr(s string) *string { return &s }

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema[sample]()

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.NotContains(t, schema, "$schema")
	assert.Equal(t, []interface{}{"score"}, schema["required"])

	props := schema["properties"].(map[string]interface{})
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "price")
	assert.Contains(t, SchemaJSON[sample](), `"score"`)
}

func TestValidateDocument(t *testing.T) {
	schema := GenerateSchema[sample]()
	negative := -5.0

	tests := []struct {
		name  string
		doc   interface{}
		valid bool
	}{
		{"typed struct with nulls", sample{Name: strPtr("x"), Score: 0.3}, true},
		{"generic map with nulls", map[string]interface{}{"name": nil, "score": 0.5}, true},
		{"score above range", sample{Score: 1.5}, false},
		{"negative price", sample{Price: &negative, Score: 0.1}, false},
		{"missing required", map[string]interface{}{"name": "x"}, false},
		{"unknown member", map[string]interface{}{"score": 0.1, "brandish": "y"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateDocument(schema, tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid, result.Errors)
			if !tt.valid {
				assert.NotEmpty(t, result.Errors)
			}
		})
	}
}

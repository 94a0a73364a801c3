package generatequestions

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"shopwhiz/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t, fields: make(map[string]interface{})}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{t: l.t, fields: merged}
}

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T) *Handler {
	h, err := NewHandler(&Config{BaselineCategory: "general"}, NewTestLogger(t))
	require.NoError(t, err)
	return h
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "shopping-conversation",
		ElementId:          "Activity_GenerateQuestions",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            1,
		Variables:          string(variablesJSON),
	}}
}

func facets(questions []models.FollowUpQuestion) []string {
	out := make([]string, len(questions))
	for i, q := range questions {
		out[i] = q.Facet
	}
	return out
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_TitanWatch(t *testing.T) {
	h := createTestHandler(t)

	output, err := h.Execute(context.Background(), &Input{Extracted: models.ExtractedFilters{
		Category: models.StringPtr("watches"),
		Brand:    models.StringPtr("Titan"),
		PriceMax: models.FloatPtr(3000),
	}})

	require.NoError(t, err)
	assert.True(t, output.Success)
	assert.Equal(t, "watches", output.Category)
	assert.False(t, output.UsedFallback)

	// priceRange is dropped because priceMax is known; displayType must be asked.
	assert.Equal(t, []string{"displayType", "platforms", "gender"}, facets(output.FollowUpQuestions))
	assert.Equal(t, []string{"Analog", "Digital", "Smartwatch"}, output.FollowUpQuestions[0].Options)
}

func TestHandler_Execute_FacetFiltering(t *testing.T) {
	tests := []struct {
		name     string
		input    *Input
		expected []string
		category string
	}{
		{
			name:     "price min alone drops price range",
			input:    &Input{Extracted: models.ExtractedFilters{Category: models.StringPtr("laptops"), PriceMin: models.FloatPtr(40000)}},
			expected: []string{"usage", "platforms", "ram", "storage"},
			category: "laptops",
		},
		{
			name:     "no price keeps range, sorted by priority",
			input:    &Input{Extracted: models.ExtractedFilters{Category: models.StringPtr("laptops")}},
			expected: []string{"usage", "priceRange", "platforms", "ram", "storage"},
			category: "laptops",
		},
		{
			name:     "known size is not re-asked",
			input:    &Input{Extracted: models.ExtractedFilters{Category: models.StringPtr("Clothing"), Size: models.StringPtr("M")}},
			expected: []string{"gender", "platforms", "priceRange", "occasion"},
			category: "clothing",
		},
		{
			name:     "type known hides display type",
			input:    &Input{Extracted: models.ExtractedFilters{Category: models.StringPtr("watches"), Type: models.StringPtr("Smartwatch")}},
			expected: []string{"priceRange", "platforms", "gender"},
			category: "watches",
		},
		{
			name:     "answered facets are excluded",
			input:    &Input{Extracted: models.ExtractedFilters{Category: models.StringPtr("watches")}, AnsweredFacets: []string{"platforms"}},
			expected: []string{"displayType", "priceRange", "gender"},
			category: "watches",
		},
		{
			name:     "unknown category uses neutral baseline",
			input:    &Input{Extracted: models.ExtractedFilters{Category: models.StringPtr("furniture")}},
			expected: []string{"priceRange", "platforms", "sort", "color"},
			category: "general",
		},
		{
			name:     "nil category uses neutral baseline",
			input:    &Input{},
			expected: []string{"priceRange", "platforms", "sort", "color"},
			category: "general",
		},
	}

	h := createTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.category, output.Category)
			assert.Equal(t, tt.expected, facets(output.FollowUpQuestions))
		})
	}
}

func TestHandler_Execute_FallbackWhenEverythingKnown(t *testing.T) {
	table, err := ParseTable([]byte(`
baseline: general
categories:
  watches:
    - {facet: brand, question: "Brand?", type: radio, options: [Titan], priority: 1}
    - {facet: priceRange, question: "Budget?", type: slider, min: 0, max: 10, priority: 2}
  general:
    - {facet: platforms, question: "Where?", type: checkbox, options: [Amazon], priority: 1}
    - {facet: sort, question: "Sort?", type: radio, options: [Best match], priority: 3}
    - {facet: color, question: "Colour?", type: swatch, options: [Black], priority: 9}
`))
	require.NoError(t, err)

	h, err := NewHandlerWithTable(&Config{}, table, NewTestLogger(t))
	require.NoError(t, err)

	output, err := h.Execute(context.Background(), &Input{Extracted: models.ExtractedFilters{
		Category: models.StringPtr("watches"),
		Brand:    models.StringPtr("Titan"),
		PriceMax: models.FloatPtr(3000),
	}})

	require.NoError(t, err)
	assert.True(t, output.UsedFallback)
	assert.Equal(t, []string{"sort", "platforms"}, facets(output.FollowUpQuestions))
}

// ==========================
// Property Tests
// ==========================

func TestHandler_Generate_NonEmptyUniqueAndUnknownFacets(t *testing.T) {
	h := createTestHandler(t)

	inputs := []models.ExtractedFilters{
		{},
		{Category: models.StringPtr("watches"), Brand: models.StringPtr("Titan"), PriceMax: models.FloatPtr(3000)},
		{Category: models.StringPtr("shoes"), Color: models.StringPtr("Black"), Size: models.StringPtr("9"), PriceMin: models.FloatPtr(1)},
		{Category: models.StringPtr("smartphones"), Type: models.StringPtr("Android")},
		{Category: models.StringPtr("clothing"), Size: models.StringPtr("L"), Color: models.StringPtr("Red")},
		{Category: models.StringPtr("audio")},
	}

	for _, filters := range inputs {
		questions, err := h.Generate(context.Background(), filters)
		require.NoError(t, err)
		require.NotEmpty(t, questions)

		seen := map[string]bool{}
		for i, q := range questions {
			assert.False(t, seen[q.Facet], "duplicate facet %s", q.Facet)
			seen[q.Facet] = true
			assert.False(t, filters.HasFacet(q.Facet), "facet %s already known", q.Facet)
			if i > 0 {
				assert.GreaterOrEqual(t, questions[i-1].Priority, q.Priority)
			}
		}
	}
}

func TestHandler_Generate_ReturnsCopies(t *testing.T) {
	h := createTestHandler(t)
	filters := models.ExtractedFilters{Category: models.StringPtr("watches")}

	first, err := h.Generate(context.Background(), filters)
	require.NoError(t, err)
	first[0].Options[0] = "mutated"

	second, err := h.Generate(context.Background(), filters)
	require.NoError(t, err)
	assert.Equal(t, "Analog", second[0].Options[0])
}

// ==========================
// Table Tests
// ==========================

func TestLoadTable_Embedded(t *testing.T) {
	table, err := LoadTable("")
	require.NoError(t, err)

	assert.Equal(t, "general", table.Baseline)
	for _, c := range []string{"watches", "laptops", "clothing", "smartphones", "shoes", "general"} {
		assert.NotEmpty(t, table.Categories[c], c)
	}
}

func TestLoadTable_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
baseline: general
categories:
  general:
    - {facet: platforms, question: "Where?", type: checkbox, options: [Amazon], priority: 1}
    - {facet: sort, question: "Sort?", type: radio, options: [Best match], priority: 1}
`), 0o644))

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.Len(t, table.Categories["general"], 2)

	_, err = LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseTable_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no categories", `baseline: general`},
		{"duplicate facet", `categories: {general: [{facet: a, type: radio, options: [x]}, {facet: a, type: radio, options: [y]}]}`},
		{"choice without options", `categories: {general: [{facet: a, type: checkbox}]}`},
		{"range without bounds", `categories: {general: [{facet: a, type: slider, min: 5}]}`},
		{"inverted range", `categories: {general: [{facet: a, type: slider, min: 9, max: 1}]}`},
		{"unknown type", `categories: {general: [{facet: a, type: text}]}`},
		{"missing facet", `categories: {general: [{type: radio, options: [x]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestNewHandler_BaselineMustExist(t *testing.T) {
	table, err := ParseTable([]byte(`categories: {watches: [{facet: a, type: radio, options: [x]}]}`))
	require.NoError(t, err)

	_, err = NewHandlerWithTable(&Config{BaselineCategory: "general"}, table, NewTestLogger(t))
	assert.Error(t, err)
}

func TestDecodeInput(t *testing.T) {
	job := createMockJob(42, map[string]interface{}{
		"filters": map[string]interface{}{"category": "watches", "priceMax": 3000, "confidence": 0.3},
	})

	input, err := decodeInput(job)
	require.NoError(t, err)
	assert.Equal(t, "watches", *input.Extracted.Category)
	assert.Equal(t, 3000.0, *input.Extracted.PriceMax)

	job = createMockJob(43, map[string]interface{}{
		"extracted":      map[string]interface{}{"category": "laptops"},
		"answeredFacets": []string{"usage"},
	})
	input, err = decodeInput(job)
	require.NoError(t, err)
	assert.Equal(t, "laptops", *input.Extracted.Category)
	assert.Equal(t, []string{"usage"}, input.AnsweredFacets)

	bad := createMockJob(44, nil)
	bad.Variables = "{not json"
	_, err = decodeInput(bad)
	assert.ErrorIs(t, err, ErrQuestionGenerationFailed)
}

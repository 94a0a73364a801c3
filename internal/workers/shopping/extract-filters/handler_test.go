package extractfilters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "shopwhiz/internal/common/errors"
	"shopwhiz/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Logger Implementation
// ==========================

// TestLogger implements the Logger interface for testing
type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{
		t:      t,
		fields: make(map[string]interface{}),
	}
}

func (l *TestLogger) Debug(msg string, fields map[string]interface{}) {
	l.t.Logf("DEBUG: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	return &TestLogger{t: l.t, fields: l.mergeFields(fields)}
}

func (l *TestLogger) mergeFields(fields map[string]interface{}) map[string]interface{} {
	allFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		allFields[k] = v
	}
	for k, v := range fields {
		allFields[k] = v
	}
	return allFields
}

// BenchmarkLogger is a minimal logger for benchmarks
type BenchmarkLogger struct{}

func (b *BenchmarkLogger) Debug(msg string, fields map[string]interface{}) {}
func (b *BenchmarkLogger) Info(msg string, fields map[string]interface{})  {}
func (b *BenchmarkLogger) Warn(msg string, fields map[string]interface{})  {}
func (b *BenchmarkLogger) Error(msg string, fields map[string]interface{}) {}
func (b *BenchmarkLogger) With(fields map[string]interface{}) Logger       { return b }

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig(baseURL string) *Config {
	return &Config{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Model:       "llama3-70b-8192",
		Temperature: 0.1,
		Timeout:     2 * time.Second,
		MaxRetries:  1,
	}
}

func chatResponse(content string) string {
	resp := map[string]interface{}{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "llama3-70b-8192",
		"choices": []interface{}{
			map[string]interface{}{
				"index":         0,
				"message":       map[string]interface{}{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

// llmServer answers every completion with content and counts calls.
func llmServer(t *testing.T, status int, content string, calls *int32) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"upstream failure","type":"server_error"}}`))
			return
		}
		w.Write([]byte(chatResponse(content)))
	}))
	t.Cleanup(server.Close)
	return server
}

func assertAllNull(t *testing.T, f models.ExtractedFilters) {
	t.Helper()
	assert.Nil(t, f.Category)
	assert.Nil(t, f.Brand)
	assert.Nil(t, f.PriceMin)
	assert.Nil(t, f.PriceMax)
	assert.Nil(t, f.Color)
	assert.Nil(t, f.Size)
	assert.Nil(t, f.Material)
	assert.Equal(t, 0.0, f.Confidence)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	var calls int32
	server := llmServer(t, http.StatusOK,
		`{"category":"watches","brand":"Titan","priceMax":3000,"priceMin":null,"color":null,"size":null,"material":null,"confidence":0.8}`,
		&calls)

	h := NewHandler(createTestConfig(server.URL), NewTestLogger(t))
	output, err := h.Execute(context.Background(), &Input{Query: "Titan waterproof watch under 3000"})

	require.NoError(t, err)
	assert.True(t, output.Success)
	assert.Empty(t, output.Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	require.NotNil(t, output.Extracted.Category)
	assert.Equal(t, "watches", *output.Extracted.Category)
	assert.Equal(t, "Titan", *output.Filters.Brand)
	assert.Equal(t, 3000.0, *output.Filters.PriceMax)
	assert.Equal(t, 0.8, output.Filters.Confidence)

	// Heuristic-only facts are merged into the pipeline record.
	assert.Nil(t, output.Extracted.Features)
	assert.Equal(t, []string{"Water Resistant"}, output.Filters.Features)
}

func TestHandler_Execute_ComputesConfidence(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		query      string
		confidence float64
	}{
		{
			name:       "confidence omitted",
			content:    `{"category":"watches","brand":"Titan","priceMax":3000}`,
			query:      "Titan watch under 3000",
			confidence: 0.45,
		},
		{
			name:       "zero confidence treated as omitted",
			content:    `{"category":"laptops","brand":"Dell","confidence":0}`,
			query:      "dell laptop",
			confidence: 0.3,
		},
		{
			name:       "heuristic fills gaps before counting",
			content:    `{"category":"watches","brand":null}`,
			query:      "Titan black watch under 3000",
			confidence: 0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := llmServer(t, http.StatusOK, tt.content, &calls)
			h := NewHandler(createTestConfig(server.URL), NewTestLogger(t))

			output, err := h.Execute(context.Background(), &Input{Query: tt.query})
			require.NoError(t, err)
			assert.True(t, output.Success)
			assert.InDelta(t, tt.confidence, output.Filters.Confidence, 1e-9)
			assert.GreaterOrEqual(t, output.Filters.Confidence, 0.0)
			assert.LessOrEqual(t, output.Filters.Confidence, 1.0)
		})
	}
}

func TestHandler_Execute_SanitizesCompletion(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, f models.ExtractedFilters)
	}{
		{
			name:    "markdown fenced",
			content: "```json\n{\"category\":\"Laptops\",\"brand\":\"HP\",\"confidence\":0.7}\n```",
			check: func(t *testing.T, f models.ExtractedFilters) {
				assert.Equal(t, "laptops", *f.Category)
				assert.Equal(t, "HP", *f.Brand)
			},
		},
		{
			name:    "type spelled like the question options",
			content: `{"category":"watches","type":"smart watch","confidence":0.5}`,
			check: func(t *testing.T, f models.ExtractedFilters) {
				assert.Equal(t, "Smartwatch", *f.Type)
			},
		},
		{
			name:    "unknown category dropped",
			content: `{"category":"furniture","brand":"Ikea","confidence":0.5}`,
			check: func(t *testing.T, f models.ExtractedFilters) {
				assert.Nil(t, f.Category)
				assert.Equal(t, "Ikea", *f.Brand)
			},
		},
		{
			name:    "string prices coerced and negatives dropped",
			content: `{"category":"watches","priceMax":"₹3,000","priceMin":-10,"confidence":0.5}`,
			check: func(t *testing.T, f models.ExtractedFilters) {
				assert.Equal(t, 3000.0, *f.PriceMax)
				assert.Nil(t, f.PriceMin)
			},
		},
		{
			name:    "null strings and envelope",
			content: `{"filters":{"category":"shoes","brand":"null","color":"","confidence":0.4}}`,
			check: func(t *testing.T, f models.ExtractedFilters) {
				assert.Equal(t, "shoes", *f.Category)
				assert.Nil(t, f.Brand)
				assert.Nil(t, f.Color)
			},
		},
		{
			name:    "confidence clamped",
			content: `{"category":"audio","confidence":7}`,
			check: func(t *testing.T, f models.ExtractedFilters) {
				assert.Equal(t, 1.0, f.Confidence)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := llmServer(t, http.StatusOK, tt.content, &calls)
			h := NewHandler(createTestConfig(server.URL), NewTestLogger(t))

			output, err := h.Execute(context.Background(), &Input{Query: "something to buy"})
			require.NoError(t, err)
			require.True(t, output.Success, output.Error)
			tt.check(t, output.Extracted)
		})
	}
}

// ==========================
// Degradation Tests
// ==========================

func TestHandler_Execute_MalformedJSONFallsBack(t *testing.T) {
	var calls int32
	server := llmServer(t, http.StatusOK, `Sure! Here are the filters: category watches`, &calls)
	h := NewHandler(createTestConfig(server.URL), NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{Query: "Titan watch under 3000"})

	require.NoError(t, err)
	assert.False(t, output.Success)
	assert.Contains(t, output.Error, "LLM_RESPONSE_INVALID")
	assertAllNull(t, output.Extracted)

	require.NotNil(t, output.Filters.Brand)
	assert.Equal(t, "Titan", *output.Filters.Brand)
	assert.Equal(t, "watches", *output.Filters.Category)
	assert.Equal(t, 3000.0, *output.Filters.PriceMax)
	assert.InDelta(t, 0.45, output.Filters.Confidence, 1e-9)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "malformed output is not retried")
}

func TestHandler_Execute_ServerErrorRetried(t *testing.T) {
	var calls int32
	server := llmServer(t, http.StatusServiceUnavailable, "", &calls)
	h := NewHandler(createTestConfig(server.URL), NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{Query: "red nike shoes"})

	require.NoError(t, err)
	assert.False(t, output.Success)
	assert.Contains(t, output.Error, "FILTER_EXTRACTION_FAILED")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "Nike", *output.Filters.Brand)
	assert.Equal(t, "Red", *output.Filters.Color)
	assert.Equal(t, "shoes", *output.Filters.Category)
}

func TestHandler_Execute_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := llmServer(t, http.StatusUnauthorized, "", &calls)
	h := NewHandler(createTestConfig(server.URL), NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{Query: "samsung phone"})

	require.NoError(t, err)
	assert.False(t, output.Success)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHandler_Execute_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(chatResponse(`{"category":"watches"}`)))
	}))
	defer server.Close()

	cfg := createTestConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	cfg.MaxRetries = 0
	h := NewHandler(cfg, NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{Query: "casio digital watch"})

	require.NoError(t, err)
	assert.False(t, output.Success)
	assert.Equal(t, ErrLLMTimeout.Error(), output.Error)
	assert.Equal(t, "Casio", *output.Filters.Brand)
	assert.Equal(t, "Digital", *output.Filters.Type)
}

func TestHandler_Execute_EmptyQuery(t *testing.T) {
	var calls int32
	server := llmServer(t, http.StatusOK, `{"category":"watches"}`, &calls)
	h := NewHandler(createTestConfig(server.URL), NewTestLogger(t))

	for _, q := range []string{"", "   ", "\n\t"} {
		output, err := h.Execute(context.Background(), &Input{Query: q})
		require.NoError(t, err)
		assertAllNull(t, output.Extracted)
		assertAllNull(t, output.Filters)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestHandler_Extract_ReturnsStandardError(t *testing.T) {
	var calls int32
	server := llmServer(t, http.StatusInternalServerError, "", &calls)
	cfg := createTestConfig(server.URL)
	cfg.MaxRetries = 0
	h := NewHandler(cfg, NewTestLogger(t))

	filters, err := h.Extract(context.Background(), "Titan watch under 3000")

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeFilterExtractionFailed, stdErr.Code)
	assert.Equal(t, "Titan", *filters.Brand)
}

// ==========================
// Heuristic Tests
// ==========================

func TestHeuristic(t *testing.T) {
	tests := []struct {
		query string
		check func(t *testing.T, f models.ExtractedFilters)
	}{
		{"Titan watch under 3000", func(t *testing.T, f models.ExtractedFilters) {
			assert.Equal(t, "watches", *f.Category)
			assert.Equal(t, "Titan", *f.Brand)
			assert.Equal(t, 3000.0, *f.PriceMax)
			assert.Nil(t, f.PriceMin)
		}},
		{"smartwatch above ₹5,000 with gps", func(t *testing.T, f models.ExtractedFilters) {
			assert.Equal(t, "watches", *f.Category)
			assert.Equal(t, "Smartwatch", *f.Type)
			assert.Equal(t, 5000.0, *f.PriceMin)
			assert.Equal(t, []string{"GPS"}, f.Features)
		}},
		{"iPhone less than 80,000", func(t *testing.T, f models.ExtractedFilters) {
			assert.Equal(t, "smartphones", *f.Category)
			assert.Equal(t, "iPhone", *f.Type)
			assert.Equal(t, 80000.0, *f.PriceMax)
		}},
		{"shop for a cheap bag", func(t *testing.T, f models.ExtractedFilters) {
			// "hp" must not match inside "shop"
			assert.Nil(t, f.Brand)
			assert.Nil(t, f.Category)
		}},
		{"grey cotton t-shirt", func(t *testing.T, f models.ExtractedFilters) {
			assert.Equal(t, "clothing", *f.Category)
			assert.Equal(t, "Grey", *f.Color)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			tt.check(t, Heuristic(tt.query))
		})
	}
}

func TestHeuristic_Idempotent(t *testing.T) {
	queries := []string{"Titan watch under 3000", "waterproof bluetooth earphones below 2000", "", "HP laptop over 40000"}
	for _, q := range queries {
		first := Heuristic(q)
		second := Heuristic(q)
		assert.Equal(t, first, second, q)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(`Titan "watch"`)

	assert.Contains(t, prompt, `"Titan \"watch\""`)
	assert.Contains(t, prompt, "watches, laptops")
	assert.Contains(t, prompt, `"confidence"`)
	assert.True(t, strings.Contains(prompt, "ONLY return valid JSON"))
}

func BenchmarkHeuristic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Heuristic("Titan black waterproof watch under ₹3,000")
	}
}

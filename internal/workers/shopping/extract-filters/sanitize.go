package extractfilters

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"shopwhiz/internal/common/validation"
	"shopwhiz/internal/models"
)

var filterSchema = validation.GenerateSchema[models.ExtractedFilters]()

// parseCompletion turns raw completion text into a sanitized filter record.
// The bool result reports whether the model supplied a usable confidence.
func parseCompletion(content string) (models.ExtractedFilters, bool, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(cleanCompletion(content)), &raw); err != nil {
		return models.ExtractedFilters{}, false, fmt.Errorf("%w: %v", ErrLLMResponseInvalid, err)
	}
	raw = canonicalShape(raw)

	f := models.ExtractedFilters{
		Category: categoryField(raw["category"]),
		Brand:    stringField(raw["brand"]),
		PriceMin: priceField(raw["priceMin"]),
		PriceMax: priceField(raw["priceMax"]),
		Color:    stringField(raw["color"]),
		Size:     stringField(raw["size"]),
		Material: stringField(raw["material"]),
		Type:     typeField(raw["type"]),
		Features: listField(raw["features"]),
	}
	if f.PriceMin != nil && f.PriceMax != nil && *f.PriceMin > *f.PriceMax {
		f.PriceMin, f.PriceMax = f.PriceMax, f.PriceMin
	}

	confidence, ok := numberField(raw["confidence"])
	supplied := ok && confidence > 0
	if supplied {
		f.Confidence = clamp01(confidence)
	}

	result, err := validation.ValidateDocument(filterSchema, f)
	if err != nil {
		return models.ExtractedFilters{}, false, fmt.Errorf("%w: %v", ErrLLMResponseInvalid, err)
	}
	if !result.Valid {
		return models.ExtractedFilters{}, false, fmt.Errorf("%w: %s", ErrLLMResponseInvalid, strings.Join(result.Errors, "; "))
	}

	return f, supplied, nil
}

// canonicalShape unwraps {"filters": {...}} and {"extracted": {...}} envelopes
// so the rest of the pipeline sees a single record shape.
func canonicalShape(raw map[string]interface{}) map[string]interface{} {
	if _, flat := raw["category"]; flat {
		return raw
	}
	for _, key := range []string{"filters", "extracted"} {
		if inner, ok := raw[key].(map[string]interface{}); ok {
			return inner
		}
	}
	return raw
}

func stringField(v interface{}) *string {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
			return nil
		}
		return &s
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s
	}
	return nil
}

// typeAliases maps model spellings onto the labels the question tables offer.
var typeAliases = map[string]string{
	"smart watch": "Smartwatch",
	"smart-watch": "Smartwatch",
	"smartwatch":  "Smartwatch",
	"analog":      "Analog",
	"analogue":    "Analog",
	"digital":     "Digital",
}

func typeField(v interface{}) *string {
	s := stringField(v)
	if s == nil {
		return nil
	}
	if label, ok := typeAliases[strings.ToLower(*s)]; ok {
		return &label
	}
	return s
}

func categoryField(v interface{}) *string {
	s := stringField(v)
	if s == nil {
		return nil
	}
	c := strings.ToLower(*s)
	if !models.IsKnownCategory(c) {
		return nil
	}
	return &c
}

func numberField(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		cleaned := strings.NewReplacer(",", "", "₹", "", "Rs.", "", "INR", "", " ", "").Replace(t)
		n, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func priceField(v interface{}) *float64 {
	n, ok := numberField(v)
	if !ok || n < 0 {
		return nil
	}
	return &n
}

func listField(v interface{}) []string {
	switch t := v.(type) {
	case []interface{}:
		var out []string
		for _, item := range t {
			if s := stringField(item); s != nil {
				out = append(out, *s)
			}
		}
		return out
	case string:
		if s := stringField(t); s != nil {
			return []string{*s}
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

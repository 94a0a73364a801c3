// internal/models/filters.go
package models

import "strings"

// ConfidenceWeight is the contribution of each populated primary field when the
// extractor has to compute confidence itself.
const ConfidenceWeight = 0.15

// Categories the pipeline knows about. Anything else is normalised to nil.
var Categories = []string{
	"watches",
	"laptops",
	"smartphones",
	"clothing",
	"shoes",
	"audio",
	"electronics",
	"accessories",
	"home_kitchen",
	"beauty",
}

// ExtractedFilters is produced once per conversation from the initial query.
// Every field is always serialized; unknown values are null.
type ExtractedFilters struct {
	Category   *string  `json:"category" jsonschema:"description=product category"`
	Brand      *string  `json:"brand"`
	PriceMin   *float64 `json:"priceMin" jsonschema:"minimum=0"`
	PriceMax   *float64 `json:"priceMax" jsonschema:"minimum=0"`
	Color      *string  `json:"color"`
	Size       *string  `json:"size"`
	Material   *string  `json:"material"`
	Type       *string  `json:"type"`
	Features   []string `json:"features"`
	Confidence float64  `json:"confidence" jsonschema:"required,minimum=0,maximum=1"`
}

// EmptyFilters returns the all-null record with confidence 0.
func EmptyFilters() ExtractedFilters {
	return ExtractedFilters{}
}

// PopulatedPrimaryFields counts the non-null primary fields used for confidence.
func (f ExtractedFilters) PopulatedPrimaryFields() int {
	n := 0
	for _, set := range []bool{
		f.Category != nil,
		f.Brand != nil,
		f.PriceMin != nil,
		f.PriceMax != nil,
		f.Color != nil,
		f.Size != nil,
		f.Material != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// ComputeConfidence returns min(1, 0.15 * populated primary fields).
func (f ExtractedFilters) ComputeConfidence() float64 {
	c := ConfidenceWeight * float64(f.PopulatedPrimaryFields())
	if c > 1 {
		return 1
	}
	return c
}

// TypeFacet is the parameter and question facet that carries Type for a
// category.
func TypeFacet(category *string) string {
	if category != nil && *category == "watches" {
		return "displayType"
	}
	return "type"
}

// HasFacet reports whether the named facet already carries a value.
// displayType is the watch-specific name for Type.
func (f ExtractedFilters) HasFacet(facet string) bool {
	switch facet {
	case "category":
		return f.Category != nil
	case "brand":
		return f.Brand != nil
	case "priceMin":
		return f.PriceMin != nil
	case "priceMax":
		return f.PriceMax != nil
	case "priceRange":
		return f.PriceMin != nil || f.PriceMax != nil
	case "color":
		return f.Color != nil
	case "size":
		return f.Size != nil
	case "material":
		return f.Material != nil
	case "type", "displayType":
		return f.Type != nil
	case "features":
		return len(f.Features) > 0
	}
	return false
}

// Merge fills every nil field of f from fallback. Confidence is not merged.
func (f ExtractedFilters) Merge(fallback ExtractedFilters) ExtractedFilters {
	out := f
	if out.Category == nil {
		out.Category = fallback.Category
	}
	if out.Brand == nil {
		out.Brand = fallback.Brand
	}
	if out.PriceMin == nil {
		out.PriceMin = fallback.PriceMin
	}
	if out.PriceMax == nil {
		out.PriceMax = fallback.PriceMax
	}
	if out.Color == nil {
		out.Color = fallback.Color
	}
	if out.Size == nil {
		out.Size = fallback.Size
	}
	if out.Material == nil {
		out.Material = fallback.Material
	}
	if out.Type == nil {
		out.Type = fallback.Type
	}
	if len(out.Features) == 0 && len(fallback.Features) > 0 {
		out.Features = append([]string(nil), fallback.Features...)
	}
	return out
}

// IsKnownCategory reports whether c is one of Categories.
func IsKnownCategory(c string) bool {
	c = strings.ToLower(strings.TrimSpace(c))
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }

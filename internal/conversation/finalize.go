package conversation

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"shopwhiz/internal/models"
)

// FinalizeParams flattens the query, the known filters and the answers into
// search parameters. Lists become repeated keys and range answers become
// <facet>Min and <facet>Max. Answers win over filter values for the same key.
func FinalizeParams(query string, filters models.ExtractedFilters, answers map[string]interface{}) url.Values {
	params := url.Values{}
	params.Set("query", query)

	setString := func(key string, v *string) {
		if v != nil && *v != "" {
			params.Set(key, *v)
		}
	}
	setString("category", filters.Category)
	setString("brand", filters.Brand)
	if filters.PriceMin != nil {
		params.Set("priceMin", formatNumber(*filters.PriceMin))
	}
	if filters.PriceMax != nil {
		params.Set("priceMax", formatNumber(*filters.PriceMax))
	}
	setString("color", filters.Color)
	setString("size", filters.Size)
	setString("material", filters.Material)
	setString(models.TypeFacet(filters.Category), filters.Type)
	for _, f := range filters.Features {
		params.Add("features", f)
	}

	// Sorted for a stable encoding; url.Values.Encode sorts keys anyway.
	facets := make([]string, 0, len(answers))
	for facet := range answers {
		facets = append(facets, facet)
	}
	sort.Strings(facets)

	for _, facet := range facets {
		flattenAnswer(params, facet, answers[facet])
	}
	return params
}

func flattenAnswer(params url.Values, facet string, value interface{}) {
	if r, ok := asRange(value); ok {
		params.Set(facet+"Min", formatNumber(r.Min))
		params.Set(facet+"Max", formatNumber(r.Max))
		return
	}

	switch v := value.(type) {
	case []string:
		params.Del(facet)
		for _, item := range v {
			params.Add(facet, item)
		}
	case []interface{}:
		params.Del(facet)
		for _, item := range v {
			params.Add(facet, scalarString(item))
		}
	case nil:
	default:
		params.Set(facet, scalarString(v))
	}
}

// asRange accepts the typed answer and its decoded map form.
func asRange(value interface{}) (models.RangeAnswer, bool) {
	switch v := value.(type) {
	case models.RangeAnswer:
		return v, true
	case *models.RangeAnswer:
		if v != nil {
			return *v, true
		}
	case map[string]interface{}:
		min, minOK := toFloat(v["min"])
		max, maxOK := toFloat(v["max"])
		if minOK && maxOK && len(v) == 2 {
			return models.RangeAnswer{Min: min, Max: max}, true
		}
	}
	return models.RangeAnswer{}, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func scalarString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return formatNumber(s)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(s)
	}
}

// formatNumber renders 3000 as "3000", not "3000.00" or "3e+03".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SearchURL joins the results path and the encoded parameters.
func SearchURL(resultsPath string, params url.Values) string {
	if resultsPath == "" {
		resultsPath = "/results"
	}
	return resultsPath + "?" + params.Encode()
}

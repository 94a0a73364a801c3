package server

import (
	"net/url"
	"strconv"
	"strings"

	rankresults "shopwhiz/internal/workers/shopping/rank-results"
	searchproducts "shopwhiz/internal/workers/shopping/search-products"
)

// fromSearchParams turns a finished conversation's parameters into the
// fan-out request and the ranking options. Answered price ranges win over
// extracted bounds.
func fromSearchParams(values map[string][]string) (*searchproducts.BatchInput, *rankresults.Input) {
	params := url.Values(values)
	query := params.Get("query")
	category := params.Get("category")

	batch := &searchproducts.BatchInput{
		Query:     query,
		Platforms: platformIDs(params["platforms"]),
		Category:  category,
	}

	rank := &rankresults.Input{
		Query:    query,
		Category: category,
		MinPrice: firstFloat(params, "priceRangeMin", "priceMin"),
		MaxPrice: firstFloat(params, "priceRangeMax", "priceMax"),
		Sort:     params.Get("sort"),
	}
	return batch, rank
}

// platformIDs maps display labels ("Amazon") to ids ("amazon"); comma-joined
// entries are split downstream.
func platformIDs(labels []string) []string {
	ids := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			ids = append(ids, l)
		}
	}
	return ids
}

func firstFloat(params url.Values, keys ...string) *float64 {
	for _, k := range keys {
		v := params.Get(k)
		if v == "" {
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return &f
		}
	}
	return nil
}

package rankresults

import "shopwhiz/internal/models"

const (
	StatusResults   = "results"
	StatusNoResults = "no_results"
	StatusError     = "error"
)

// Input reads the search-products batch output directly from job variables.
type Input struct {
	Query           string            `json:"query"`
	Category        string            `json:"category,omitempty"`
	Searches        []PlatformResults `json:"searches"`
	MinPrice        *float64          `json:"minPrice,omitempty"`
	MaxPrice        *float64          `json:"maxPrice,omitempty"`
	Sort            string            `json:"sort,omitempty"`
	GroupByPlatform bool              `json:"groupByPlatform,omitempty"`
}

type PlatformResults struct {
	Success  bool             `json:"success"`
	Platform string           `json:"platform"`
	Results  []models.Product `json:"results"`
	Error    string           `json:"error,omitempty"`
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type PlatformGroup struct {
	Platform models.Platform  `json:"platform"`
	Products []models.Product `json:"products"`
}

type PlatformError struct {
	Platform string `json:"platform"`
	Error    string `json:"error"`
}

// Output is the aggregated results view. Status separates an empty result
// set from a failed one.
type Output struct {
	Status     string           `json:"status"`
	Query      string           `json:"query"`
	Category   string           `json:"category"`
	Sort       string           `json:"sort"`
	Products   []models.Product `json:"products"`
	Groups     []PlatformGroup  `json:"groups,omitempty"`
	Total      int              `json:"total"`
	PriceRange PriceRange       `json:"priceRange"`
	ErrorCount int              `json:"errorCount"`
	Errors     []PlatformError  `json:"errors,omitempty"`
}

package extractfilters

import "shopwhiz/internal/models"

type Input struct {
	Query string `json:"query"`
}

// Output carries both the collaborator record and the merged record. Extracted
// is the all-null record with confidence 0 whenever Success is false.
type Output struct {
	Success   bool                    `json:"success"`
	Extracted models.ExtractedFilters `json:"extracted"`
	Filters   models.ExtractedFilters `json:"filters"`
	Error     string                  `json:"error,omitempty"`
}

package searchproducts

import (
	"encoding/json"

	"shopwhiz/internal/models"
)

// Input is one platform search.
type Input struct {
	Query    string `json:"query"`
	Platform string `json:"platform"`
	Category string `json:"category,omitempty"`
}

// Output is the per-platform result. A failed search has Success=false and no results.
type Output struct {
	Success   bool             `json:"success"`
	Platform  string           `json:"platform"`
	Query     string           `json:"query"`
	Results   []models.Product `json:"results"`
	Total     int              `json:"total"`
	Error     string           `json:"error,omitempty"`
	ErrorCode string           `json:"errorCode,omitempty"`
}

// BatchInput fans one query out to several platforms.
type BatchInput struct {
	Query     string   `json:"query"`
	Platform  string   `json:"platform,omitempty"`
	Platforms []string `json:"platforms,omitempty"`
	Category  string   `json:"category,omitempty"`
}

// BatchOutput keeps per-platform outputs in request order.
type BatchOutput struct {
	Searches   []Output `json:"searches"`
	ErrorCount int      `json:"errorCount"`
}

type searchRequest struct {
	APIKey            string   `json:"api_key"`
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth"`
	IncludeAnswer     bool     `json:"include_answer"`
	IncludeImages     bool     `json:"include_images"`
	IncludeRawContent bool     `json:"include_raw_content"`
	MaxResults        int      `json:"max_results"`
	IncludeDomains    []string `json:"include_domains"`
	ExcludeDomains    []string `json:"exclude_domains"`
}

type searchResponse struct {
	Query   string         `json:"query"`
	Images  imageList      `json:"images"`
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Content    string    `json:"content"`
	RawContent string    `json:"raw_content"`
	Score      float64   `json:"score"`
	Images     imageList `json:"images"`
}

// imageList accepts both ["url", ...] and [{"url": ...}, ...].
type imageList []string

func (l *imageList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = nil
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && obj.URL != "" {
			out = append(out, obj.URL)
		}
	}
	*l = out
	return nil
}

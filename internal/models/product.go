// internal/models/product.go
package models

// PriceNotAvailable is the price sentinel for results without a detectable price.
const PriceNotAvailable = "Price not available"

// Platform identifies the store a product came from.
type Platform struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Logo  string `json:"logo"`
	Color string `json:"color,omitempty"`
}

// Product is a normalized search result. ID is unique within one result batch.
type Product struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Price       string   `json:"price"`
	Image       string   `json:"image"`
	Platform    Platform `json:"platform"`
	URL         string   `json:"url"`
	Tags        []string `json:"tags"`
	Rating      float64  `json:"rating"`
	Description string   `json:"description,omitempty"`
}

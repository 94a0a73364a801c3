package rankresults

import (
	"regexp"
	"strings"
)

const generalCategory = "general"

type categoryRule struct {
	name     string
	keywords []string
	prices   PriceRange
}

// Ordered so ties resolve to the earlier category.
var categoryRules = []categoryRule{
	{"watches", []string{"watch", "smartwatch", "analog", "digital", "chronograph", "strap", "dial"}, PriceRange{0, 50000}},
	{"laptops", []string{"laptop", "notebook", "macbook", "ultrabook", "chromebook", "gaming laptop"}, PriceRange{0, 200000}},
	{"smartphones", []string{"phone", "smartphone", "mobile", "iphone", "android", "5g"}, PriceRange{0, 150000}},
	{"clothing", []string{"shirt", "t-shirt", "tshirt", "jeans", "dress", "kurta", "jacket", "saree", "top"}, PriceRange{0, 10000}},
	{"home_kitchen", []string{"kitchen", "cookware", "mixer", "blender", "utensil", "bedsheet", "sofa", "lamp"}, PriceRange{0, 100000}},
	{"beauty", []string{"lipstick", "makeup", "skincare", "cream", "serum", "perfume", "shampoo", "moisturizer"}, PriceRange{0, 5000}},
}

var generalPrices = PriceRange{0, 100000}

var wordSplit = regexp.MustCompile(`[^\p{L}\p{N}-]+`)

// DetectCategory scores each category by keyword hits in the query.
func DetectCategory(query string) string {
	text := " " + strings.Join(wordSplit.Split(strings.ToLower(query), -1), " ") + " "

	best, bestScore := generalCategory, 0
	for _, rule := range categoryRules {
		score := 0
		for _, k := range rule.keywords {
			if strings.Contains(text, " "+k+" ") || strings.Contains(text, " "+k+"s ") {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = rule.name, score
		}
	}
	return best
}

// DefaultPriceRange returns the slider bounds for a category.
func DefaultPriceRange(category string) PriceRange {
	for _, rule := range categoryRules {
		if rule.name == category {
			return rule.prices
		}
	}
	return generalPrices
}

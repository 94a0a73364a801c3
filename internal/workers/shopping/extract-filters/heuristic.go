package extractfilters

import (
	"regexp"
	"strconv"
	"strings"

	"shopwhiz/internal/models"
)

type keywordRule struct {
	pattern *regexp.Regexp
	value   string
}

func rule(pattern, value string) keywordRule {
	return keywordRule{pattern: regexp.MustCompile(`\b(?:` + pattern + `)`), value: value}
}

// Matches are attempted in order and the first rule wins.
var (
	categoryRules = []keywordRule{
		rule(`watch|smartwatch`, "watches"),
		rule(`phones?\b|iphones?\b|mobiles?\b|smartphones?\b`, "smartphones"),
		rule(`shoes?\b|sneakers?\b`, "shoes"),
		rule(`laptops?\b|computers?\b|notebooks?\b`, "laptops"),
		rule(`shirts?\b|tshirts?\b|t-shirts?\b`, "clothing"),
		rule(`headphones?\b|earphones?\b|earbuds?\b`, "audio"),
	}

	brands = []string{
		"titan", "casio", "fossil", "timex", "seiko",
		"nike", "adidas", "puma", "reebok",
		"samsung", "apple", "oneplus", "xiaomi", "realme", "oppo", "vivo",
		"dell", "hp", "lenovo", "asus", "acer",
	}

	colors = []string{
		"black", "white", "red", "blue", "green", "yellow", "pink", "purple",
		"orange", "brown", "gray", "grey", "silver", "gold",
	}

	typeRules = map[string][]keywordRule{
		"watches": {
			rule(`analog(?:ue)?\b`, "Analog"),
			rule(`digital\b`, "Digital"),
			rule(`smart`, "Smartwatch"),
		},
		"smartphones": {
			rule(`android\b`, "Android"),
			rule(`iphone\b|ios\b`, "iPhone"),
		},
	}

	featureRules = []keywordRule{
		rule(`waterproof\b|water[ -]resistant\b`, "Water Resistant"),
		rule(`bluetooth\b`, "Bluetooth"),
		rule(`gps\b`, "GPS"),
	}

	priceMaxPattern = regexp.MustCompile(`\b(?:under|below|less\s+than|upto|up\s+to)\s*(?:₹|rs\.?|inr)?\s*(\d+(?:,\d+)*)`)
	priceMinPattern = regexp.MustCompile(`\b(?:above|over|more\s+than)\s*(?:₹|rs\.?|inr)?\s*(\d+(?:,\d+)*)`)

	wordPatterns = map[string]*regexp.Regexp{}
)

func init() {
	for _, w := range append(append([]string{}, brands...), colors...) {
		wordPatterns[w] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}
}

// Heuristic extracts filters with fixed keyword and price-phrase rules. It is
// deterministic and never fails; unmatched fields stay nil.
func Heuristic(query string) models.ExtractedFilters {
	q := strings.ToLower(query)
	var f models.ExtractedFilters

	for _, r := range categoryRules {
		if r.pattern.MatchString(q) {
			f.Category = models.StringPtr(r.value)
			break
		}
	}

	if b := firstWord(q, brands); b != "" {
		f.Brand = models.StringPtr(capitalize(b))
	}
	if c := firstWord(q, colors); c != "" {
		f.Color = models.StringPtr(capitalize(c))
	}

	if v, ok := matchPrice(priceMaxPattern, q); ok {
		f.PriceMax = models.FloatPtr(v)
	}
	if v, ok := matchPrice(priceMinPattern, q); ok {
		f.PriceMin = models.FloatPtr(v)
	}

	if f.Category != nil {
		for _, r := range typeRules[*f.Category] {
			if r.pattern.MatchString(q) {
				f.Type = models.StringPtr(r.value)
				break
			}
		}
	}

	for _, r := range featureRules {
		if r.pattern.MatchString(q) {
			f.Features = append(f.Features, r.value)
		}
	}

	return f
}

func firstWord(q string, words []string) string {
	for _, w := range words {
		if wordPatterns[w].MatchString(q) {
			return w
		}
	}
	return ""
}

func matchPrice(p *regexp.Regexp, q string) (float64, bool) {
	m := p.FindStringSubmatch(q)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

package searchproducts

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"shopwhiz/internal/models"
)

const (
	maxTags        = 5
	maxDescription = 200
	ratingFloor    = 35 // tenths
	ratingSteps    = 16 // 3.5 .. 5.0 in 0.1 steps
)

var (
	// Tried in order against content+title; the first pattern that matches wins.
	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`₹\s?\d[\d,]*(?:\.\d{1,2})?`),
		regexp.MustCompile(`(?i)\bINR\s?\d[\d,]*(?:\.\d{1,2})?`),
		regexp.MustCompile(`(?i)\bRs\.?\s?\d[\d,]*(?:\.\d{1,2})?`),
		regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d{1,2})?`),
	}

	imageURLPattern = regexp.MustCompile(`(?i)https?://[^\s"'<>()]+\.(?:jpe?g|png|webp|gif|avif)(?:\?[^\s"'<>()]*)?`)
	ratingPattern   = regexp.MustCompile(`(?i)\b([0-5](?:\.\d)?)\s*(?:out of 5|/\s?5|stars?)\b`)
	titlePrefix     = regexp.MustCompile(`(?i)^\s*(?:buy|shop)\s+`)
	titleSeparator  = regexp.MustCompile(`\s+[-–|]\s*|\s*[-–|:]\s+`)
	onlineTail      = regexp.MustCompile(`(?i)\s+online\s+at\s+.*$`)
	queryTermSplit  = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	whitespace      = regexp.MustCompile(`\s+`)

	productKeywords = []string{"₹", "rs.", "inr", "$", "price", "buy", "sale", "discount", "offer", "deal", "shop", "mrp"}

	marketingTags = []string{"trending", "best price", "top rated"}
)

// isProductResult keeps results that read like listings and come from an
// allowed domain.
func isProductResult(r searchResult, spec platformSpec) bool {
	text := strings.ToLower(r.Title + " " + r.Content)
	hasKeyword := false
	for _, k := range productKeywords {
		if strings.Contains(text, k) {
			hasKeyword = true
			break
		}
	}
	if !hasKeyword {
		return false
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return false
	}
	return spec.allowsHost(u.Hostname())
}

func extractPrice(text string) string {
	for _, p := range pricePatterns {
		if m := p.FindString(text); m != "" {
			m = strings.TrimRight(m, ",.")
			return whitespace.ReplaceAllString(m, " ")
		}
	}
	return models.PriceNotAvailable
}

func extractImage(r searchResult, spec platformSpec) string {
	for _, img := range r.Images {
		if strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") {
			return img
		}
	}
	if m := imageURLPattern.FindString(r.Content + " " + r.RawContent); m != "" {
		return m
	}
	if spec.placeholder != "" {
		return spec.placeholder
	}
	return genericPlaceholder
}

// titleCleaner strips store branding and promotional segments from listing
// titles for one platform.
type titleCleaner struct {
	platform *regexp.Regexp
	prefix   *regexp.Regexp
	segment  *regexp.Regexp
}

func newTitleCleaner(platformName string) titleCleaner {
	name := regexp.QuoteMeta(platformName) + `(?:\.in|\.com)?`
	return titleCleaner{
		platform: regexp.MustCompile(`(?i)^\s*` + name + `\s*$`),
		prefix:   regexp.MustCompile(`(?i)^\s*` + name + `\s*:\s*`),
		segment:  regexp.MustCompile(`(?i)^(?:buy|shop|online|price|` + name + `)\b`),
	}
}

// clean drops trailing separator segments that are only store noise, one at
// a time from the end, then the leading "<Store>:" and "Buy"/"Shop" words and
// an "online at ..." tail. A result that is empty or just the store name
// falls back to the original title.
func (c titleCleaner) clean(title string) string {
	cleaned := c.prefix.ReplaceAllString(title, "")
	for {
		seps := titleSeparator.FindAllStringIndex(cleaned, -1)
		if len(seps) == 0 {
			break
		}
		last := seps[len(seps)-1]
		if !c.segment.MatchString(strings.TrimSpace(cleaned[last[1]:])) {
			break
		}
		cleaned = cleaned[:last[0]]
	}
	cleaned = titlePrefix.ReplaceAllString(cleaned, "")
	cleaned = onlineTail.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(whitespace.ReplaceAllString(cleaned, " "))
	if cleaned == "" || c.platform.MatchString(cleaned) {
		return strings.TrimSpace(title)
	}
	return cleaned
}

func buildTags(query string) []string {
	tags := make([]string, 0, maxTags)
	seen := make(map[string]bool)
	add := func(t string) {
		if len(tags) < maxTags && !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}
	for _, term := range queryTermSplit.Split(strings.ToLower(query), -1) {
		if len([]rune(term)) > 2 {
			add(term)
		}
	}
	for _, t := range marketingTags {
		add(t)
	}
	return tags
}

// extractRating reads an "x out of 5" style rating from the content, else
// synthesizes a stable value in [3.5, 5.0] from the result identity. The
// synthetic value is a placeholder, not a real rating.
func extractRating(r searchResult) float64 {
	if m := ratingPattern.FindStringSubmatch(r.Content); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 && v <= 5 {
			return v
		}
	}
	h := fnv.New32a()
	h.Write([]byte(r.URL + "|" + r.Title))
	step := h.Sum32() % ratingSteps
	return float64(ratingFloor+step) / 10
}

func describe(content string) string {
	content = strings.TrimSpace(whitespace.ReplaceAllString(content, " "))
	runes := []rune(content)
	if len(runes) <= maxDescription {
		return content
	}
	return strings.TrimSpace(string(runes[:maxDescription])) + "…"
}

func productID(platform string, batchMillis int64, index int) string {
	return fmt.Sprintf("%s-%d-%d", platform, batchMillis, index)
}

// normalize converts filtered results into products, capped at limit.
func normalize(results []searchResult, spec platformSpec, query string, batchMillis int64, limit int) []models.Product {
	titles := newTitleCleaner(spec.platform.Name)
	tags := buildTags(query)

	products := make([]models.Product, 0, limit)
	for _, r := range results {
		if len(products) >= limit {
			break
		}
		if !isProductResult(r, spec) {
			continue
		}
		products = append(products, models.Product{
			ID:          productID(spec.platform.ID, batchMillis, len(products)),
			Title:       titles.clean(r.Title),
			Price:       extractPrice(r.Content + " " + r.Title),
			Image:       extractImage(r, spec),
			Platform:    spec.platform,
			URL:         r.URL,
			Tags:        append([]string(nil), tags...),
			Rating:      extractRating(r),
			Description: describe(r.Content),
		})
	}
	return products
}

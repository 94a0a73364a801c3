package conversation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"shopwhiz/internal/models"
)

const (
	skipText       = "No preference"
	completionText = "Great! I've found some products that match your requirements. Redirecting to results..."
	degradedNotice = "I couldn't fully understand your request, so I'm working with what I could pick out."
	fallbackNotice = "Question generation failed; using default questions"

	messageTypeAcknowledgment = "acknowledgment"
	messageTypeQuestion       = "question"
	messageTypeAnswer         = "answer"
	messageTypeSearchComplete = "search_complete"
)

// acknowledgment summarizes what extraction found.
func acknowledgment(f models.ExtractedFilters, questions int) string {
	var subject []string
	if f.Brand != nil {
		subject = append(subject, *f.Brand)
	}
	if f.Category != nil {
		subject = append(subject, strings.ReplaceAll(*f.Category, "_", " "))
	}
	found := strings.Join(subject, " ")
	if found == "" {
		found = "a few options"
	}

	switch {
	case f.PriceMin != nil && f.PriceMax != nil:
		found += fmt.Sprintf(" between %s and %s", formatRupees(*f.PriceMin), formatRupees(*f.PriceMax))
	case f.PriceMax != nil:
		found += " under " + formatRupees(*f.PriceMax)
	case f.PriceMin != nil:
		found += " above " + formatRupees(*f.PriceMin)
	}

	noun := "questions"
	if questions == 1 {
		noun = "question"
	}
	return fmt.Sprintf("Perfect! I found %s. I have %d quick %s to find exactly what you need!", found, questions, noun)
}

// formatRupees groups thousands: 3000 -> ₹3,000, 1299.5 -> ₹1,299.50.
func formatRupees(v float64) string {
	whole, frac := math.Modf(math.Abs(v))
	digits := strconv.FormatFloat(whole, 'f', 0, 64)

	var b strings.Builder
	if v < 0 {
		b.WriteByte('-')
	}
	b.WriteString("₹")
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac > 0.004 {
		b.WriteString(strconv.FormatFloat(frac, 'f', 2, 64)[1:])
	}
	return b.String()
}

func questionMetadata(q models.FollowUpQuestion, step int) map[string]interface{} {
	meta := map[string]interface{}{
		"type":         messageTypeQuestion,
		"facet":        q.Facet,
		"questionType": string(q.Type),
		"step":         step,
	}
	if len(q.Options) > 0 {
		meta["options"] = q.Options
	}
	if q.Min != nil {
		meta["min"] = *q.Min
	}
	if q.Max != nil {
		meta["max"] = *q.Max
	}
	return meta
}

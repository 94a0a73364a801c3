package conversation

import "shopwhiz/internal/models"

// fallbackQuestions is the fixed set used when question generation fails.
// Facets already known from the filters are left out; platforms always stays.
func fallbackQuestions(filters models.ExtractedFilters) []models.FollowUpQuestion {
	candidates := []models.FollowUpQuestion{
		{
			Facet:    "priceRange",
			Question: "What's your budget range?",
			Type:     models.QuestionRange,
			Min:      models.FloatPtr(0),
			Max:      models.FloatPtr(100000),
			Priority: 10,
		},
		{
			Facet:    "platforms",
			Question: "Which platforms should I search?",
			Type:     models.QuestionMultiChoice,
			Options:  []string{"Amazon", "Flipkart", "Myntra", "Ajio"},
			Priority: 5,
		},
	}

	questions := make([]models.FollowUpQuestion, 0, len(candidates))
	for _, q := range candidates {
		if !filters.HasFacet(q.Facet) {
			questions = append(questions, q)
		}
	}
	return questions
}

package generatequestions

import "shopwhiz/internal/models"

type Input struct {
	Extracted      models.ExtractedFilters `json:"extracted"`
	AnsweredFacets []string                `json:"answeredFacets,omitempty"`
}

type Output struct {
	Success           bool                      `json:"success"`
	Category          string                    `json:"category"`
	FollowUpQuestions []models.FollowUpQuestion `json:"followUpQuestions"`
	UsedFallback      bool                      `json:"usedFallback"`
}

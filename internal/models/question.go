// internal/models/question.go
package models

// QuestionType is how a follow-up question is rendered and answered.
type QuestionType string

const (
	QuestionSingleChoice QuestionType = "radio"
	QuestionMultiChoice  QuestionType = "checkbox"
	QuestionRange        QuestionType = "slider"
	QuestionSwatch       QuestionType = "swatch"
	QuestionDropdown     QuestionType = "select"
)

// FollowUpQuestion is one clarifying prompt. Facet is unique within a set.
type FollowUpQuestion struct {
	Facet    string       `json:"facet" yaml:"facet"`
	Question string       `json:"question" yaml:"question"`
	Type     QuestionType `json:"type" yaml:"type"`
	Options  []string     `json:"options,omitempty" yaml:"options,omitempty"`
	Min      *float64     `json:"min,omitempty" yaml:"min,omitempty"`
	Max      *float64     `json:"max,omitempty" yaml:"max,omitempty"`
	Priority int          `json:"priority" yaml:"priority"`
}

// IsChoice reports whether the question needs an option list.
func (q FollowUpQuestion) IsChoice() bool {
	switch q.Type {
	case QuestionSingleChoice, QuestionMultiChoice, QuestionSwatch, QuestionDropdown:
		return true
	}
	return false
}

// RangeAnswer is the answer shape for numeric-range questions.
type RangeAnswer struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

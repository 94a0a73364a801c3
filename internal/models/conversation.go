// internal/models/conversation.go
package models

import "time"

// Role of a conversation message author.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Status is the sequencer state.
type Status string

const (
	StatusInitial            Status = "initial"
	StatusAwaitingExtraction Status = "awaiting_extraction"
	StatusQuestions          Status = "questions"
	StatusComplete           Status = "complete"
	StatusError              Status = "error"
)

// Message is one entry of the conversation log.
type Message struct {
	ID        string                 `json:"id"`
	Role      Role                   `json:"role"`
	Text      string                 `json:"text"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ConversationState is owned by the conversation sequencer. CurrentQuestion is an
// index into FollowUpQuestions, nil when no question is active.
type ConversationState struct {
	ID                string                 `json:"id"`
	Status            Status                 `json:"status"`
	Generation        int64                  `json:"generation"`
	Messages          []Message              `json:"messages"`
	IsActive          bool                   `json:"isActive"`
	IsComplete        bool                   `json:"isComplete"`
	HasError          bool                   `json:"hasError"`
	ErrorMessage      string                 `json:"errorMessage,omitempty"`
	OriginalQuery     string                 `json:"originalQuery"`
	ExtractedFilters  ExtractedFilters       `json:"extractedFilters"`
	FollowUpQuestions []FollowUpQuestion     `json:"followUpQuestions"`
	CurrentQuestion   *int                   `json:"currentQuestion"`
	AnsweredQuestions map[string]interface{} `json:"answeredQuestions"`
	CurrentStep       int                    `json:"currentStep"`
	FinalSearchParams map[string][]string    `json:"finalSearchParams,omitempty"`
	SearchURL         string                 `json:"searchUrl,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

// NewConversationState returns the empty state a conversation starts in.
func NewConversationState(id string, now time.Time) *ConversationState {
	return &ConversationState{
		ID:                id,
		Status:            StatusInitial,
		Messages:          []Message{},
		FollowUpQuestions: []FollowUpQuestion{},
		AnsweredQuestions: map[string]interface{}{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Current returns the active question, if any.
func (s *ConversationState) Current() (FollowUpQuestion, bool) {
	if s.CurrentQuestion == nil {
		return FollowUpQuestion{}, false
	}
	i := *s.CurrentQuestion
	if i < 0 || i >= len(s.FollowUpQuestions) {
		return FollowUpQuestion{}, false
	}
	return s.FollowUpQuestions[i], true
}

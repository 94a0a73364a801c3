package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "shopwhiz/internal/common/errors"
	"shopwhiz/internal/common/logger"
	"shopwhiz/internal/common/metrics"
	"shopwhiz/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "conversation"

// FilterExtractor turns the opening query into filters. A non-nil error with
// usable filters means extraction degraded; the conversation carries on.
type FilterExtractor interface {
	Extract(ctx context.Context, query string) (models.ExtractedFilters, error)
}

// QuestionGenerator picks the follow-up questions for a set of filters.
type QuestionGenerator interface {
	Generate(ctx context.Context, filters models.ExtractedFilters) ([]models.FollowUpQuestion, error)
}

type Config struct {
	ResultsPath string
}

// AnswerInput answers the current question. Step, when set, must equal the
// state's CurrentStep.
type AnswerInput struct {
	Facet string      `json:"facet"`
	Value interface{} `json:"value"`
	Step  *int        `json:"step,omitempty"`
}

// AnswerResult reports whether the submission changed the state.
type AnswerResult struct {
	Accepted bool                      `json:"accepted"`
	Reason   string                    `json:"reason,omitempty"`
	State    *models.ConversationState `json:"state"`
}

// Service is the conversation sequencer. Every mutation of a conversation
// runs under that conversation's lock.
type Service struct {
	config    Config
	store     Store
	extractor FilterExtractor
	generator QuestionGenerator
	logger    logger.Logger
	locks     *keyedMutex
	now       func() time.Time
	newID     func() string
}

func NewService(cfg Config, store Store, extractor FilterExtractor, generator QuestionGenerator, log logger.Logger) *Service {
	return &Service{
		config:    cfg,
		store:     store,
		extractor: extractor,
		generator: generator,
		logger:    log.With(map[string]interface{}{"component": "conversation"}),
		locks:     newKeyedMutex(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.New().String() },
	}
}

// Create stores a fresh, inactive conversation.
func (s *Service) Create(ctx context.Context) (*models.ConversationState, error) {
	state := models.NewConversationState(s.newID(), s.now())
	if err := s.store.Save(ctx, state); err != nil {
		return nil, err
	}
	s.log(state.ID).Info("conversation created", nil)
	return state, nil
}

// Get returns the current state.
func (s *Service) Get(ctx context.Context, id string) (*models.ConversationState, error) {
	return s.store.Get(ctx, id)
}

// Start runs extraction and question generation for query. An empty id
// creates the conversation. Starting an already started conversation begins
// a new extraction pass and supersedes any pass still in flight.
func (s *Service) Start(ctx context.Context, id, query string) (*models.ConversationState, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewInvalidInputError("query is required")
	}
	if id == "" {
		id = s.newID()
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "startConversation")
	defer span.End()
	span.SetAttributes(attribute.String("conversationId", id))

	generation, err := s.beginPass(ctx, id, query)
	if err != nil {
		return nil, err
	}
	metrics.ConversationsStarted.Inc()

	// Collaborators run outside the lock; the generation check below
	// discards this pass if a Start or Reset happened meanwhile.
	filters, extractErr := s.extractor.Extract(ctx, query)
	if extractErr != nil {
		s.log(id).Warn("filter extraction degraded", map[string]interface{}{
			"error": extractErr.Error(),
		})
	}

	questions, genErr := s.generator.Generate(ctx, filters)
	if genErr == nil && len(questions) == 0 {
		genErr = errors.New("no follow-up questions generated")
	}
	if genErr != nil {
		s.log(id).Error("question generation failed, using fallback questions", map[string]interface{}{
			"error": genErr.Error(),
		})
		metrics.FallbacksUsed.WithLabelValues("sequencer").Inc()
		if err := s.markFailed(ctx, id, generation); err != nil {
			return nil, err
		}
		questions = fallbackQuestions(filters)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	state, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Generation != generation {
		s.log(id).Warn("discarding superseded extraction", map[string]interface{}{
			"generation": state.Generation,
			"result":     generation,
		})
		return nil, apperrors.NewStaleGenerationError(state.Generation, generation)
	}

	now := s.now()
	ackMeta := map[string]interface{}{
		"type":       messageTypeAcknowledgment,
		"confidence": filters.Confidence,
	}
	if extractErr != nil {
		ackMeta["degraded"] = true
		ackMeta["notice"] = degradedNotice
	}

	state.ExtractedFilters = filters
	state.FollowUpQuestions = questions
	state.HasError = genErr != nil
	if genErr != nil {
		state.ErrorMessage = fallbackNotice
	}
	first := 0
	state.CurrentQuestion = &first
	state.CurrentStep = 0
	state.Status = models.StatusQuestions
	state.Messages = append(state.Messages, s.agentMessage(acknowledgment(filters, len(questions)), ackMeta, now))
	state.Messages = append(state.Messages, s.agentMessage(questions[0].Question, questionMetadata(questions[0], 0), now))
	state.UpdatedAt = now

	if err := s.store.Save(ctx, state); err != nil {
		return nil, err
	}

	s.log(id).Info("conversation started", map[string]interface{}{
		"generation": generation,
		"questions":  len(questions),
		"degraded":   extractErr != nil,
	})
	return state, nil
}

// markFailed parks the pass in the error state until the fallback questions
// replace it. A superseded pass is left alone.
func (s *Service) markFailed(ctx context.Context, id string, generation int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	state, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if state.Generation != generation {
		return nil
	}
	state.Status = models.StatusError
	state.HasError = true
	state.ErrorMessage = fallbackNotice
	state.UpdatedAt = s.now()
	return s.store.Save(ctx, state)
}

// beginPass records the user query and bumps the generation.
func (s *Service) beginPass(ctx context.Context, id, query string) (int64, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var generation int64
	previous, err := s.store.Get(ctx, id)
	switch {
	case err == nil:
		generation = previous.Generation
	case errors.Is(err, apperrors.ErrConversationNotFound):
	default:
		return 0, err
	}

	now := s.now()
	state := models.NewConversationState(id, now)
	if previous != nil {
		state.CreatedAt = previous.CreatedAt
	}
	state.Generation = generation + 1
	state.Status = models.StatusAwaitingExtraction
	state.IsActive = true
	state.OriginalQuery = query
	state.Messages = append(state.Messages, s.userMessage(query, nil, now))

	if err := s.store.Save(ctx, state); err != nil {
		return 0, err
	}
	return state.Generation, nil
}

// Answer records value for the current question and advances.
func (s *Service) Answer(ctx context.Context, id string, input AnswerInput) (*AnswerResult, error) {
	return s.advance(ctx, id, input.Step, func(state *models.ConversationState, q models.FollowUpQuestion) (string, interface{}, error) {
		facet := strings.TrimSpace(input.Facet)
		if facet == "" {
			return "", nil, errMissingFacet
		}
		if facet != q.Facet {
			return "", nil, apperrors.NewStaleFacetError(q.Facet, facet)
		}
		value, err := normalizeAnswer(q, input.Value)
		if err != nil {
			return "", nil, err
		}
		state.AnsweredQuestions[q.Facet] = value
		return describeAnswer(q.Facet, value), value, nil
	})
}

// Skip advances past the current question without recording an answer.
func (s *Service) Skip(ctx context.Context, id string, step *int) (*AnswerResult, error) {
	return s.advance(ctx, id, step, func(*models.ConversationState, models.FollowUpQuestion) (string, interface{}, error) {
		return skipText, nil, nil
	})
}

type applyFunc func(state *models.ConversationState, q models.FollowUpQuestion) (text string, value interface{}, err error)

func (s *Service) advance(ctx context.Context, id string, step *int, apply applyFunc) (*AnswerResult, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	state, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.IsComplete {
		return nil, apperrors.NewConversationCompleteError(id)
	}
	if step != nil && *step != state.CurrentStep {
		s.log(id).Warn("rejecting stale answer", map[string]interface{}{
			"currentStep": state.CurrentStep,
			"submitted":   *step,
		})
		return nil, apperrors.NewStaleStepError(state.CurrentStep, *step)
	}

	q, ok := state.Current()
	if !ok || state.Status != models.StatusQuestions {
		return s.reject(id, state, "no active question"), nil
	}

	text, value, err := apply(state, q)
	if err != nil {
		var stdErr *apperrors.StandardError
		if errors.As(err, &stdErr) {
			s.log(id).Warn("rejecting answer for another question", map[string]interface{}{
				"currentFacet": q.Facet,
			})
			return nil, stdErr
		}
		return s.reject(id, state, err.Error()), nil
	}

	now := s.now()
	meta := map[string]interface{}{"type": messageTypeAnswer, "facet": q.Facet}
	if value == nil {
		meta["skipped"] = true
	}
	state.Messages = append(state.Messages, s.userMessage(text, meta, now))
	state.CurrentStep++

	next := *state.CurrentQuestion + 1
	if next < len(state.FollowUpQuestions) {
		state.CurrentQuestion = &next
		nq := state.FollowUpQuestions[next]
		state.Messages = append(state.Messages, s.agentMessage(nq.Question, questionMetadata(nq, state.CurrentStep), now))
	} else {
		state.CurrentQuestion = nil
		s.finalize(ctx, state, now)
	}
	state.UpdatedAt = now

	if err := s.store.Save(ctx, state); err != nil {
		return nil, err
	}

	s.log(id).Info("question answered", map[string]interface{}{
		"facet":    q.Facet,
		"step":     state.CurrentStep,
		"skipped":  value == nil,
		"complete": state.IsComplete,
	})
	return &AnswerResult{Accepted: true, State: state}, nil
}

// reject leaves the state untouched.
func (s *Service) reject(id string, state *models.ConversationState, reason string) *AnswerResult {
	rejection := apperrors.NewInvalidAnswerError(reason)
	s.log(id).Warn("invalid answer ignored", map[string]interface{}{
		"code":        rejection.Code,
		"reason":      rejection.Details,
		"currentStep": state.CurrentStep,
	})
	return &AnswerResult{Accepted: false, Reason: rejection.Details, State: state}
}

func (s *Service) finalize(ctx context.Context, state *models.ConversationState, now time.Time) {
	_, span := otel.Tracer(tracerName).Start(ctx, "finalize")
	defer span.End()

	params := FinalizeParams(state.OriginalQuery, state.ExtractedFilters, state.AnsweredQuestions)
	state.FinalSearchParams = params
	state.SearchURL = SearchURL(s.config.ResultsPath, params)
	state.Status = models.StatusComplete
	state.IsComplete = true
	state.Messages = append(state.Messages, s.agentMessage(completionText, map[string]interface{}{
		"type":      messageTypeSearchComplete,
		"searchUrl": state.SearchURL,
	}, now))

	metrics.ConversationsCompleted.Inc()
	span.SetAttributes(attribute.Int("params", len(params)))
}

// Reset replaces the conversation with a fresh empty state. The generation
// carries over and is bumped so in-flight passes are discarded.
func (s *Service) Reset(ctx context.Context, id string) (*models.ConversationState, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	previous, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	state := models.NewConversationState(id, s.now())
	state.Generation = previous.Generation + 1
	if err := s.store.Save(ctx, state); err != nil {
		return nil, err
	}

	s.log(id).Info("conversation reset", map[string]interface{}{"generation": state.Generation})
	return state, nil
}

// Delete removes the conversation.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.store.Delete(ctx, id)
}

func (s *Service) userMessage(text string, meta map[string]interface{}, now time.Time) models.Message {
	return models.Message{ID: s.newID(), Role: models.RoleUser, Text: text, Timestamp: now, Metadata: meta}
}

func (s *Service) agentMessage(text string, meta map[string]interface{}, now time.Time) models.Message {
	return models.Message{ID: s.newID(), Role: models.RoleAgent, Text: text, Timestamp: now, Metadata: meta}
}

func (s *Service) log(id string) logger.Logger {
	return s.logger.With(map[string]interface{}{"conversationId": id})
}

package generatequestions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	apperrors "shopwhiz/internal/common/errors"
	"shopwhiz/internal/common/metrics"
	"shopwhiz/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "generate-questions"
)

var (
	ErrQuestionGenerationFailed = errors.New("QUESTION_GENERATION_FAILED")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config   *Config
	table    *Table
	baseline string
	logger   Logger
}

func NewHandler(config *Config, log Logger) (*Handler, error) {
	table, err := LoadTable(config.TablePath)
	if err != nil {
		return nil, err
	}
	return NewHandlerWithTable(config, table, log)
}

func NewHandlerWithTable(config *Config, table *Table, log Logger) (*Handler, error) {
	baseline, err := table.resolveBaseline(config.BaselineCategory)
	if err != nil {
		return nil, err
	}
	return &Handler{
		config:   config,
		table:    table,
		baseline: baseline,
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := decodeInput(job)
	if err != nil {
		h.failJob(client, job, apperrors.NewInvalidInputError(err.Error()))
		return
	}

	output, err := h.execute(context.Background(), input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

// decodeInput accepts the canonical {"extracted": ...} variables and the
// {"filters": ...} shape produced by the extract-filters task.
func decodeInput(job entities.Job) (*Input, error) {
	var vars struct {
		Input
		Filters *models.ExtractedFilters `json:"filters"`
	}
	if err := json.Unmarshal([]byte(job.Variables), &vars); err != nil {
		return nil, fmt.Errorf("%w: parse input: %v", ErrQuestionGenerationFailed, err)
	}
	input := vars.Input
	if vars.Filters != nil {
		input.Extracted = *vars.Filters
	}
	return &input, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// Generate returns the prioritized question set for filters. It is never empty.
func (h *Handler) Generate(ctx context.Context, filters models.ExtractedFilters) ([]models.FollowUpQuestion, error) {
	output, err := h.execute(ctx, &Input{Extracted: filters})
	if err != nil {
		return nil, apperrors.NewQuestionGenerationFailedError(err)
	}
	return output.FollowUpQuestions, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input is required", ErrQuestionGenerationFailed)
	}

	_, span := otel.Tracer(TaskType).Start(ctx, "generateQuestions")
	defer span.End()

	category := h.resolveCategory(input.Extracted.Category)
	answered := make(map[string]bool, len(input.AnsweredFacets))
	for _, f := range input.AnsweredFacets {
		answered[f] = true
	}

	var questions []models.FollowUpQuestion
	seen := make(map[string]bool)
	for _, q := range h.table.Categories[category] {
		if seen[q.Facet] || answered[q.Facet] || input.Extracted.HasFacet(q.Facet) {
			continue
		}
		seen[q.Facet] = true
		questions = append(questions, copyQuestion(q))
	}

	usedFallback := false
	if len(questions) == 0 {
		usedFallback = true
		metrics.FallbacksUsed.WithLabelValues("questions").Inc()
		for _, q := range h.table.Categories[h.baseline][:2] {
			questions = append(questions, copyQuestion(q))
		}
	}

	sortByPriority(questions)

	span.SetAttributes(
		attribute.String("category", category),
		attribute.Int("questionCount", len(questions)),
	)
	h.logger.Info("questions generated", map[string]interface{}{
		"category":      category,
		"questionCount": len(questions),
		"usedFallback":  usedFallback,
	})

	return &Output{
		Success:           true,
		Category:          category,
		FollowUpQuestions: questions,
		UsedFallback:      usedFallback,
	}, nil
}

func (h *Handler) resolveCategory(c *string) string {
	if c != nil {
		key := strings.ToLower(strings.TrimSpace(*c))
		if _, ok := h.table.Categories[key]; ok {
			return key
		}
	}
	return h.baseline
}

// sortByPriority orders by priority descending; ties keep table order.
func sortByPriority(questions []models.FollowUpQuestion) {
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].Priority > questions[j].Priority
	})
}

func copyQuestion(q models.FollowUpQuestion) models.FollowUpQuestion {
	out := q
	out.Options = append([]string(nil), q.Options...)
	if q.Min != nil {
		out.Min = models.FloatPtr(*q.Min)
	}
	if q.Max != nil {
		out.Max = models.FloatPtr(*q.Max)
	}
	return out
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	apperrors.NewJobErrorHandler(h.logger).HandleJobError(context.Background(), client, job, err)
}

package extractfilters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	apperrors "shopwhiz/internal/common/errors"
	commonhttp "shopwhiz/internal/common/http"
	"shopwhiz/internal/common/metrics"
	"shopwhiz/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	oai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "extract-filters"
)

var (
	ErrFilterExtractionFailed = errors.New("FILTER_EXTRACTION_FAILED")
	ErrLLMTimeout             = errors.New("LLM_TIMEOUT")
	ErrLLMResponseInvalid     = errors.New("LLM_RESPONSE_INVALID")
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config *Config
	client *oai.Client
	logger Logger
}

func NewHandler(config *Config, log Logger) *Handler {
	oaiConfig := oai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		oaiConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}
	oaiConfig.HTTPClient = commonhttp.NewClient(config.Timeout).HTTPClient()

	return &Handler{
		config: config,
		client: oai.NewClientWithConfig(oaiConfig),
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.jobTimeout())
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	// A degraded extraction still completes the job; the process reads Success.
	h.completeJob(client, job, output)
}

// jobTimeout covers every LLM attempt plus backoff.
func (h *Handler) jobTimeout() time.Duration {
	return h.config.Timeout*time.Duration(h.config.MaxRetries+1) + time.Second
}

// Execute never fails on collaborator problems: the heuristic record is
// merged in and Output.Success reports whether the LLM contributed.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// Extract returns the merged record. The error is non-nil when extraction
// degraded to the heuristic alone; the record is usable either way.
func (h *Handler) Extract(ctx context.Context, query string) (models.ExtractedFilters, error) {
	output, err := h.execute(ctx, &Input{Query: query})
	if err != nil {
		return models.EmptyFilters(), apperrors.NewInvalidInputError(err.Error())
	}
	if output.Success {
		return output.Filters, nil
	}
	return output.Filters, h.toStandardError(errors.New(output.Error))
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.New("input is required")
	}

	ctx, span := otel.Tracer(TaskType).Start(ctx, "extractFilters")
	defer span.End()

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return &Output{
			Success:   true,
			Extracted: models.EmptyFilters(),
			Filters:   models.EmptyFilters(),
		}, nil
	}

	heuristic := Heuristic(query)

	extracted, supplied, err := h.callLLM(ctx, query)
	if err != nil {
		metrics.FallbacksUsed.WithLabelValues("extraction").Inc()
		span.RecordError(err)

		filters := heuristic
		filters.Confidence = filters.ComputeConfidence()

		h.logger.Warn("llm extraction failed, using heuristic filters", map[string]interface{}{
			"error":      err.Error(),
			"confidence": filters.Confidence,
		})

		return &Output{
			Success:   false,
			Extracted: models.EmptyFilters(),
			Filters:   filters,
			Error:     err.Error(),
		}, nil
	}

	if !supplied {
		extracted.Confidence = extracted.ComputeConfidence()
	}

	filters := extracted.Merge(heuristic)
	if supplied {
		filters.Confidence = extracted.Confidence
	} else {
		filters.Confidence = filters.ComputeConfidence()
	}

	span.SetAttributes(attribute.Float64("confidence", filters.Confidence))
	h.logger.Info("filters extracted", map[string]interface{}{
		"category":   deref(filters.Category),
		"brand":      deref(filters.Brand),
		"confidence": filters.Confidence,
	})

	return &Output{
		Success:   true,
		Extracted: extracted,
		Filters:   filters,
	}, nil
}

func (h *Handler) callLLM(ctx context.Context, query string) (models.ExtractedFilters, bool, error) {
	req := oai.ChatCompletionRequest{
		Model:       h.config.Model,
		Temperature: h.config.Temperature,
		Messages: []oai.ChatCompletionMessage{
			{Role: oai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: oai.ChatMessageRoleUser, Content: buildPrompt(query)},
		},
		ResponseFormat: &oai.ChatCompletionResponseFormat{
			Type: oai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var lastErr error
	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return models.ExtractedFilters{}, false, ErrLLMTimeout
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
		start := time.Now()
		resp, err := h.client.CreateChatCompletion(callCtx, req)
		metrics.CollaboratorLatency.WithLabelValues("llm").Observe(time.Since(start).Seconds())
		timedOut := callCtx.Err() == context.DeadlineExceeded
		cancel()

		if err == nil {
			if len(resp.Choices) == 0 {
				metrics.CollaboratorCalls.WithLabelValues("llm", "invalid").Inc()
				return models.ExtractedFilters{}, false, fmt.Errorf("%w: no choices returned", ErrLLMResponseInvalid)
			}
			content := resp.Choices[0].Message.Content
			h.logger.Debug("llm raw response", map[string]interface{}{"content": content})

			f, supplied, perr := parseCompletion(content)
			if perr != nil {
				metrics.CollaboratorCalls.WithLabelValues("llm", "invalid").Inc()
				return models.ExtractedFilters{}, false, perr
			}
			metrics.CollaboratorCalls.WithLabelValues("llm", "success").Inc()
			return f, supplied, nil
		}

		if timedOut || isTimeout(err) || ctx.Err() != nil {
			metrics.CollaboratorCalls.WithLabelValues("llm", "timeout").Inc()
			lastErr = ErrLLMTimeout
			if ctx.Err() != nil {
				return models.ExtractedFilters{}, false, ErrLLMTimeout
			}
			continue
		}

		metrics.CollaboratorCalls.WithLabelValues("llm", "error").Inc()
		lastErr = fmt.Errorf("%w: %v", ErrFilterExtractionFailed, err)
		if !retryable(err) {
			break
		}
	}

	return models.ExtractedFilters{}, false, lastErr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// retryable treats 429 and 5xx as transient; other API errors are final.
func retryable(err error) bool {
	var apiErr *oai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *oai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}

func (h *Handler) toStandardError(err error) *apperrors.StandardError {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, ErrLLMTimeout.Error()):
		return apperrors.NewLLMTimeoutError(h.config.Timeout)
	case strings.HasPrefix(msg, ErrLLMResponseInvalid.Error()):
		return apperrors.NewLLMResponseInvalidError(msg)
	default:
		return apperrors.NewFilterExtractionFailedError(err)
	}
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

	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	apperrors.NewJobErrorHandler(h.logger).HandleJobError(context.Background(), client, job, err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

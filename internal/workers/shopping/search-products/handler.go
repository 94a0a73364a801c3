package searchproducts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	apperrors "shopwhiz/internal/common/errors"
	commonhttp "shopwhiz/internal/common/http"
	"shopwhiz/internal/common/metrics"
	"shopwhiz/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "search-products"

	searchPath   = "/search"
	searchDepth  = "basic"
	querySuffix  = "buy online price"
	defaultCap   = 8
	defaultFetch = 10
)

var (
	ErrWebSearchFailed  = errors.New("WEB_SEARCH_FAILED")
	ErrWebSearchTimeout = errors.New("WEB_SEARCH_TIMEOUT")
)

var defaultPlatforms = []string{"amazon", "flipkart", "myntra", "ajio"}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config *Config
	client *commonhttp.Client
	logger Logger
	now    func() time.Time
}

func NewHandler(config *Config, log Logger) *Handler {
	return &Handler{
		config: config,
		client: commonhttp.NewClient(config.Timeout),
		logger: log.With(map[string]interface{}{
			"taskType": TaskType,
		}),
		now: time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input BatchInput
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Errorf("parse input: %w", err))
		return
	}
	if strings.TrimSpace(input.Query) == "" {
		h.failJob(client, job, errors.New("query is required"))
		return
	}

	// Per-platform calls carry their own timeout; this bounds the whole batch.
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout+2*time.Second)
	defer cancel()

	h.completeJob(client, job, h.SearchPlatforms(ctx, &input))
}

// Execute runs a single-platform search. Collaborator failures are reported
// through Output.Success; the error is reserved for unusable input.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || strings.TrimSpace(input.Query) == "" {
		return nil, errors.New("query is required")
	}
	return h.Search(ctx, *input), nil
}

// Search queries one platform. It never fails: a collaborator error yields
// an Output with Success=false and no results.
func (h *Handler) Search(ctx context.Context, input Input) *Output {
	spec := lookupPlatform(input.Platform)
	query := strings.TrimSpace(input.Query)

	ctx, span := otel.Tracer(TaskType).Start(ctx, "searchPlatform")
	defer span.End()
	span.SetAttributes(attribute.String("platform", spec.platform.ID))

	output := &Output{
		Success:  true,
		Platform: spec.platform.ID,
		Query:    query,
		Results:  []models.Product{},
	}

	results, err := h.callSearch(ctx, buildQuery(query, spec, input.Category), spec)
	if err != nil {
		span.RecordError(err)
		h.logger.Warn("platform search failed", map[string]interface{}{
			"platform": spec.platform.ID,
			"error":    err.Error(),
		})
		output.Success = false
		output.Error = err.Error()
		output.ErrorCode = string(h.classify(spec.platform.ID, err).Code)
		metrics.ProductsReturned.WithLabelValues(spec.platform.ID).Observe(0)
		return output
	}

	output.Results = normalize(results, spec, query, h.now().UnixMilli(), h.outputCap())
	output.Total = len(output.Results)

	metrics.ProductsReturned.WithLabelValues(spec.platform.ID).Observe(float64(output.Total))
	span.SetAttributes(attribute.Int("results", output.Total))
	h.logger.Info("platform search completed", map[string]interface{}{
		"platform": spec.platform.ID,
		"fetched":  len(results),
		"results":  output.Total,
	})

	return output
}

// SearchPlatforms fans the query out to every requested platform. Slots keep
// request order and one platform's failure never touches another's slot.
func (h *Handler) SearchPlatforms(ctx context.Context, input *BatchInput) *BatchOutput {
	platforms := h.resolvePlatforms(input)
	searches := make([]Output, len(platforms))

	var wg sync.WaitGroup
	for i, platform := range platforms {
		wg.Add(1)
		go func(i int, platform string) {
			defer wg.Done()
			searches[i] = *h.Search(ctx, Input{
				Query:    input.Query,
				Platform: platform,
				Category: input.Category,
			})
		}(i, platform)
	}
	wg.Wait()

	batch := &BatchOutput{Searches: searches}
	for _, s := range searches {
		if !s.Success {
			batch.ErrorCount++
		}
	}
	return batch
}

// resolvePlatforms accepts repeated or comma-joined ids and drops duplicates.
func (h *Handler) resolvePlatforms(input *BatchInput) []string {
	raw := append([]string(nil), input.Platforms...)
	if len(raw) == 0 && input.Platform != "" {
		raw = []string{input.Platform}
	}

	seen := make(map[string]bool)
	var platforms []string
	for _, entry := range raw {
		for _, id := range strings.Split(entry, ",") {
			id = strings.ToLower(strings.TrimSpace(id))
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			platforms = append(platforms, id)
		}
	}

	if len(platforms) == 0 {
		if len(h.config.DefaultPlatforms) > 0 {
			return append([]string(nil), h.config.DefaultPlatforms...)
		}
		return append([]string(nil), defaultPlatforms...)
	}
	return platforms
}

func buildQuery(query string, spec platformSpec, category string) string {
	parts := []string{query}
	if spec.platform.ID != genericPlatformID {
		parts = append(parts, spec.platform.Name)
	}
	parts = append(parts, querySuffix)
	if c := strings.TrimSpace(category); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, " ")
}

func (h *Handler) callSearch(ctx context.Context, query string, spec platformSpec) ([]searchResult, error) {
	req := searchRequest{
		APIKey:            h.config.APIKey,
		Query:             query,
		SearchDepth:       searchDepth,
		IncludeImages:     true,
		IncludeRawContent: true,
		MaxResults:        h.fetchLimit(),
		IncludeDomains:    spec.domains,
		ExcludeDomains:    spec.exclude,
	}

	callCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	var resp searchResponse
	start := time.Now()
	err := h.client.PostJSON(callCtx, strings.TrimRight(h.config.BaseURL, "/")+searchPath, map[string]string{
		"Authorization": "Bearer " + h.config.APIKey,
	}, req, &resp)
	metrics.CollaboratorLatency.WithLabelValues("web_search").Observe(time.Since(start).Seconds())

	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded || isTimeout(err) {
			metrics.CollaboratorCalls.WithLabelValues("web_search", "timeout").Inc()
			return nil, fmt.Errorf("%w: %s after %s", ErrWebSearchTimeout, spec.platform.ID, h.config.Timeout)
		}
		metrics.CollaboratorCalls.WithLabelValues("web_search", "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrWebSearchFailed, err)
	}

	metrics.CollaboratorCalls.WithLabelValues("web_search", "success").Inc()
	return resp.Results, nil
}

func (h *Handler) outputCap() int {
	if h.config.OutputCap > 0 {
		return h.config.OutputCap
	}
	return defaultCap
}

// fetchLimit over-fetches so the post-filter still has enough to fill the cap.
func (h *Handler) fetchLimit() int {
	limit := h.config.MaxResults
	if limit <= 0 {
		limit = defaultFetch
	}
	if limit <= h.outputCap() {
		limit = h.outputCap() + 2
	}
	return limit
}

// classify maps a platform failure onto the shared error codes.
func (h *Handler) classify(platform string, err error) *apperrors.StandardError {
	if errors.Is(err, ErrWebSearchTimeout) {
		return apperrors.NewWebSearchTimeoutError(platform, h.config.Timeout)
	}
	return apperrors.NewWebSearchFailedError(platform, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *BatchOutput) {
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
	apperrors.NewJobErrorHandler(h.logger).HandleJobError(context.Background(), client, job, apperrors.NewInvalidInputError(err.Error()))
}

package rankresults

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "shopwhiz/internal/common/errors"
	"shopwhiz/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "rank-results"
)

const (
	SortRelevance = "relevance"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortRating    = "rating"
	SortPlatform  = "platform"
)

var (
	ErrNilInput = errors.New("input cannot be nil")
)

// sortAliases maps the question-table labels onto sort ids.
var sortAliases = map[string]string{
	"best match":    SortRelevance,
	"lowest price":  SortPriceLow,
	"highest price": SortPriceHigh,
	"top rated":     SortRating,
	"price_low":     SortPriceLow,
	"price_high":    SortPriceHigh,
}

var priceNumber = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config *Config
	logger Logger
}

func NewHandler(config *Config, log Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.With(map[string]interface{}{"taskType": TaskType}),
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

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, apperrors.AsStandard(err))
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrNilInput
	}

	start := time.Now()

	category := strings.ToLower(strings.TrimSpace(input.Category))
	if category == "" {
		category = DetectCategory(input.Query)
	}

	output := &Output{
		Query:      input.Query,
		Category:   category,
		Sort:       NormalizeSort(input.Sort),
		Products:   []models.Product{},
		PriceRange: priceRange(category, input.MinPrice, input.MaxPrice),
	}

	seenURLs := make(map[string]bool)
	for _, search := range input.Searches {
		if !search.Success {
			output.ErrorCount++
			output.Errors = append(output.Errors, PlatformError{Platform: search.Platform, Error: search.Error})
			continue
		}

		for _, p := range search.Results {
			// The same listing can surface through more than one platform query.
			if p.URL != "" && seenURLs[p.URL] {
				continue
			}
			if !withinBounds(p.Price, input.MinPrice, input.MaxPrice) {
				continue
			}
			if p.Platform.ID == "" {
				p.Platform.ID = search.Platform
			}
			seenURLs[p.URL] = true
			output.Products = append(output.Products, p)
		}
	}

	sortProducts(output.Products, output.Sort)

	if h.config.MaxItems > 0 && len(output.Products) > h.config.MaxItems {
		output.Products = output.Products[:h.config.MaxItems]
	}
	if input.GroupByPlatform {
		output.Groups = groupByPlatform(output.Products)
	}
	output.Total = len(output.Products)

	switch {
	case output.Total > 0:
		output.Status = StatusResults
	case len(input.Searches) > 0 && output.ErrorCount == len(input.Searches):
		output.Status = StatusError
	default:
		output.Status = StatusNoResults
	}

	h.logger.Info("ranking completed", map[string]interface{}{
		"platforms":   len(input.Searches),
		"errorCount":  output.ErrorCount,
		"outputCount": output.Total,
		"sort":        output.Sort,
		"status":      output.Status,
		"durationMs":  time.Since(start).Milliseconds(),
	})
	if output.ErrorCount > 0 {
		h.logger.Warn("some platform searches failed", map[string]interface{}{
			"errors": output.Errors,
		})
	}

	return output, nil
}

// NormalizeSort accepts sort ids and their display labels; anything else is relevance.
func NormalizeSort(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case SortRelevance, SortPriceLow, SortPriceHigh, SortRating, SortPlatform:
		return s
	}
	if id, ok := sortAliases[s]; ok {
		return id
	}
	return SortRelevance
}

// ParsePrice reads the first number from a normalized price string. The
// unavailable sentinel and unparsable strings report false.
func ParsePrice(price string) (float64, bool) {
	if price == "" || price == models.PriceNotAvailable {
		return 0, false
	}
	m := priceNumber.FindString(price)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// withinBounds keeps products without a price; they cannot be ruled out.
func withinBounds(price string, min, max *float64) bool {
	v, ok := ParsePrice(price)
	if !ok {
		return true
	}
	if min != nil && v < *min {
		return false
	}
	if max != nil && v > *max {
		return false
	}
	return true
}

func priceRange(category string, min, max *float64) PriceRange {
	r := DefaultPriceRange(category)
	if min != nil {
		r.Min = *min
	}
	if max != nil {
		r.Max = *max
	}
	return r
}

// sortProducts is stable so relevance keeps upstream order and every other
// option breaks ties by it. Unpriced products sort last for price orders.
func sortProducts(products []models.Product, by string) {
	switch by {
	case SortPriceLow, SortPriceHigh:
		sort.SliceStable(products, func(i, j int) bool {
			pi, iok := ParsePrice(products[i].Price)
			pj, jok := ParsePrice(products[j].Price)
			if iok != jok {
				return iok
			}
			if !iok {
				return false
			}
			if by == SortPriceLow {
				return pi < pj
			}
			return pi > pj
		})
	case SortRating:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Rating > products[j].Rating
		})
	case SortPlatform:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Platform.Name < products[j].Platform.Name
		})
	}
}

func groupByPlatform(products []models.Product) []PlatformGroup {
	index := make(map[string]int)
	var groups []PlatformGroup
	for _, p := range products {
		i, ok := index[p.Platform.ID]
		if !ok {
			i = len(groups)
			index[p.Platform.ID] = i
			groups = append(groups, PlatformGroup{Platform: p.Platform})
		}
		groups[i].Products = append(groups[i].Products, p)
	}
	return groups
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

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err *apperrors.StandardError) {
	apperrors.NewJobErrorHandler(h.logger).HandleJobError(context.Background(), client, job, err)
}

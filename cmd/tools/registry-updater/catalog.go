package main

import (
	"fmt"

	"shopwhiz/internal/common/config"
	apperrors "shopwhiz/internal/common/errors"
	"shopwhiz/internal/common/validation"
	extractfilters "shopwhiz/internal/workers/shopping/extract-filters"
	generatequestions "shopwhiz/internal/workers/shopping/generate-questions"
	rankresults "shopwhiz/internal/workers/shopping/rank-results"
	searchproducts "shopwhiz/internal/workers/shopping/search-products"
	"shopwhiz/pkg/registry"
)

const activityCategory = "shopping"

type collaboration struct {
	services []string
	fallback string
}

// catalog describes every task type this service implements, with schemas
// reflected from the worker input and output types.
func catalog(cfg *config.Config, version string) []registry.Activity {
	entry := func(taskType, name, description string, collab collaboration, input, output map[string]interface{}, codes ...apperrors.ErrorCode) registry.Activity {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		errorCodes := make([]string, len(codes))
		for i, c := range codes {
			errorCodes[i] = string(c)
		}
		return registry.Activity{
			ID:                   taskType,
			DisplayName:          name,
			Description:          description,
			Category:             activityCategory,
			Version:              version,
			TaskType:             taskType,
			ImplementationStatus: registry.StatusCompleted,
			InputSchema:          input,
			OutputSchema:         output,
			ErrorCodes:           errorCodes,
			Collaborators:        collab.services,
			Fallback:             collab.fallback,
			Timeout:              fmt.Sprintf("%dms", wcfg.Timeout),
			Retries:              wcfg.MaxRetries,
			Workflows:            []string{"shopping-conversation"},
			Tags:                 []string{activityCategory},
		}
	}

	return []registry.Activity{
		entry(extractfilters.TaskType, "Extract Filters",
			"Turns a free-text shopping query into structured filters with an LLM, merged with a keyword heuristic.",
			collaboration{[]string{"llm"}, "keyword heuristic filters"},
			validation.GenerateSchema[extractfilters.Input](), validation.GenerateSchema[extractfilters.Output](),
			apperrors.ErrCodeInvalidInput, apperrors.ErrCodeFilterExtractionFailed, apperrors.ErrCodeLLMTimeout, apperrors.ErrCodeLLMResponseInvalid),
		entry(generatequestions.TaskType, "Generate Questions",
			"Selects the prioritized follow-up questions for the facets the filters leave open.",
			collaboration{fallback: "general category question set"},
			validation.GenerateSchema[generatequestions.Input](), validation.GenerateSchema[generatequestions.Output](),
			apperrors.ErrCodeInvalidInput, apperrors.ErrCodeQuestionGenerationFailed),
		entry(searchproducts.TaskType, "Search Products",
			"Searches each requested store through the web search API and normalizes the hits into products.",
			collaboration{[]string{"web_search"}, "empty result for the failed store"},
			validation.GenerateSchema[searchproducts.BatchInput](), validation.GenerateSchema[searchproducts.BatchOutput](),
			apperrors.ErrCodeInvalidInput, apperrors.ErrCodeWebSearchFailed, apperrors.ErrCodeWebSearchTimeout),
		entry(rankresults.TaskType, "Rank Results",
			"Merges per-store results, applies price bounds and sorts or groups the products.",
			collaboration{},
			validation.GenerateSchema[rankresults.Input](), validation.GenerateSchema[rankresults.Output](),
			apperrors.ErrCodeInvalidInput, apperrors.ErrCodeInternal),
	}
}

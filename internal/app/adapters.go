package app

import (
	"shopwhiz/internal/common/logger"
	extractfilters "shopwhiz/internal/workers/shopping/extract-filters"
	generatequestions "shopwhiz/internal/workers/shopping/generate-questions"
	rankresults "shopwhiz/internal/workers/shopping/rank-results"
	searchproducts "shopwhiz/internal/workers/shopping/search-products"
)

type extractFiltersLoggerAdapter struct {
	logger.Logger
}

func (a *extractFiltersLoggerAdapter) With(fields map[string]interface{}) extractfilters.Logger {
	return &extractFiltersLoggerAdapter{a.Logger.With(fields)}
}

type generateQuestionsLoggerAdapter struct {
	logger.Logger
}

func (a *generateQuestionsLoggerAdapter) With(fields map[string]interface{}) generatequestions.Logger {
	return &generateQuestionsLoggerAdapter{a.Logger.With(fields)}
}

type searchProductsLoggerAdapter struct {
	logger.Logger
}

func (a *searchProductsLoggerAdapter) With(fields map[string]interface{}) searchproducts.Logger {
	return &searchProductsLoggerAdapter{a.Logger.With(fields)}
}

type rankResultsLoggerAdapter struct {
	logger.Logger
}

func (a *rankResultsLoggerAdapter) With(fields map[string]interface{}) rankresults.Logger {
	return &rankResultsLoggerAdapter{a.Logger.With(fields)}
}

// Package app assembles the pipeline stages, the conversation sequencer and
// the HTTP surface from one loaded configuration.
package app

import (
	"context"
	"fmt"
	"net/http"

	"shopwhiz/internal/common/camunda"
	"shopwhiz/internal/common/config"
	"shopwhiz/internal/common/database"
	"shopwhiz/internal/common/logger"
	"shopwhiz/internal/conversation"
	"shopwhiz/internal/server"
	extractfilters "shopwhiz/internal/workers/shopping/extract-filters"
	generatequestions "shopwhiz/internal/workers/shopping/generate-questions"
	rankresults "shopwhiz/internal/workers/shopping/rank-results"
	searchproducts "shopwhiz/internal/workers/shopping/search-products"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Options carries the connections built by the caller.
type Options struct {
	// Redis backs the conversation store when conversation.store is redis.
	Redis *database.RedisClient
	// Ready is served on /ready; nil means always ready.
	Ready func(ctx context.Context) error
}

type App struct {
	Extractor     *extractfilters.Handler
	Generator     *generatequestions.Handler
	Searcher      *searchproducts.Handler
	Ranker        *rankresults.Handler
	Conversations *conversation.Service
	Server        *server.Server

	config *config.Config
	logger logger.Logger
}

func New(cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	extractor := extractfilters.NewHandler(extractfilters.LoadConfig(cfg), &extractFiltersLoggerAdapter{log})

	generator, err := generatequestions.NewHandler(generatequestions.LoadConfig(cfg), &generateQuestionsLoggerAdapter{log})
	if err != nil {
		return nil, fmt.Errorf("question generator: %w", err)
	}

	searcher := searchproducts.NewHandler(searchproducts.LoadConfig(cfg), &searchProductsLoggerAdapter{log})
	ranker := rankresults.NewHandler(rankresults.LoadConfig(cfg), &rankResultsLoggerAdapter{log})

	store, err := NewStore(cfg, opts.Redis)
	if err != nil {
		return nil, err
	}

	conversations := conversation.NewService(
		conversation.Config{ResultsPath: cfg.Server.ResultsPath},
		store, extractor, generator, log,
	)

	srv := server.New(
		server.Config{
			CORSOrigins:    cfg.Server.CORSOrigins,
			RequestTimeout: config.GetDuration(cfg.Server.RequestTimeout),
			Ready:          opts.Ready,
		},
		server.Deps{
			Extractor:     extractor,
			Generator:     generator,
			Searcher:      searcher,
			Ranker:        ranker,
			Conversations: conversations,
		},
		log,
	)

	log.Info("pipeline assembled", map[string]interface{}{
		"store":   storeKind(cfg),
		"model":   cfg.APIs.LLM.Model,
		"results": cfg.Server.ResultsPath,
	})

	return &App{
		Extractor:     extractor,
		Generator:     generator,
		Searcher:      searcher,
		Ranker:        ranker,
		Conversations: conversations,
		Server:        srv,
		config:        cfg,
		logger:        log,
	}, nil
}

// Handler is the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.Server.Handler()
}

// RegisterWorkers opens one job worker per enabled task type.
func (a *App) RegisterWorkers(ws *camunda.WorkerSet) {
	ws.Start(extractfilters.TaskType, config.GetWorkerConfig(a.config, extractfilters.TaskType), a.Extractor)
	ws.Start(generatequestions.TaskType, config.GetWorkerConfig(a.config, generatequestions.TaskType), a.Generator)
	ws.Start(searchproducts.TaskType, config.GetWorkerConfig(a.config, searchproducts.TaskType), a.Searcher)
	ws.Start(rankresults.TaskType, config.GetWorkerConfig(a.config, rankresults.TaskType), a.Ranker)

	a.logger.Info("workers registered", map[string]interface{}{"count": ws.Len()})
}

// NewStore picks the conversation store named by conversation.store.
func NewStore(cfg *config.Config, redis *database.RedisClient) (conversation.Store, error) {
	switch storeKind(cfg) {
	case StoreMemory:
		return conversation.NewMemoryStore(), nil
	case StoreRedis:
		if redis == nil {
			return nil, fmt.Errorf("conversation store %q needs a redis connection", StoreRedis)
		}
		return conversation.NewRedisStore(redis, config.GetDuration(cfg.Conversation.SessionTTL)), nil
	default:
		return nil, fmt.Errorf("unknown conversation store %q", cfg.Conversation.Store)
	}
}

func storeKind(cfg *config.Config) string {
	if cfg.Conversation.Store == "" {
		return StoreMemory
	}
	return cfg.Conversation.Store
}

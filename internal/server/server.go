// Package server exposes the shopping pipeline over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"shopwhiz/internal/common/logger"
	"shopwhiz/internal/conversation"
	"shopwhiz/internal/models"
	extractfilters "shopwhiz/internal/workers/shopping/extract-filters"
	generatequestions "shopwhiz/internal/workers/shopping/generate-questions"
	rankresults "shopwhiz/internal/workers/shopping/rank-results"
	searchproducts "shopwhiz/internal/workers/shopping/search-products"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type FilterExtractor interface {
	Execute(ctx context.Context, input *extractfilters.Input) (*extractfilters.Output, error)
}

type QuestionGenerator interface {
	Execute(ctx context.Context, input *generatequestions.Input) (*generatequestions.Output, error)
}

type ProductSearcher interface {
	Search(ctx context.Context, input searchproducts.Input) *searchproducts.Output
	SearchPlatforms(ctx context.Context, input *searchproducts.BatchInput) *searchproducts.BatchOutput
}

type ResultRanker interface {
	Execute(ctx context.Context, input *rankresults.Input) (*rankresults.Output, error)
}

type Conversations interface {
	Create(ctx context.Context) (*models.ConversationState, error)
	Start(ctx context.Context, id, query string) (*models.ConversationState, error)
	Get(ctx context.Context, id string) (*models.ConversationState, error)
	Answer(ctx context.Context, id string, input conversation.AnswerInput) (*conversation.AnswerResult, error)
	Skip(ctx context.Context, id string, step *int) (*conversation.AnswerResult, error)
	Reset(ctx context.Context, id string) (*models.ConversationState, error)
}

// Deps are the pipeline stages the routes call into.
type Deps struct {
	Extractor     FilterExtractor
	Generator     QuestionGenerator
	Searcher      ProductSearcher
	Ranker        ResultRanker
	Conversations Conversations
}

type Config struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	// Ready reports dependency health for /ready; nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	router chi.Router
	deps   Deps
	config Config
	logger logger.Logger
}

func New(cfg Config, deps Deps, log logger.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		config: cfg,
		logger: log.With(map[string]interface{}{"component": "http"}),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(timeout))

	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ready", s.handleReady)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/filters/extract", s.handleExtract)
		r.Post("/questions/generate", s.handleGenerate)
		r.Post("/search", s.handleSearch)
		r.Post("/search/aggregate", s.handleAggregate)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", s.handleStartConversation)
			r.Get("/{id}", s.handleGetConversation)
			r.Delete("/{id}", s.handleResetConversation)
			r.Post("/{id}/messages", s.handleRestartConversation)
			r.Post("/{id}/answers", s.handleAnswer)
			r.Post("/{id}/skip", s.handleSkip)
			r.Get("/{id}/results", s.handleResults)
		})
	})
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

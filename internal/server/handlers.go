package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "shopwhiz/internal/common/errors"
	"shopwhiz/internal/conversation"
	extractfilters "shopwhiz/internal/workers/shopping/extract-filters"
	generatequestions "shopwhiz/internal/workers/shopping/generate-questions"
	rankresults "shopwhiz/internal/workers/shopping/rank-results"
	searchproducts "shopwhiz/internal/workers/shopping/search-products"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type stepRequest struct {
	Step *int `json:"step,omitempty"`
}

type aggregateRequest struct {
	Query     string   `json:"query"`
	Platforms []string `json:"platforms"`
	Category  string   `json:"category,omitempty"`
	MinPrice  *float64 `json:"minPrice,omitempty"`
	MaxPrice  *float64 `json:"maxPrice,omitempty"`
	Sort      string   `json:"sort,omitempty"`
	Group     bool     `json:"groupByPlatform,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.config.Ready != nil {
		if err := s.config.Ready(r.Context()); err != nil {
			s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractfilters.Input
	if !s.decode(w, r, &req) {
		return
	}
	output, err := s.deps.Extractor.Execute(r.Context(), &req)
	if err != nil {
		s.respondError(w, apperrors.NewInvalidInputError(err.Error()))
		return
	}
	s.respondJSON(w, http.StatusOK, output)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generatequestions.Input
	if !s.decode(w, r, &req) {
		return
	}
	output, err := s.deps.Generator.Execute(r.Context(), &req)
	if err != nil {
		s.respondError(w, apperrors.NewQuestionGenerationFailedError(err))
		return
	}
	s.respondJSON(w, http.StatusOK, output)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchproducts.Input
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.respondError(w, apperrors.NewInvalidInputError("query is required"))
		return
	}
	// A failed platform search is still a 200 with success=false.
	s.respondJSON(w, http.StatusOK, s.deps.Searcher.Search(r.Context(), req))
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	var req aggregateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.respondError(w, apperrors.NewInvalidInputError("query is required"))
		return
	}

	output, err := s.aggregate(r, &searchproducts.BatchInput{
		Query:     req.Query,
		Platforms: req.Platforms,
		Category:  req.Category,
	}, &rankresults.Input{
		Query:           req.Query,
		Category:        req.Category,
		MinPrice:        req.MinPrice,
		MaxPrice:        req.MaxPrice,
		Sort:            req.Sort,
		GroupByPlatform: req.Group,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, output)
}

func (s *Server) handleStartConversation(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !s.decode(w, r, &req) {
		return
	}
	state, err := s.deps.Conversations.Start(r.Context(), "", req.Query)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, state)
}

// handleRestartConversation runs a fresh extraction pass on an existing id.
func (s *Server) handleRestartConversation(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !s.decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.deps.Conversations.Get(r.Context(), id); err != nil {
		s.respondError(w, err)
		return
	}
	state, err := s.deps.Conversations.Start(r.Context(), id, req.Query)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	state, err := s.deps.Conversations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleResetConversation(w http.ResponseWriter, r *http.Request) {
	state, err := s.deps.Conversations.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req conversation.AnswerInput
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.deps.Conversations.Answer(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if !s.decodeOptional(w, r, &req) {
		return
	}
	result, err := s.deps.Conversations.Skip(r.Context(), chi.URLParam(r, "id"), req.Step)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	state, err := s.deps.Conversations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	if !state.IsComplete {
		s.respondError(w, apperrors.NewInvalidInputError("conversation has not finished its questions"))
		return
	}

	batch, rank := fromSearchParams(state.FinalSearchParams)
	if sort := r.URL.Query().Get("sort"); sort != "" {
		rank.Sort = sort
	}
	if r.URL.Query().Get("group") == "platform" {
		rank.GroupByPlatform = true
	}

	output, err := s.aggregate(r, batch, rank)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, output)
}

func (s *Server) aggregate(r *http.Request, batch *searchproducts.BatchInput, rank *rankresults.Input) (*rankresults.Output, error) {
	searches := s.deps.Searcher.SearchPlatforms(r.Context(), batch)

	rank.Searches = make([]rankresults.PlatformResults, len(searches.Searches))
	for i, out := range searches.Searches {
		rank.Searches[i] = rankresults.PlatformResults{
			Success:  out.Success,
			Platform: out.Platform,
			Results:  out.Results,
			Error:    out.Error,
		}
	}
	return s.deps.Ranker.Execute(r.Context(), rank)
}

// decode rejects empty and malformed bodies.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		s.respondError(w, apperrors.NewInvalidInputError("invalid request body: "+err.Error()))
		return false
	}
	return true
}

// decodeOptional accepts an empty body.
func (s *Server) decodeOptional(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, apperrors.NewInvalidInputError("invalid request body: "+err.Error()))
		return false
	}
	return true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	stdErr := apperrors.AsStandard(err)
	status := apperrors.HTTPStatus(stdErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request error", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"error":     stdErr.Error(),
		})
	}
	s.respondJSON(w, status, errorResponse{
		Error:   stdErr.Message,
		Code:    string(stdErr.Code),
		Details: stdErr.Details,
	})
}

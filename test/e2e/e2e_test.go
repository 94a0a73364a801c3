// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopwhiz/internal/app"
	"shopwhiz/internal/common/config"
	"shopwhiz/internal/common/database"
	"shopwhiz/internal/common/logger"
	"shopwhiz/internal/conversation"
	"shopwhiz/internal/models"
	rankresults "shopwhiz/internal/workers/shopping/rank-results"
)

// ==========================
// Collaborator Fakes
// ==========================

func chatResponse(content string) []byte {
	data, _ := json.Marshal(map[string]interface{}{
		"id":      "chatcmpl-e2e",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "llama3-70b-8192",
		"choices": []interface{}{
			map[string]interface{}{
				"index":         0,
				"message":       map[string]interface{}{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	})
	return data
}

func llmServer(t *testing.T, status int, content string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"upstream failure","type":"server_error"}}`))
			return
		}
		w.Write(chatResponse(content))
	}))
	t.Cleanup(server.Close)
	return server
}

// searchServer answers by the first allow-listed domain of each request.
func searchServer(t *testing.T, byDomain map[string][]map[string]interface{}, calls *int32) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/search", r.URL.Path)

		var req struct {
			Query          string   `json:"query"`
			IncludeDomains []string `json:"include_domains"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var results []map[string]interface{}
		if len(req.IncludeDomains) > 0 {
			results = byDomain[req.IncludeDomains[0]]
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"query": req.Query, "results": results})
	}))
	t.Cleanup(server.Close)
	return server
}

func hit(title, url, content string) map[string]interface{} {
	return map[string]interface{}{"title": title, "url": url, "content": content, "score": 0.8}
}

// ==========================
// Test Environment
// ==========================

type env struct {
	server      *httptest.Server
	redis       *miniredis.Miniredis
	cfg         *config.Config
	searchCalls int32
}

func newEnv(t *testing.T, llmStatus int, llmContent string) *env {
	t.Helper()

	cfg, err := config.LoadFromFile("../../configs/config.yaml")
	require.NoError(t, err)

	e := &env{cfg: cfg, redis: miniredis.RunT(t)}

	cfg.APIs.LLM.BaseURL = llmServer(t, llmStatus, llmContent).URL
	cfg.APIs.LLM.APIKey = "test-key"
	cfg.APIs.LLM.MaxRetries = 0
	cfg.APIs.WebSearch.APIKey = "tvly-test"
	cfg.APIs.WebSearch.BaseURL = searchServer(t, map[string][]map[string]interface{}{
		"amazon.in": {
			hit("Titan Neo Analog Watch for Men - Buy Online at Amazon.in", "https://www.amazon.in/dp/titan-neo", "Titan Neo analog watch. Deal price ₹2,499 with free delivery. Rated 4.4 out of 5"),
			hit("Titan Edge Ceramic Watch", "https://www.amazon.in/dp/titan-edge", "Premium slim watch, offer price ₹4,999"),
		},
		"flipkart.com": {
			hit("Titan Karishma Analog Watch | Flipkart", "https://www.flipkart.com/titan-karishma/p/itm1", "Buy Titan Karishma for ₹1,999 only on Flipkart"),
		},
	}, &e.searchCalls).URL
	cfg.Conversation.Store = app.StoreRedis

	rdb := redis.NewClient(&redis.Options{Addr: e.redis.Addr()})
	t.Cleanup(func() { rdb.Close() })

	application, err := app.New(cfg, logger.NewTestLogger(t), app.Options{
		Redis: database.NewRedisFromClient(rdb, cfg.Database.Redis.KeyPrefix),
	})
	require.NoError(t, err)

	e.server = httptest.NewServer(application.Handler())
	t.Cleanup(e.server.Close)
	return e
}

func (e *env) call(t *testing.T, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// ==========================
// End-to-End Scenarios
// ==========================

func TestShoppingConversation_EndToEnd(t *testing.T) {
	e := newEnv(t, http.StatusOK, `{"category":"watches","brand":"Titan","priceMax":3000,"confidence":0.8}`)

	var state models.ConversationState
	require.Equal(t, http.StatusCreated, e.call(t, http.MethodPost, "/api/v1/conversations", map[string]string{"query": "Titan watch under 3000"}, &state))

	assert.Equal(t, models.StatusQuestions, state.Status)
	require.Len(t, state.FollowUpQuestions, 3)
	assert.Equal(t, []string{"displayType", "platforms", "gender"}, []string{
		state.FollowUpQuestions[0].Facet, state.FollowUpQuestions[1].Facet, state.FollowUpQuestions[2].Facet,
	})
	require.GreaterOrEqual(t, len(state.Messages), 3)
	assert.Equal(t, models.RoleUser, state.Messages[0].Role)
	assert.Contains(t, state.Messages[1].Text, "Perfect! I found Titan watches")
	assert.Contains(t, state.Messages[1].Text, "3 quick questions")
	assert.True(t, e.redis.Exists(e.cfg.Database.Redis.KeyPrefix+state.ID), "state lives in redis")

	base := "/api/v1/conversations/" + state.ID

	var result conversation.AnswerResult
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, base+"/answers", map[string]interface{}{"facet": "displayType", "value": "analog", "step": 0}, &result))
	assert.True(t, result.Accepted)
	assert.Equal(t, "Analog", result.State.AnsweredQuestions["displayType"])

	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, base+"/answers", map[string]interface{}{"facet": "platforms", "value": []string{"Amazon", "Flipkart"}, "step": 1}, &result))
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, base+"/skip", map[string]int{"step": 2}, &result))

	require.True(t, result.State.IsComplete)
	assert.Equal(t, models.StatusComplete, result.State.Status)
	assert.True(t, strings.HasPrefix(result.State.SearchURL, "/results?"))
	assert.Contains(t, result.State.SearchURL, "platforms=Amazon&platforms=Flipkart")
	assert.NotContains(t, result.State.FinalSearchParams, "gender")

	var ranked rankresults.Output
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, base+"/results?sort=price-low", nil, &ranked))

	assert.Equal(t, int32(2), atomic.LoadInt32(&e.searchCalls))
	assert.Equal(t, rankresults.StatusResults, ranked.Status)
	assert.Equal(t, 0, ranked.ErrorCount)
	require.Len(t, ranked.Products, 2, "the ₹4,999 listing is above the budget")
	assert.Equal(t, "₹1,999", ranked.Products[0].Price)
	assert.Equal(t, "flipkart", ranked.Products[0].Platform.ID)
	assert.Equal(t, "₹2,499", ranked.Products[1].Price)
	assert.Equal(t, "Titan Neo Analog Watch for Men", ranked.Products[1].Title)
	assert.Equal(t, 4.4, ranked.Products[1].Rating)

	var errResp struct {
		Code string `json:"code"`
	}
	assert.Equal(t, http.StatusConflict, e.call(t, http.MethodPost, base+"/skip", nil, &errResp))
	assert.Equal(t, "CONVERSATION_COMPLETE", errResp.Code)
}

func TestShoppingConversation_LLMDown(t *testing.T) {
	e := newEnv(t, http.StatusInternalServerError, "")

	var state models.ConversationState
	require.Equal(t, http.StatusCreated, e.call(t, http.MethodPost, "/api/v1/conversations", map[string]string{"query": "titan watch under 3000"}, &state))

	assert.Equal(t, models.StatusQuestions, state.Status)
	require.NotNil(t, state.ExtractedFilters.Brand, "the keyword heuristic still finds the brand")
	assert.Equal(t, "Titan", *state.ExtractedFilters.Brand)
	assert.NotEmpty(t, state.FollowUpQuestions)
}

func TestAggregateSearch_EndToEnd(t *testing.T) {
	e := newEnv(t, http.StatusOK, `{}`)

	var ranked rankresults.Output
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/v1/search/aggregate", map[string]interface{}{
		"query":           "titan watch",
		"platforms":       []string{"amazon", "flipkart", "myntra"},
		"groupByPlatform": true,
	}, &ranked))

	assert.Equal(t, rankresults.StatusResults, ranked.Status)
	assert.Equal(t, 3, ranked.Total)
	assert.Len(t, ranked.Groups, 2, "myntra returned nothing")
}

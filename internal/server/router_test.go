package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/splashxmoon/domufi-app/internal/api/handlers"
	"github.com/splashxmoon/domufi-app/internal/domain"
	"github.com/splashxmoon/domufi-app/internal/embedding"
	"github.com/splashxmoon/domufi-app/internal/service"
	"github.com/splashxmoon/domufi-app/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	stateDir := t.TempDir()

	provider := embedding.NewProvider(nil, 64)
	store := vectorstore.NewLinearStore(provider, "")
	analyzer := service.NewSemanticAnalyzer(provider, store)
	understanding := service.NewUnderstandingEngine(provider)
	memory := service.NewConversationMemory(stateDir)
	collector := service.NewCuratedCollector()
	engine := service.NewEngine(analyzer, service.NewResponder(nil), understanding, collector, memory, nil, store)
	engine.SetReady(true)

	learner := service.NewBackgroundLearner(store, provider, understanding, collector, nil, stateDir)
	tester := service.NewSelfTester(service.NewEngineAnswerer(engine), store, learner, stateDir)
	tuner := service.NewFeedbackTuner(store, stateDir)

	return NewRouter(RouterConfig{
		ChatHandler:     handlers.NewChatHandler(engine),
		FeedbackHandler: handlers.NewFeedbackHandler(tuner),
		LearningHandler: handlers.NewLearningHandler(tester, learner),
		StatusHandler:   handlers.NewStatusHandler(engine, store, tuner, false, false),
	})
}

func TestRouter_Ping(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pong")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestRouter_Chat(t *testing.T) {
	router := newTestRouter(t)

	body := []byte(`{"message":"Hello!","user_id":"u1","session_id":"s1"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data domain.ChatReply `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, domain.IntentGreeting, envelope.Data.Intent)
	assert.NotEmpty(t, envelope.Data.Answer)
}

func TestRouter_Chat_EmptyMessage(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte(`{"message":""}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Chat_BodyTooLarge(t *testing.T) {
	router := newTestRouter(t)

	big := `{"message":"` + strings.Repeat("a", 2*1024*1024) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(big))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRouter_Feedback(t *testing.T) {
	router := newTestRouter(t)

	body := []byte(`{
		"query": "How is the NYC market?",
		"response": "The NYC market is strong.",
		"intent": "market_analysis",
		"feedback_type": "positive",
		"rating": 5
	}`)
	req := httptest.NewRequest(http.MethodPost, "/feedback", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "queued")
}

func TestRouter_FeedbackInsights(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/feedback/insights?intent=market_analysis", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data service.FeedbackInsights `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 0, envelope.Data.TotalPatterns)
}

func TestRouter_SelfLearningRoutes(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/self-learning/status", "/self-learning/progress"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouter_TrainingLearn(t *testing.T) {
	router := newTestRouter(t)

	body := []byte(`{"topic":"fractional ownership basics","category":"investor_education"}`)
	req := httptest.NewRequest(http.MethodPost, "/training/learn", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			ItemsStored int `json:"items_stored"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Greater(t, envelope.Data.ItemsStored, 0)
}

func TestRouter_TrainingTopics(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/training/topics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

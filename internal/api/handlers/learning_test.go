package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/splashxmoon/domufi-app/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSelfTestService is a mock implementation of SelfTestService
type MockSelfTestService struct {
	mock.Mock
}

func (m *MockSelfTestService) Stats() service.SelfTestStats {
	args := m.Called()
	return args.Get(0).(service.SelfTestStats)
}

func (m *MockSelfTestService) Progress() (int, int, string, []service.TestOutcome) {
	args := m.Called()
	return args.Int(0), args.Int(1), args.String(2), args.Get(3).([]service.TestOutcome)
}

// MockLearnerService is a mock implementation of LearnerService
type MockLearnerService struct {
	mock.Mock
}

func (m *MockLearnerService) LearnTopic(ctx context.Context, query, category string, variation bool) (int, error) {
	args := m.Called(ctx, query, category, variation)
	return args.Int(0), args.Error(1)
}

func (m *MockLearnerService) Stats() service.LearnStats {
	args := m.Called()
	return args.Get(0).(service.LearnStats)
}

func (m *MockLearnerService) Topics() map[string][]string {
	args := m.Called()
	return args.Get(0).(map[string][]string)
}

func TestLearningHandler_SelfLearningStatus(t *testing.T) {
	tester := new(MockSelfTestService)
	tester.On("Stats").Return(service.SelfTestStats{TotalTests: 12, PassedTests: 9, FailedTests: 3})
	learner := new(MockLearnerService)
	learner.On("Stats").Return(service.LearnStats{Cycles: 4, ItemsLearned: 40})
	handler := NewLearningHandler(tester, learner)

	req := httptest.NewRequest(http.MethodGet, "/self-learning/status", nil)
	rec := httptest.NewRecorder()
	handler.SelfLearningStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			SelfTest service.SelfTestStats `json:"self_test"`
			Learner  service.LearnStats    `json:"learner"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 12, envelope.Data.SelfTest.TotalTests)
	assert.Equal(t, 4, envelope.Data.Learner.Cycles)
}

func TestLearningHandler_SelfLearningProgress(t *testing.T) {
	outcomes := []service.TestOutcome{
		{Question: "Tell me about the current NYC real estate market", Category: "market_data", Passed: true},
	}
	tester := new(MockSelfTestService)
	tester.On("Progress").Return(3, 10, "What is a REIT and how does it work?", outcomes)
	handler := NewLearningHandler(tester, new(MockLearnerService))

	req := httptest.NewRequest(http.MethodGet, "/self-learning/progress", nil)
	rec := httptest.NewRecorder()
	handler.SelfLearningProgress(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			Mastered      int                   `json:"mastered"`
			Total         int                   `json:"total"`
			CurrentFocus  string                `json:"current_focus"`
			QuestionState []service.TestOutcome `json:"question_state"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 3, envelope.Data.Mastered)
	assert.Equal(t, 10, envelope.Data.Total)
	assert.Contains(t, envelope.Data.CurrentFocus, "REIT")
	require.Len(t, envelope.Data.QuestionState, 1)
	assert.True(t, envelope.Data.QuestionState[0].Passed)
}

func TestLearningHandler_LearnTopic(t *testing.T) {
	learner := new(MockLearnerService)
	learner.On("LearnTopic", mock.Anything, "Austin rental yields", "market_data", false).Return(6, nil)
	handler := NewLearningHandler(new(MockSelfTestService), learner)

	body := []byte(`{"topic":"Austin rental yields","category":"market_data"}`)
	req := httptest.NewRequest(http.MethodPost, "/training/learn", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.LearnTopic(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			Topic       string `json:"topic"`
			Category    string `json:"category"`
			ItemsStored int    `json:"items_stored"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Austin rental yields", envelope.Data.Topic)
	assert.Equal(t, 6, envelope.Data.ItemsStored)
	learner.AssertExpectations(t)
}

func TestLearningHandler_LearnTopic_DefaultCategory(t *testing.T) {
	learner := new(MockLearnerService)
	learner.On("LearnTopic", mock.Anything, "closing costs", "manual", false).Return(2, nil)
	handler := NewLearningHandler(new(MockSelfTestService), learner)

	body := []byte(`{"topic":"closing costs"}`)
	req := httptest.NewRequest(http.MethodPost, "/training/learn", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.LearnTopic(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	learner.AssertExpectations(t)
}

func TestLearningHandler_LearnTopic_MissingTopic(t *testing.T) {
	learner := new(MockLearnerService)
	handler := NewLearningHandler(new(MockSelfTestService), learner)

	req := httptest.NewRequest(http.MethodPost, "/training/learn", bytes.NewReader([]byte(`{"category":"manual"}`)))
	rec := httptest.NewRecorder()
	handler.LearnTopic(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	learner.AssertNotCalled(t, "LearnTopic", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLearningHandler_Topics(t *testing.T) {
	learner := new(MockLearnerService)
	learner.On("Topics").Return(map[string][]string{
		"market_data": {"NYC real estate market trends"},
	})
	handler := NewLearningHandler(new(MockSelfTestService), learner)

	req := httptest.NewRequest(http.MethodGet, "/training/topics", nil)
	rec := httptest.NewRecorder()
	handler.Topics(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data map[string][]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Contains(t, envelope.Data["market_data"], "NYC real estate market trends")
}

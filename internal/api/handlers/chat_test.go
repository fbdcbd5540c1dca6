package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/splashxmoon/domufi-app/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChatService is a mock implementation of ChatService
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) ProcessMessage(ctx context.Context, q domain.ChatQuery) (domain.ChatReply, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(domain.ChatReply), args.Error(1)
}

func (m *MockChatService) Ready() bool {
	args := m.Called()
	return args.Bool(0)
}

func postChat(t *testing.T, handler *ChatHandler, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Chat(rec, req)
	return rec
}

func TestChatHandler_NotReady(t *testing.T) {
	svc := new(MockChatService)
	svc.On("Ready").Return(false)
	handler := NewChatHandler(svc)

	rec := postChat(t, handler, []byte(`{"message":"hello"}`))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	svc.AssertNotCalled(t, "ProcessMessage", mock.Anything, mock.Anything)
}

func TestChatHandler_InvalidBody(t *testing.T) {
	svc := new(MockChatService)
	svc.On("Ready").Return(true)
	handler := NewChatHandler(svc)

	rec := postChat(t, handler, []byte(`{not json`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid request body", resp["error"])
}

func TestChatHandler_EmptyMessage(t *testing.T) {
	svc := new(MockChatService)
	svc.On("Ready").Return(true)
	svc.On("ProcessMessage", mock.Anything, mock.Anything).Return(domain.ChatReply{}, domain.ErrEmptyMessage)
	handler := NewChatHandler(svc)

	rec := postChat(t, handler, []byte(`{"message":""}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHandler_DeadlineMapsToGatewayTimeout(t *testing.T) {
	svc := new(MockChatService)
	svc.On("Ready").Return(true)
	svc.On("ProcessMessage", mock.Anything, mock.Anything).Return(domain.ChatReply{}, context.DeadlineExceeded)
	handler := NewChatHandler(svc)

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte(`{"message":"hello"}`)))
	req = req.WithContext(expired)
	rec := httptest.NewRecorder()
	handler.Chat(rec, req)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "deadline")
}

func TestChatHandler_Success(t *testing.T) {
	reply := domain.ChatReply{
		Answer:     "Fractional ownership lets multiple investors share one property.",
		Confidence: 0.9,
		Intent:     domain.IntentExplanation,
		ModelInfo:  domain.ModelInfo{Version: "3.0.0"},
	}
	svc := new(MockChatService)
	svc.On("Ready").Return(true)
	svc.On("ProcessMessage", mock.Anything, mock.MatchedBy(func(q domain.ChatQuery) bool {
		return q.Message == "What is fractional ownership?" && q.UserID == "u1"
	})).Return(reply, nil)
	handler := NewChatHandler(svc)

	rec := postChat(t, handler, []byte(`{"message":"What is fractional ownership?","user_id":"u1"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var envelope struct {
		Data domain.ChatReply `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, reply.Answer, envelope.Data.Answer)
	assert.Equal(t, domain.IntentExplanation, envelope.Data.Intent)
	assert.Equal(t, "3.0.0", envelope.Data.ModelInfo.Version)
	svc.AssertExpectations(t)
}

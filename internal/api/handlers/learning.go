package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/splashxmoon/domufi-app/internal/api"
	"github.com/splashxmoon/domufi-app/internal/service"
)

type SelfTestService interface {
	Stats() service.SelfTestStats
	Progress() (mastered int, total int, focus string, perQuestion []service.TestOutcome)
}

type LearnerService interface {
	LearnTopic(ctx context.Context, query, category string, variation bool) (int, error)
	Stats() service.LearnStats
	Topics() map[string][]string
}

// LearningHandler exposes the self-test and background-learner state and
// accepts ad-hoc training topics.
type LearningHandler struct {
	tester  SelfTestService
	learner LearnerService
}

func NewLearningHandler(tester SelfTestService, learner LearnerService) *LearningHandler {
	return &LearningHandler{tester: tester, learner: learner}
}

func (h *LearningHandler) SelfLearningStatus(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]interface{}{
		"self_test": h.tester.Stats(),
		"learner":   h.learner.Stats(),
	})
}

func (h *LearningHandler) SelfLearningProgress(w http.ResponseWriter, r *http.Request) {
	mastered, total, focus, perQuestion := h.tester.Progress()
	api.Success(w, http.StatusOK, map[string]interface{}{
		"mastered":       mastered,
		"total":          total,
		"current_focus":  focus,
		"question_state": perQuestion,
	})
}

type LearnTopicRequest struct {
	Topic    string `json:"topic"`
	Category string `json:"category"`
}

func (h *LearningHandler) LearnTopic(w http.ResponseWriter, r *http.Request) {
	var req LearnTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Topic == "" {
		api.Error(w, http.StatusBadRequest, "topic is required")
		return
	}
	if req.Category == "" {
		req.Category = "manual"
	}

	stored, err := h.learner.LearnTopic(r.Context(), req.Topic, req.Category, false)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"topic":        req.Topic,
		"category":     req.Category,
		"items_stored": stored,
	})
}

func (h *LearningHandler) Topics(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.learner.Topics())
}

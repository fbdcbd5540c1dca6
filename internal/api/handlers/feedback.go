package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/splashxmoon/domufi-app/internal/api"
	"github.com/splashxmoon/domufi-app/internal/domain"
	"github.com/splashxmoon/domufi-app/internal/service"
)

type FeedbackService interface {
	RecordFeedback(fb service.Feedback) error
	Stats() service.FeedbackStats
	Insights(intent domain.Intent) service.FeedbackInsights
}

type FeedbackHandler struct {
	svc FeedbackService
}

func NewFeedbackHandler(svc FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

type FeedbackRequest struct {
	UserID    string          `json:"user_id"`
	Query     string          `json:"query"`
	Response  string          `json:"response"`
	Intent    domain.Intent   `json:"intent"`
	Entities  domain.Entities `json:"entities"`
	Type      string          `json:"feedback_type"`
	Corrected string          `json:"corrected_response"`
	Rating    float32         `json:"rating"`
}

func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.svc.RecordFeedback(service.Feedback{
		UserID:    req.UserID,
		Query:     req.Query,
		Response:  req.Response,
		Intent:    req.Intent,
		Entities:  req.Entities,
		Type:      service.FeedbackType(req.Type),
		Corrected: req.Corrected,
		Rating:    req.Rating,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *FeedbackHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	intent := domain.Intent(r.URL.Query().Get("intent"))
	api.Success(w, http.StatusOK, h.svc.Insights(intent))
}

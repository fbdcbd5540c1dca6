package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/splashxmoon/domufi-app/internal/api"
	"github.com/splashxmoon/domufi-app/internal/domain"
)

// ChatDeadline bounds one chat turn end to end.
const ChatDeadline = 55 * time.Second

type ChatService interface {
	ProcessMessage(ctx context.Context, q domain.ChatQuery) (domain.ChatReply, error)
	Ready() bool
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Ready() {
		api.HandleError(w, domain.ErrEngineNotReady)
		return
	}

	var query domain.ChatQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), ChatDeadline)
	defer cancel()

	reply, err := h.svc.ProcessMessage(ctx, query)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			api.HandleError(w, domain.ErrReplyTimeout)
			return
		}
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, reply)
}

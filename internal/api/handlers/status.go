package handlers

import (
	"net/http"

	"github.com/splashxmoon/domufi-app/internal/api"
	"github.com/splashxmoon/domufi-app/internal/service"
	"github.com/splashxmoon/domufi-app/internal/vectorstore"
)

type StoreStats interface {
	Stats() vectorstore.Stats
}

// StatusHandler reports component readiness and counters.
type StatusHandler struct {
	engine   *service.Engine
	store    StoreStats
	tuner    *service.FeedbackTuner
	hasDB    bool
	hasModel bool
}

func NewStatusHandler(engine *service.Engine, store StoreStats, tuner *service.FeedbackTuner, hasDB, hasModel bool) *StatusHandler {
	return &StatusHandler{engine: engine, store: store, tuner: tuner, hasDB: hasDB, hasModel: hasModel}
}

func (h *StatusHandler) Ping(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{"ping": "pong"})
}

func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if !h.engine.Ready() {
		status = "initializing"
		code = http.StatusServiceUnavailable
	}
	api.Success(w, code, map[string]string{"status": status})
}

func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	payload := map[string]interface{}{
		"ready":      h.engine.Ready(),
		"model_info": h.engine.ModelInfo(),
		"database":   h.hasDB,
		"embeddings": embeddingMode(h.hasModel),
	}
	if h.store != nil {
		payload["vector_store"] = h.store.Stats()
	}
	if h.tuner != nil {
		payload["feedback"] = h.tuner.Stats()
	}
	api.Success(w, http.StatusOK, payload)
}

func embeddingMode(hasModel bool) string {
	if hasModel {
		return "openai"
	}
	return "hashing"
}

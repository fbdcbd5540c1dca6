package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/splashxmoon/domufi-app/internal/api/handlers"
	"github.com/splashxmoon/domufi-app/internal/api/middleware"
)

type RouterConfig struct {
	ChatHandler     *handlers.ChatHandler
	FeedbackHandler *handlers.FeedbackHandler
	LearningHandler *handlers.LearningHandler
	StatusHandler   *handlers.StatusHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/ping", cfg.StatusHandler.Ping)
	r.Get("/health", cfg.StatusHandler.Health)
	r.Get("/status", cfg.StatusHandler.Status)

	r.Post("/chat", cfg.ChatHandler.Chat)

	r.Post("/feedback", cfg.FeedbackHandler.Create)
	r.Get("/feedback/insights", cfg.FeedbackHandler.GetInsights)

	r.Route("/self-learning", func(r chi.Router) {
		r.Get("/status", cfg.LearningHandler.SelfLearningStatus)
		r.Get("/progress", cfg.LearningHandler.SelfLearningProgress)
	})

	r.Route("/training", func(r chi.Router) {
		r.Post("/learn", cfg.LearningHandler.LearnTopic)
		r.Get("/topics", cfg.LearningHandler.Topics)
	})

	return r
}

// ABOUTME: chi router wiring all REST and SSE endpoints under /api
// ABOUTME: Middleware stack mirrors logger, recoverer, slash handling
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the HTTP surface
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Post("/topics", h.CreateTopic)
		r.Get("/topics", h.ListTopics)
		r.Get("/topics/{topicID}", h.GetTopic)
		r.Patch("/topics/{topicID}", h.UpdateTopic)
		r.Delete("/topics/{topicID}", h.DeleteTopic)
		r.Get("/topics/{topicID}/messages", h.ListMessages)
		r.Post("/topics/{topicID}/messages", h.SendMessage)
		r.Post("/topics/{topicID}/messages/stream", h.StreamMessage)

		r.Get("/flowmo/topic", h.GetFlowmoTopic)

		r.Get("/memories", h.ListMemories)
		r.Post("/memories", h.CreateMemory)
		r.Delete("/memories", h.DeleteAllMemories)
		r.Post("/memories/reindex", h.ReindexMemories)
		r.Get("/memories/{memoryID}", h.GetMemory)
		r.Put("/memories/{memoryID}", h.UpdateMemory)
		r.Delete("/memories/{memoryID}", h.DeleteMemory)

		r.Get("/flowmos", h.ListFlowmos)
		r.Post("/flowmos", h.CreateFlowmo)
		r.Delete("/flowmos", h.DeleteAllFlowmos)
		r.Delete("/flowmos/{flowmoID}", h.DeleteFlowmo)

		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)
	})

	return r
}

package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// OutcomesPath is where the background worker streams outcomes.
const OutcomesPath = "/outcomes"

const healthPath = "/api/health"

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID, h.withLogging)

	router.Get(OutcomesPath, h.receiveOutcomes)

	router.Get(healthPath, h.health)
	router.Get("/api/status", h.status)
	router.Get("/api/version", h.getVersion)
	router.Post("/api/sync", h.syncNow)

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}

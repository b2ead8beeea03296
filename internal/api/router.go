package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthTimeout bounds each dependency check of /health.
const healthTimeout = 3 * time.Second

// buildRouter creates the router with every route and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/classes", func(r chi.Router) {
				r.Get("/", s.handleListClasses)
				r.Get("/{name}", s.handleGetClass)
			})

			r.Route("/objects", func(r chi.Router) {
				r.Get("/", s.handleListObjects)
				r.Post("/", s.handleCreateObject)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetObject)
					r.Put("/", s.handleUpdateObject)
					r.Delete("/", s.handleDeleteObject)
					r.Post("/clone", s.handleCloneObject)
					r.Post("/freeze", s.handleFreezeObject)
					r.Post("/begin-update", s.handleBeginUpdate)
					r.Post("/end-update", s.handleEndUpdate)
					r.Put("/order", s.handleSetOrder)

					r.Get("/properties", s.handleListProperties)
					r.Get("/properties/{path}", s.handleGetValue)
					r.Put("/properties/{path}", s.handleSetValue)
					r.Delete("/properties/{path}", s.handleClearValue)
					r.Get("/properties/{path}/selection", s.handleGetSelection)
					r.Get("/properties/{path}/history", s.handleGetHistory)

					r.Get("/descriptors", s.handleListDescriptors)
					r.Post("/descriptors", s.handleAddDescriptor)
					r.Delete("/descriptors/{name}", s.handleRemoveDescriptor)
				})
			})

			r.Get("/audit", s.handleListAudit)
			r.Get(s.wsPath(), s.handleWebSocket)
		})
	})

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth reports "ok", or "degraded" with 503 when a dependency
// check fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(s.health))
	healthy := true
	for name, c := range s.health {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		err := c.HealthCheck(ctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	code, state := http.StatusOK, "ok"
	if !healthy {
		code, state = http.StatusServiceUnavailable, "degraded"
	}
	writeJSON(w, code, map[string]any{
		"status":  state,
		"version": s.version,
		"objects": s.registry.Len(),
		"checks":  checks,
	})
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires authentication
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Get("/status", s.handleStatus)
			r.Get("/snapshot", s.handleSnapshot)

			r.Route("/rooms", func(r chi.Router) {
				r.Get("/", s.handleListRooms)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetRoom)
					r.Put("/manual-control", s.handleSetManualControl)
					r.Delete("/manual-control", s.handleResumeRoom)
					r.Post("/boost", s.handleBoostRoom)
					r.Put("/open-window", s.handleOpenWindow)
				})
			})

			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)

				r.Route("/{serial}", func(r chi.Router) {
					r.Get("/", s.handleGetDevice)
					r.Put("/offset", s.handleSetOffset)
				})
			})

			r.Post("/boost", s.handleBoostAll)
			r.Post("/resume", s.handleResumeAll)
			r.Post("/offsets", s.handleBatchOffsets)
			r.Put("/presence", s.handleSetPresence)
			r.Post("/refresh", s.handleRefresh)
		})

		// The WebSocket upgrade authenticates with a single-use ticket
		// (issued by /auth/ws-ticket, validated in the handler) because
		// browser WebSocket dials cannot carry an Authorization header.
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

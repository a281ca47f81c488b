/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the desktop client

ROUTE GROUPS:
  /api/sync/*          Bidirectional sync and legacy migration
  /api/publish         Shift publication
  /api/unpublish       Shift retraction
  /api/shifts          Local shift listing
  /api/availability/*  Schedulability resolution
  /api/conflicts       Overlap detection
  /api/timeoff/*       Submission, withdrawal, review
  /api/employees/*     Roster listing and removal
  /api/identity/*      Account-identifier maintenance
  /api/queue/*         Offline submission queue

SECURITY NOTE:
  Manager identity is bound at startup, not per request. The server is
  meant to sit on localhost next to the desktop client, not on a shared
  network edge.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Sync routes
		r.Route("/sync", func(r chi.Router) {
			r.Post("/download", h.DownloadSync)
			r.Post("/upload", h.UploadSync)
			r.Post("/migrate", h.MigrateLegacy)
		})

		// Publication routes
		r.Post("/publish", h.PublishShifts)
		r.Post("/unpublish", h.UnpublishShifts)
		r.Get("/shifts", h.ListShifts)

		// Availability and conflict routes
		r.Get("/availability/resolve", h.ResolveAvailability)
		r.Get("/conflicts", h.ListConflicts)

		// Time-off routes
		r.Route("/timeoff", func(r chi.Router) {
			r.Post("/", h.SubmitTimeOff)
			r.Get("/", h.ListTimeOff)
			r.Delete("/{id}", h.WithdrawTimeOff)
			r.Post("/{id}/approve", h.ApproveTimeOff)
			r.Post("/{id}/deny", h.DenyTimeOff)
			r.Post("/{id}/reopen", h.ReopenTimeOff)
		})

		// Roster routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Delete("/{id}", h.RemoveEmployee)
		})

		// Identity maintenance routes
		r.Route("/identity", func(r chi.Router) {
			r.Post("/reconcile", h.ReconcileIdentity)
			r.Post("/clear", h.ClearInvalidIdentity)
			r.Post("/refresh", h.RefreshIdentityReferences)
		})

		// Offline queue routes
		r.Route("/queue", func(r chi.Router) {
			r.Get("/", h.ListQueue)
			r.Post("/flush", h.FlushQueue)
		})
	})

	return r
}

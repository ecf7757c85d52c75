/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the ERP frontend

ROUTE GROUPS:
  /api/accounts/*      Account management and balance reads
  /api/sales/*         Shipment billing
  /api/payments        Payment receipts
  /api/temp-entries    Temp-account funding
  /api/adjustments     Manual corrections
  /api/notes/*         Credit/debit notes
  /api/entries         Source-document lookups
  /api/scenarios/*     Demo scenarios (dev only)
  /healthz             Liveness probe

SECURITY NOTE:
  No authentication middleware currently. The service is expected to sit
  behind the ERP's gateway.

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

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Account routes
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/{code}", h.GetAccount)
			r.Get("/{code}/balance", h.GetBalance)
			r.Get("/{code}/entries", h.GetEntries)
			r.Get("/{code}/awbs/{awb}/entries", h.GetAwbEntries)
			r.Get("/{code}/awbs/{awb}/tail", h.GetAwbTail)
		})

		// Transaction routes
		r.Route("/sales", func(r chi.Router) {
			r.Post("/", h.RecordSale)
			r.Post("/amend", h.AmendSale)
		})
		r.Post("/payments", h.RecordPayment)
		r.Post("/temp-entries", h.RecordTempEntry)
		r.Post("/adjustments", h.RecordAdjustment)

		// Note routes
		r.Route("/notes", func(r chi.Router) {
			r.Post("/", h.ApplyNote)
			r.Delete("/{sourceRef}", h.ReverseNote)
		})

		// Source-document lookups
		r.Get("/entries", h.GetEntriesBySource)

		// Demo scenarios (dev only, active when a Resetter is wired)
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/healthz", h.Healthz)

	return r
}

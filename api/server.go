/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestLogger: X-Request-ID tagging and one zap line per request
  2. Metrics:       Prometheus request count and latency per route
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/immobilisations/*   Asset register and schedules
  /api/familles/*          Asset families
  /api/localisations/*     Locations
  /api/comptes/*           Ledger accounts
  /api/rapports/*          Dotations, inventaire, CERFA
  /healthz                 Store reachability
  /metrics                 Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - reports.go: Report handlers
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
// allowedOrigins feeds the CORS middleware; "*" allows any origin.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(RequestLogger(h.Logger.Named("http")))
	r.Use(h.Metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", RequestIDHeader, RejectedHeader},
		AllowCredentials: false,
	}))

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.Registry, promhttp.HandlerOpts{}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/immobilisations", func(r chi.Router) {
			r.Get("/", h.ListAssets)
			r.Post("/", h.CreateAsset)
			r.Get("/{code}", h.GetAsset)
			r.Put("/{code}", h.UpdateAsset)
			r.Delete("/{code}", h.DeleteAsset)
			r.Get("/{code}/amortissement", h.GetSchedule)
		})

		r.Route("/familles", func(r chi.Router) {
			r.Get("/", h.ListFamilies)
			r.Post("/", h.CreateFamily)
			r.Get("/{code}", h.GetFamily)
			r.Put("/{code}", h.UpdateFamily)
			r.Delete("/{code}", h.DeleteFamily)
		})

		r.Route("/localisations", func(r chi.Router) {
			r.Get("/", h.ListLocations)
			r.Post("/", h.CreateLocation)
			r.Get("/{code}", h.GetLocation)
			r.Put("/{code}", h.UpdateLocation)
			r.Delete("/{code}", h.DeleteLocation)
		})

		r.Route("/comptes", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/{code}", h.GetAccount)
			r.Put("/{code}", h.UpdateAccount)
			r.Delete("/{code}", h.DeleteAccount)
		})

		r.Route("/rapports", func(r chi.Router) {
			r.Get("/dotations", h.DotationsReport)
			r.Get("/inventaire", h.InventaireReport)
			r.Get("/cerfa", h.CerfaReport)
		})
	})

	return r
}

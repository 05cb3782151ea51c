/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

TENANT SCOPING:
  Every domain route is nested under /api/tenants/{tenantID}. The tenant
  is an explicit path parameter threaded into each store call - there is
  no ambient "current tenant" anywhere.

ROUTE GROUPS:
  /api/tenants                               Tenant management
  /api/tenants/{id}/employees                Employee roster
  /api/tenants/{id}/components               Payroll component catalog
  /api/tenants/{id}/periods                  Period lifecycle + generation
  /api/tenants/{id}/periods/{id}/entries     Entries and line items
  /api/seed                                  Demo data (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public;
  deployments are expected to front this API with an auth layer.

SEE ALSO:
  - handlers.go: handler implementations
  - cmd/server/main.go: server startup
*/
package api

import (
	"net/http"

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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/tenants", func(r chi.Router) {
			r.Get("/", h.ListTenants)
			r.Post("/", h.CreateTenant)

			r.Route("/{tenantID}", func(r chi.Router) {
				r.Get("/", h.GetTenant)

				r.Route("/employees", func(r chi.Router) {
					r.Get("/", h.ListEmployees)
					r.Post("/", h.CreateEmployee)
				})

				r.Route("/components", func(r chi.Router) {
					r.Get("/", h.ListComponents)
					r.Post("/", h.CreateComponent)
				})

				r.Route("/periods", func(r chi.Router) {
					r.Get("/", h.ListPeriods)
					r.Post("/", h.CreatePeriod)

					r.Route("/{periodID}", func(r chi.Router) {
						r.Get("/", h.GetPeriod)
						r.Delete("/", h.DeletePeriod)
						r.Post("/generate", h.Generate)
						r.Post("/finalize", h.FinalizePeriod)
						r.Post("/cancel", h.CancelPeriod)
						r.Get("/register.csv", h.ExportRegister)

						r.Route("/entries", func(r chi.Router) {
							r.Get("/", h.ListEntries)
							r.Post("/", h.AddEntry)

							r.Route("/{entryID}", func(r chi.Router) {
								r.Get("/", h.GetEntry)
								r.Delete("/", h.DeleteEntry)
								r.Post("/items", h.AddItem)
								r.Delete("/items/{itemID}", h.DeleteItem)
							})
						})
					})
				})
			})
		})

		// Demo data loader (dev only)
		r.Post("/seed", h.Seed)
	})

	// Landing page for humans poking at the API
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Payroll Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Payroll Engine API</h1>
<ul>
<li><a href="/api/tenants">/api/tenants</a> - List tenants</li>
<li>POST /api/seed - Load demo data</li>
</ul>
</body>
</html>`))
	})

	return r
}

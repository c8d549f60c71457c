/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request, logged with every run
  2. RequestLogger: One zap line per request
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for a frontend
  5. RateLimiter:   Only on /api, only when RouterOptions.RateLimit is set

ROUTE GROUPS:
  /api/health           Liveness
  /api/scenarios/*      Demo scenarios
  /api/selections/*     Selection runs
  /metrics              Prometheus

SECURITY NOTE:
  No authentication middleware. Sheet ids given to /api/selections/sheet are
  fetched with the server's credentials, so only expose it on trusted networks.

SEE ALSO:
  - handlers.go: Handler implementations
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

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	RateLimit      *RateLimiter // nil disables rate limiting
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Run-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		if opts.RateLimit != nil {
			r.Use(opts.RateLimit.Handler)
		}

		r.Get("/health", h.Health)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/{id}", h.GetScenario)
		})

		// Selection routes
		r.Route("/selections", func(r chi.Router) {
			r.Post("/", h.RunInline)
			r.Post("/scenario", h.RunScenario)
			r.Post("/sheet", h.RunSheet)
			r.Post("/upload", h.RunUpload)
		})
	})

	r.Handle("/metrics", promhttp.HandlerFor(h.Registry, promhttp.HandlerOpts{}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Convocation Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Convocation Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/health">/api/health</a> - Liveness</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List demo scenarios</li>
<li>POST /api/selections - Run on inline tables</li>
<li>POST /api/selections/scenario - Run a demo scenario</li>
<li>POST /api/selections/sheet - Run on a Google Sheet</li>
<li>POST /api/selections/upload - Run on an uploaded .xlsx</li>
<li><a href="/metrics">/metrics</a> - Prometheus metrics</li>
</ul>
</body>
</html>`))
	})

	return r
}

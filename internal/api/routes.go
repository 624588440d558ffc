package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(realIPFromTrusted(h.trustedProxies))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if len(h.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.MethodNotAllowed(h.HandleMethodNotAllowed)

	// Health (no auth)
	if h.health != nil {
		r.Get("/health", h.health.HandleHealth)
		r.Get("/health/live", h.health.HandleLiveness)
		r.Get("/health/ready", h.health.HandleReadiness)
	} else {
		r.Get("/health", h.HealthCheck)
	}

	// Public funnel endpoints
	r.Post("/leads/roi", h.HandleROILead)
	r.Post("/leads/revolving", h.HandleRevolvingLead)
	if h.tracking != nil {
		r.Get("/track", h.tracking.HandlePixel)
	}
	if h.admin != nil {
		r.Get("/view_report", h.HandleViewReport)
	}

	// Relay trigger (token in query string, checked by the handler)
	if h.relay != nil {
		r.Get("/cron/relay", h.HandleCronRelay)
	}

	// Admin JSON API; an empty token leaves it unmounted
	if h.admin != nil && h.adminToken != "" {
		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Get("/leads", h.HandleListLeads)
			r.Patch("/leads/{funnel}/{id}/stage", h.HandleUpdateStage)
			r.Get("/stats", h.HandleStats)
			r.Get("/relay/runs", h.HandleRelayRuns)
		})
	}

	return r
}

package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/keycloak-gateway/app"
	"github.com/upb/keycloak-gateway/authz"
	"github.com/upb/keycloak-gateway/handlers"
	"github.com/upb/keycloak-gateway/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	health := handlers.NewHealthHandler(deps.Config.Keycloak.BaseURL, deps.Config.Keycloak.Realm, deps.Logger)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	// Browser login flow (authorization-code grant against the realm)
	authHandler := deps.AuthHandler()
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", authHandler.HandleLogin)
		r.Get("/callback", authHandler.HandleCallback)
		r.Get("/logout", authHandler.HandleLogout)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/status", handlers.StatusHandler(deps))

		// Everything below requires a verified token; the route policy then
		// enforces per-prefix role requirements on top.
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(authz.Middleware(deps.RoutePolicy, deps.Logger))

			r.Get("/me", handlers.GetCurrentUserHandler(deps))
			r.Get("/me/roles", handlers.GetCurrentRolesHandler(deps))

			// Runtime route policy management, gated on the admin role
			policyHandler := handlers.NewPolicyHandler(deps.RoutePolicy, deps.Logger)
			r.Route("/admin/policy", func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireRole(deps.Config.Authz.AdminRole))
				r.Get("/", policyHandler.HandleListRules)
				r.Post("/", policyHandler.HandleCreateRule)
			})
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}

package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/moimpay/moim-backend/app"
	"github.com/moimpay/moim-backend/middleware"
	"github.com/moimpay/moim-backend/models"
	"github.com/moimpay/moim-backend/utils"
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

	// CORS middleware. Credentials must be allowed: the refresh token rides
	// a cross-site cookie.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	// OAuth2 login flow (social accounts)
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", oauthOrUnavailable(deps, func(w http.ResponseWriter, req *http.Request) {
			deps.OAuthHandler.HandleLogin(w, req)
		}))
		r.Get("/callback", oauthOrUnavailable(deps, func(w http.ResponseWriter, req *http.Request) {
			deps.OAuthHandler.HandleCallback(w, req)
		}))
	})

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/signup", deps.AuthHandler.HandleSignup)
		r.Post("/login", deps.AuthHandler.HandleLogin)
		r.Post("/token/refresh", deps.TokenHandler.HandleRefresh)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Post("/logout", deps.AuthHandler.HandleLogout)
			r.Get("/auth/me", deps.AuthHandler.HandleMe)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireRole(models.RoleAdmin))
			r.Get("/ping", func(w http.ResponseWriter, req *http.Request) {
				principal := middleware.GetPrincipalFromContext(req.Context())
				_ = utils.WriteOK(w, map[string]string{
					"subject": principal.Subject,
					"role":    string(principal.Role),
				})
			})
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		_ = utils.WriteNotFound(w, req.URL.Path, "Endpoint not found")
	})

	return r
}

// oauthOrUnavailable guards the OAuth routes when no provider is configured
func oauthOrUnavailable(deps *app.Dependencies, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.OAuthHandler == nil {
			_ = utils.WriteServiceUnavailable(w, r.URL.Path, "Social login not configured")
			return
		}
		fn(w, r)
	}
}

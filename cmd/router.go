package cmd

import (
	"net/http"
	"time"

	"property-market-backend/internal/handlers"
	"property-market-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// RouterDeps bundles everything the HTTP router needs
type RouterDeps struct {
	AllowedOrigins []string
	Gate           *middleware.AuthGate
	LoginLimiter   *middleware.RateLimiter
	Auth           *handlers.AuthHandler
	Users          *handlers.UserHandler
	Properties     *handlers.PropertyHandler
	Messages       *handlers.MessageHandler
	WebSocket      *handlers.WebSocketHandler
	Health         *handlers.HealthHandler
}

// NewRouter builds the chi router with middleware and all routes
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", d.Health.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(30 * time.Second))
			r.Use(middleware.MaxBodySize(1 << 20))

			r.Post("/auth/register", d.Auth.Register)
			r.With(d.LoginLimiter.Handler).Post("/auth/login", d.Auth.Login)
			r.Post("/auth/logout", d.Auth.Logout)

			r.With(d.Gate.OptionalAuth).Get("/properties", d.Properties.List)
			r.Get("/properties/search", d.Properties.Search)
			r.Get("/properties/{id}", d.Properties.Get)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(30 * time.Second))
			r.Use(middleware.MaxBodySize(1 << 20))
			r.Use(d.Gate.RequireAuth)

			r.Get("/auth/me", d.Auth.Me)
			r.Put("/users/me", d.Users.UpdateProfile)
			r.Put("/users/me/push-token", d.Users.UpdatePushToken)

			r.Post("/properties", d.Properties.Create)
			r.Put("/properties/{id}", d.Properties.Update)
			r.Delete("/properties/{id}", d.Properties.Delete)
			r.Post("/properties/{id}/images", d.Properties.RequestImageUpload)

			r.Get("/messages", d.Messages.List)
			r.Post("/messages", d.Messages.Send)
			r.Get("/messages/properties", d.Messages.Conversations)
			r.Post("/messages/read", d.Messages.MarkRead)
		})

		// WebSocket route authenticates itself so it can accept ?token=
		r.Get("/ws", d.WebSocket.HandleWebSocket)
	})

	return r
}

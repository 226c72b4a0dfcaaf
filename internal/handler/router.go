package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"ticketing-service/internal/token"
)

// HealthChecker reports per-dependency status for the health endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) map[string]string
}

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(
	authHandler *AuthHandler,
	ticketHandler *TicketHandler,
	tokens *token.Manager,
	health HealthChecker,
	logger *zap.Logger,
) chi.Router {
	router := chi.NewRouter()

	// Middleware stack
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggerMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", healthEndpoint(health, logger))

	// API routes
	router.Route("/api/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokens, logger))
			ticketHandler.RegisterRoutes(r)
		})
	})

	// Flat aliases kept for the original client surface.
	router.Post("/register", authHandler.Register)
	router.Post("/login", authHandler.Login)
	router.Post("/send-otp", authHandler.SendOTP)
	router.Post("/verify-otp", authHandler.VerifyOTP)
	router.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(tokens, logger))
		r.Post("/register-face", ticketHandler.RegisterFace)
		r.Post("/create-ticket", ticketHandler.CreateTicket)
		r.Post("/verify-ticket", ticketHandler.VerifyTicket)
		r.Get("/ticket/{ticketID}", ticketHandler.GetTicket)
	})

	// 404 handler
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	// Method not allowed handler
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte(`{"error":"method not allowed"}`))
	})

	return router
}

func healthEndpoint(health HealthChecker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		statuses := map[string]string{}
		if health != nil {
			statuses = health.HealthCheck(ctx)
		}

		code := http.StatusOK
		overall := "healthy"
		for _, status := range statuses {
			if status != "ok" {
				code = http.StatusServiceUnavailable
				overall = "degraded"
				break
			}
		}

		respondWithJSON(w, logger, code, map[string]interface{}{
			"status":       overall,
			"service":      "ticketing-service",
			"dependencies": statuses,
		})
	}
}

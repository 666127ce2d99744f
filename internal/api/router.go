package api

import (
	"log/slog"
	"net/http"

	"github.com/dom/imagify/internal/api/handlers"
	"github.com/dom/imagify/internal/api/middleware"
	"github.com/dom/imagify/internal/config"
	"github.com/dom/imagify/internal/metrics"
	"github.com/dom/imagify/internal/service"
	"github.com/dom/imagify/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

func NewRouter(services *service.Services, hub *websocket.Hub, gatherer prometheus.Gatherer, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigin))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	if gatherer != nil {
		r.Handle("/metrics", metrics.Handler(gatherer))
	}

	authHandler := handlers.NewAuthHandler(services.Auth, logger)
	creditHandler := handlers.NewCreditHandler(services.Credits, logger)
	generationHandler := handlers.NewGenerationHandler(services.Generation, logger)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth, logger)
	requireAuth := middleware.Auth(services.Auth, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Get("/credits/plans", creditHandler.Plans)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/credits", func(r chi.Router) {
				r.Get("/", creditHandler.Balance)
				r.Post("/top-up", creditHandler.TopUp)
			})

			r.Route("/images", func(r chi.Router) {
				r.Post("/generate", generationHandler.Generate)
				r.Get("/generations", generationHandler.List)
				r.Get("/generations/{id}", generationHandler.Get)
			})
		})

		r.Get("/ws", wsHandler.Handle)
	})

	return r
}

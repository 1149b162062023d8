package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/ciclismopt/assist/internal/api/handler"
	"github.com/ciclismopt/assist/internal/assist"
	"github.com/ciclismopt/assist/internal/cache"
	"github.com/ciclismopt/assist/internal/config"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(pool *pgxpool.Pool, appCache *cache.Cache, coord *assist.Coordinator, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control", "X-User-ID"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "Link", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(pool, appCache, coord, cfg)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	// Swagger UI
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes
	r.Route("/api/v1/assist", func(r chi.Router) {
		// Reactive entry points
		r.Post("/screen", h.ScreenChange)
		r.Post("/interaction", h.Interaction)
		r.Post("/transfers", h.TransfersChanged)

		// Suggestion slot
		r.Get("/suggestion", h.CurrentSuggestion)
		r.Post("/dismiss", h.Dismiss)
		r.Post("/expand", h.ExpandToChat)

		// Chat and execution
		r.Post("/chat", h.Chat)
		r.Post("/execute", h.ExecuteAction)

		// Event stream
		r.Get("/events", h.Events)

		// Bootstrap data
		r.Get("/routes", h.GetRoutes)
		r.Get("/races", h.GetUpcomingRaces)
	})

	return r
}

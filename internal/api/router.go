package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dave817/sereniowebapp/internal/api/middleware"
	"github.com/dave817/sereniowebapp/internal/auth"
	"github.com/dave817/sereniowebapp/internal/chat"
	"github.com/dave817/sereniowebapp/internal/handlers"
	"github.com/dave817/sereniowebapp/internal/store"
)

// Deps are the process-scoped dependencies the router serves.
type Deps struct {
	Logger      zerolog.Logger
	DB          store.DataStore
	Redis       *store.RedisStore // optional
	Auth        *auth.Service
	Chat        *chat.Pipeline
	Anonymous   bool
	CORSOrigins []string // empty reflects any origin
	RateLimit   middleware.RateLimiterConfig
}

// NewRouter creates and configures the HTTP router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(16 * 1024))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Logger))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(corsOptions(d.CORSOrigins)))

	var redisClient *redis.Client
	if d.Redis != nil {
		redisClient = d.Redis.Client()
	}
	limiter := middleware.NewRateLimiter(redisClient, d.Logger, d.RateLimit)

	h := handlers.NewHandler(handlers.Options{
		DB:        d.DB,
		Redis:     d.Redis,
		Auth:      d.Auth,
		Chat:      d.Chat,
		Anonymous: d.Anonymous,
		Logger:    d.Logger,
	})
	authMW := middleware.NewAuthMiddleware(d.Auth, d.Logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Get("/api", h.Root)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)

		r.Post("/api/auth/register", h.Register)
		r.Post("/api/auth/login", h.Login)

		if d.Anonymous {
			r.Get("/api/chat/messages", h.GetMessages)
			r.Post("/api/chat", h.PostChat)
		}
	})

	// Authenticated routes (require bearer token). The limiter runs after
	// RequireAuth so chat limits are keyed per user.
	r.Group(func(r chi.Router) {
		r.Use(authMW.RequireAuth)
		r.Use(limiter.Middleware)

		r.Get("/api/auth/verify", h.Verify)
		r.Post("/api/auth/logout", h.Logout)

		if !d.Anonymous {
			r.Get("/api/chat/messages", h.GetMessages)
			r.Post("/api/chat", h.PostChat)
		}
	})

	return r
}

// corsOptions reflects the request origin with credentials unless an
// explicit allow list is configured.
func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(origins) > 0 {
		opts.AllowedOrigins = origins
	} else {
		opts.AllowOriginFunc = func(r *http.Request, origin string) bool { return true }
	}
	return opts
}

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dave817/sereniowebapp/internal/api"
	"github.com/dave817/sereniowebapp/internal/api/middleware"
	"github.com/dave817/sereniowebapp/internal/auth"
	"github.com/dave817/sereniowebapp/internal/chat"
	"github.com/dave817/sereniowebapp/internal/config"
	"github.com/dave817/sereniowebapp/internal/llm"
	"github.com/dave817/sereniowebapp/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		logger = logger.Level(level)
	}

	if cfg.UsingDevJWT {
		logger.Warn().Msg("JWT_SECRET not set, using development signing secret")
	}

	ctx := context.Background()

	// Connect to the database, retrying while it comes up
	db, err := store.ConnectWithRetry(ctx, logger, cfg.DBConnectAttempts, cfg.DBConnectBackoff,
		func(ctx context.Context) (store.DataStore, error) {
			return store.Open(ctx, cfg.DatabaseURL)
		})
	if err != nil {
		logger.Fatal().Err(err).Str("database", config.RedactURL(cfg.DatabaseURL)).Msg("database unavailable")
	}
	logger.Info().Str("database", config.RedactURL(cfg.DatabaseURL)).Msg("connected to database")

	// Run migrations
	if !strings.HasPrefix(cfg.DatabaseURL, store.SQLitePrefix) {
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")
	}

	// Initialize Redis store
	var redisStore *store.RedisStore
	var revoker auth.Revoker
	if cfg.RedisURL != "" {
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		revoker = redisStore
		logger.Info().Msg("connected to Redis")
	}

	authSvc := auth.NewService(db, auth.NewBcryptHasher(), auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL), revoker, logger)
	pipeline := chat.NewPipeline(db,
		llm.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIBaseURL),
		chat.DefaultConfig(cfg.Persona, cfg.OpenAIModel),
		logger)

	// Create router
	router := api.NewRouter(api.Deps{
		Logger:      logger,
		DB:          db,
		Redis:       redisStore,
		Auth:        authSvc,
		Chat:        pipeline,
		Anonymous:   cfg.IsAnonymous(),
		CORSOrigins: cfg.CORSAllowedOrigins,
		RateLimit: middleware.RateLimiterConfig{
			Whitelist:        cfg.RateLimitWhitelist,
			AutoBlockEnabled: cfg.AutoBlockEnabled,
		},
	})

	// Bind before serving so a taken port fails fast
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			logger.Fatal().Str("port", cfg.Port).Msg("port already in use")
		}
		logger.Fatal().Err(err).Msg("listen failed")
	}

	// Completions may take up to a minute; writes must outlast them.
	srv := &http.Server{
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("chat_mode", cfg.ChatMode).
			Msg("starting Serenio server")

		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	db.Close()
	logger.Info().Msg("server stopped")
}

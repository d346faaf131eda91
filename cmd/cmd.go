package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"property-market-backend/internal/config"
	"property-market-backend/internal/handlers"
	"property-market-backend/internal/middleware"
	"property-market-backend/internal/repository"
	"property-market-backend/internal/services"
	"property-market-backend/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "property-market-backend"

func Run() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level, cfg.IsProduction())

	shutdownTelemetry := telemetry.Setup(serviceName, cfg.Telemetry)

	// Connect to database
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid database configuration")
	}
	poolCfg.MaxConns = cfg.Database.MaxConns

	db, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Int32("max_conns", cfg.Database.MaxConns).Msg("Database connection established")

	if err := repository.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	// Login throttling is optional
	var loginWindow middleware.WindowLimiter
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid redis URL")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		loginWindow = middleware.NewRedisWindow(rdb)
		log.Info().Msg("Redis connection established")
	} else {
		log.Warn().Msg("REDIS_URL not set, login throttling disabled")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	propertyRepo := repository.NewPropertyRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// Initialize services
	tokens := services.NewTokenManager(cfg.JWT.Secret)
	userService := services.NewUserService(userRepo, services.NewPasswordHasher(services.DefaultBcryptCost), tokens)
	propertyService := services.NewPropertyService(propertyRepo)
	conversationService := services.NewConversationService(propertyRepo, messageRepo)

	var imageService *services.ImageService
	if cfg.AWS.S3Bucket != "" {
		imageService, err = services.NewImageService(context.Background(), propertyRepo, cfg.AWS)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create image service")
		}
	} else {
		log.Warn().Msg("S3_BUCKET not set, image uploads disabled")
	}

	var pushService *services.PushService
	if cfg.APNs.KeyFile != "" {
		pushService, err = services.NewPushService(cfg.APNs)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create push service")
		}
	}

	wsHub := services.NewWSHub()
	delivery := services.NewMessageDelivery(wsHub, pushService, userRepo)
	messageService := services.NewMessageService(messageRepo, userRepo, propertyRepo, delivery)

	gate := middleware.NewAuthGate(tokens)

	router := NewRouter(RouterDeps{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Gate:           gate,
		LoginLimiter:   middleware.NewRateLimiter(loginWindow, "login", cfg.RateLimit.LoginAttempts, cfg.RateLimit.LoginWindow),
		Auth:           handlers.NewAuthHandler(userService, cfg.IsProduction()),
		Users:          handlers.NewUserHandler(userService),
		Properties:     handlers.NewPropertyHandler(propertyService, imageService),
		Messages:       handlers.NewMessageHandler(messageService, conversationService),
		WebSocket:      handlers.NewWebSocketHandler(wsHub, gate, messageService, cfg.Server.AllowedOrigins),
		Health:         handlers.NewHealthHandler(db),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      otelhttp.NewHandler(router, serviceName),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("env", cfg.Env).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTelemetry(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to flush traces")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger; production logs are JSON
func setupLogger(level string, production bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if !production {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

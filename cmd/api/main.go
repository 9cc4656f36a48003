package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dafibh/fortuna/fortuna-rollover/internal/amqp"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/config"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/handler"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/middleware"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/repository/postgres"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/repository/storage"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/service"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Initialize repositories
	userRepo := postgres.NewUserRepository(pool)
	budgetRepo := postgres.NewBudgetRepository(pool)
	expenseRepo := postgres.NewExpenseRepository(pool)
	preferenceRepo := postgres.NewUserPreferenceRepository(pool)

	// Event fan-out: websocket hub, plus RabbitMQ when configured
	hub := websocket.NewHub()
	var publisher websocket.EventPublisher = hub
	if cfg.AMQP.URL != "" {
		amqpPublisher, err := amqp.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
		defer amqpPublisher.Close()
		publisher = websocket.MultiPublisher{hub, amqpPublisher}
		log.Info().Str("exchange", cfg.AMQP.Exchange).Msg("AMQP event publishing enabled")
	}

	// Initialize services
	identity := middleware.ContextIdentity{}
	authService := service.NewAuthService(userRepo)
	calculator := service.NewUnspentCalculator(budgetRepo, expenseRepo)
	settingsService := service.NewRolloverSettingsService(identity, preferenceRepo)
	settingsService.SetEventPublisher(publisher)
	rolloverService := service.NewRolloverService(identity, calculator, budgetRepo, settingsService)
	rolloverService.SetEventPublisher(publisher)

	if cfg.S3.Bucket != "" {
		archive, err := storage.NewS3RolloverArchive(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 rollover archive")
		}
		rolloverService.SetArchive(archive)
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Rollover archive enabled")
	}

	// Initialize auth middleware
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, authService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}

	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.ExecuteRateLimit, middleware.DefaultBurstSize)
	defer rateLimiter.Stop()

	wsValidator, err := websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience, authService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create WebSocket JWT validator")
	}

	// Start background auto-rollover worker
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var worker *service.AutoRolloverWorker
	if cfg.AutoRolloverInterval > 0 {
		worker = service.NewAutoRolloverWorker(rolloverService, settingsService, log.Logger, service.AutoRolloverWorkerConfig{
			Interval: cfg.AutoRolloverInterval,
		})
		worker.Start(workerCtx)
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	rolloverHandler := handler.NewRolloverHandler(rolloverService, settingsService, calculator)
	wsHandler := handler.NewWebSocketHandler(hub, wsValidator, cfg.CORSOrigins)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// WebSocket endpoint (token in query string)
	e.GET("/ws", wsHandler.HandleWS)

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, rateLimiter, authHandler, rolloverHandler)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	if worker != nil {
		worker.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Str("user_id", middleware.GetUserID(c).String()).
				Msg("request")

			return nil
		}
	}
}

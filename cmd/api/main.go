package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/johnquangdev/call-assistant/pkg/validator"

	"github.com/johnquangdev/call-assistant/internal/adapter/handler"
	"github.com/johnquangdev/call-assistant/internal/adapter/repository"
	"github.com/johnquangdev/call-assistant/internal/infrastructure/events"
	"github.com/johnquangdev/call-assistant/internal/infrastructure/external/elevenlabs"
	calluse "github.com/johnquangdev/call-assistant/internal/usecase/call"
	webhookuse "github.com/johnquangdev/call-assistant/internal/usecase/webhook"
	pkgai "github.com/johnquangdev/call-assistant/pkg/ai"
	"github.com/johnquangdev/call-assistant/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	e.HideBanner = true
	e.HidePort = false

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	// Initialize the call record store
	callRepo, err := repository.NewFileCallRepository(cfg.Storage.DataDir, logger)
	if err != nil {
		log.Fatalf("Failed to initialize call store: %v", err)
	}

	// Initialize the broadcast hub for live subscribers
	hub := events.NewHub(logger)

	// Initialize external clients
	providerClient := elevenlabs.NewClient(&cfg.ElevenLabs)
	if !providerClient.Configured() {
		logger.Warn("elevenlabs credentials missing, call initiation will fail until configured")
	}
	groqClient := pkgai.NewGroqClient(&cfg.Groq)
	if !groqClient.Configured() {
		logger.Warn("groq credentials missing, transcripts will not be summarized")
	}
	if cfg.ElevenLabs.WebhookSecret == "" {
		logger.Warn("webhook secret not set, accepting unsigned webhooks")
	}

	// Initialize usecases
	callService := calluse.NewService(callRepo, hub, providerClient, logger)
	webhookService := webhookuse.NewService(callRepo, hub, groqClient, logger)

	// Initialize handlers
	callHandler := handler.NewCallHandler(callService, logger)
	webhookHandler := handler.NewWebhookHandler(webhookService, cfg.ElevenLabs.WebhookSecret, logger)
	eventsHandler := handler.NewEventsHandler(hub, logger)

	router := handler.NewRouter(cfg, callHandler, webhookHandler, eventsHandler)
	router.Setup(e)

	// Start server
	go func() {
		addr := cfg.GetServerAddr()
		logger.Info("starting server",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment),
		)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("server stopped gracefully")
}

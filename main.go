package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/nusasms/nusasms-go/environments"
	"github.com/nusasms/nusasms-go/handlers"
	"github.com/nusasms/nusasms-go/internal/repository"
	"github.com/nusasms/nusasms-go/internal/service"
	"github.com/nusasms/nusasms-go/pkg/database"
	"github.com/nusasms/nusasms-go/pkg/gateway"
	"github.com/nusasms/nusasms-go/pkg/logger"
	"github.com/nusasms/nusasms-go/pkg/redis"
	"github.com/nusasms/nusasms-go/pkg/validator"
	"github.com/nusasms/nusasms-go/routes"
)

func main() {
	logger.Init()

	// Load config
	cfg := environments.Load()

	// Hard-fail if required secrets are missing
	if cfg.Gateway.APIKey == "" {
		logger.Fatalf("NUSASMS_API_KEY is required but not set")
	}
	if cfg.Auth.APIKey == "" {
		logger.Fatalf("SERVICE_API_KEY is required but not set")
	}

	logger.Infof("Starting NusaSMS service...")

	// Init DB
	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed data
	if os.Getenv("SEED_DATA") == "true" {
		if err := database.SeedTestData(db); err != nil {
			logger.Warnf("Failed to seed test data: %v", err)
		}
	}

	// Init redis
	redisClient, err := redis.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warnf("Redis not available, caching disabled: %v", err)
		redisClient = nil
	}

	// Initialize gateway client
	gatewayClient := gateway.New(gateway.Config{
		APIKey:  cfg.Gateway.APIKey,
		BaseURL: cfg.Gateway.BaseURL,
		Timeout: cfg.Gateway.Timeout,
	})

	// Initialize repository
	messageRepo := repository.NewMessageRepository(db)

	// Initialize service. The nil check keeps a typed-nil cache out
	// of the service's interface field.
	var smsService *service.SMSService
	if redisClient != nil {
		smsService = service.NewSMSService(gatewayClient, messageRepo, redisClient)
	} else {
		smsService = service.NewSMSService(gatewayClient, messageRepo, nil)
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisClient)
	smsHandler := handlers.NewSMSHandler(smsService)
	dlrHandler := handlers.NewDLRHandler(smsService)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"x-api-key",
		},
	}))

	// Setup routes
	routes.RegisterRoutes(e, healthHandler, smsHandler, dlrHandler, cfg)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	// Shutdown HTTP server (with timeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	// Close database connection
	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	// Close Redis connection
	if redisClient != nil {
		logger.Infof("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Error closing Redis: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}

package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/nusasms/nusasms-go/environments"
	"github.com/nusasms/nusasms-go/handlers"
	"github.com/nusasms/nusasms-go/internal/middlewares"
)

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	smsHandler *handlers.SMSHandler,
	dlrHandler *handlers.DLRHandler,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)

	// Provider callbacks do not carry the service API key.
	e.POST("/webhooks/dlr", dlrHandler.ReceiveDLR)

	// API v1 base group, everything behind the service API key
	v1 := e.Group("/api/v1", middlewares.APIKeyAuth(cfg.Auth.APIKey))

	v1.POST("/sms", smsHandler.SendSMS)
	v1.GET("/sms", smsHandler.GetMessages)
	v1.GET("/sms/stats", smsHandler.GetStats)

	v1.GET("/balance", smsHandler.GetBalance)
	v1.POST("/hlr", smsHandler.HLRLookup)

	v1.POST("/otp", smsHandler.RequestOTP)
	v1.POST("/otp/verify", smsHandler.VerifyOTP)
}

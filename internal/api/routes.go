// Package api wires the checkout HTTP surface: route registration and
// dependency injection into internal/api/handlers. It holds no business
// logic of its own.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/MostafaRabia/payin-task/internal/api/handlers"
	"github.com/MostafaRabia/payin-task/internal/cache"
	"github.com/MostafaRabia/payin-task/internal/engine"
	zaplogrus "github.com/MostafaRabia/payin-task/internal/logging/zaplogrus"
	"github.com/MostafaRabia/payin-task/internal/middleware"
	"github.com/MostafaRabia/payin-task/internal/store"
)

// Dependencies bundles everything SetupRoutes needs to wire handlers.
// Redis and ProductCache may be nil: the product cache and rate limiter both
// degrade gracefully (always-miss / local in-memory) when Redis is absent.
type Dependencies struct {
	Store        *store.Store
	ProductCache *cache.ProductCache
	Holds        *engine.Holds
	Orders       *engine.Orders
	Webhooks     *engine.Webhooks
	DBHealth     handlers.DatabaseHealthChecker
	RedisHealth  handlers.RedisHealthChecker
	RateLimiter  *middleware.RateLimiter
	Logger       *zaplogrus.Logger
}

// SetupRoutes registers every checkout HTTP route on router and returns a
// cleanup function for graceful shutdown.
func SetupRoutes(router *gin.Engine, deps Dependencies) func() {
	logger := deps.Logger
	if logger == nil {
		logger = zaplogrus.New()
	}

	healthHandler := handlers.NewHealthHandler(deps.DBHealth, deps.RedisHealth)
	productHandler := handlers.NewProductHandler(deps.Store, deps.ProductCache, logger)
	holdHandler := handlers.NewHoldHandler(deps.Holds)
	orderHandler := handlers.NewOrderHandler(deps.Orders)
	webhookHandler := handlers.NewWebhookHandler(deps.Webhooks, logger)

	router.GET("/health", gin.WrapF(healthHandler.HealthCheck))
	router.GET("/ready", gin.WrapF(healthHandler.ReadinessCheck))
	router.GET("/live", gin.WrapF(healthHandler.LivenessCheck))

	api := router.Group("/api")

	api.GET("/products/:id", productHandler.Get)

	holds := api.Group("/holds")
	if deps.RateLimiter != nil {
		holds.Use(deps.RateLimiter.Middleware())
	}
	holds.POST("", holdHandler.Create)

	api.POST("/orders", orderHandler.Create)
	api.POST("/payments/webhook", webhookHandler.Handle)

	return func() {}
}

package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"olago/internal/handler"
	"olago/internal/identity"
	"olago/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RiderHandler  *handler.RiderHandler
	RideHandler   *handler.RideHandler
	DriverHandler *handler.DriverHandler
	WalletHandler *handler.WalletHandler
	Resolver      identity.Resolver
	// Idempotency is nil when Redis is disabled.
	Idempotency middleware.IdempotencyStore
	Logger      *zap.Logger
	NewRelicApp *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.NewRelicAttributes())
	}

	idempotent := middleware.IdempotencyMiddleware(deps.Idempotency)

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		v1.POST("/riders", idempotent, deps.RiderHandler.Register)

		authed := v1.Group("", middleware.AuthMiddleware(deps.Resolver), idempotent)
		{
			authed.GET("/me", deps.RiderHandler.Me)

			// Wallet routes.
			wallet := authed.Group("/wallet")
			{
				wallet.GET("", deps.WalletHandler.Get)
				wallet.POST("/topup", deps.WalletHandler.TopUp)
				wallet.POST("/donate", deps.WalletHandler.Donate)
			}

			// Driver routes.
			authed.GET("/drivers", deps.DriverHandler.GetAll)

			// Ride routes.
			rides := authed.Group("/rides")
			{
				rides.POST("", deps.RideHandler.CreateRide)
				rides.GET("", deps.RideHandler.GetAll)
				rides.GET("/:id", deps.RideHandler.GetRide)
				rides.GET("/:id/receipt", deps.RideHandler.Receipt)
				rides.POST("/:id/promo", deps.RideHandler.ApplyPromo)
				rides.POST("/:id/payment", deps.RideHandler.ConfirmPayment)
				rides.POST("/:id/complete", deps.RideHandler.CompleteRide)
				rides.POST("/:id/cancel", deps.RideHandler.CancelRide)
			}
		}
	}

	return router
}

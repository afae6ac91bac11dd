package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"stockwatch/config"
	"stockwatch/controllers"
	"stockwatch/middleware"
	"stockwatch/services/quotes"
	"stockwatch/services/stream"
)

// SetupUserRoutes sets up the user service API routes
func SetupUserRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config) {
	authController := controllers.NewAuthController(db, cfg.JWTSecret)
	watchlistController := controllers.NewWatchlistController(db)
	alertController := controllers.NewAlertController(db)

	// Auth routes
	router.POST("/register", middleware.LoginRateLimitMiddleware(), authController.Register)
	router.POST("/login", middleware.LoginRateLimitMiddleware(), authController.Login)

	// Authenticated routes
	authed := router.Group("/", middleware.AuthRequired(cfg.JWTSecret))
	{
		authed.GET("/tracked", watchlistController.GetTracked)
		authed.POST("/track", watchlistController.TrackSymbol)
		authed.DELETE("/track/:symbol", watchlistController.UntrackSymbol)

		authed.GET("/alerts", alertController.GetAlerts)
		authed.POST("/alerts", alertController.CreateAlert)
		authed.DELETE("/alerts/:id", alertController.DeleteAlert)
	}

	// Internal routes consumed by the alert service
	internal := router.Group("/", middleware.InternalAuth(cfg.InternalToken))
	{
		internal.PATCH("/alerts/:id/trigger", alertController.TriggerAlert)
		internal.GET("/internal/alerts/pending", alertController.GetPendingAlerts)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "user-service"})
	})
}

// SetupStockRoutes sets up the stock service API routes
func SetupStockRoutes(router *gin.Engine, client *quotes.Client, hub *stream.Hub) {
	quoteController := controllers.NewQuoteController(client)

	router.GET("/price/:symbol", quoteController.GetPrice)
	router.POST("/prices", quoteController.GetPrices)
	router.GET("/historical/:symbol", quoteController.GetHistorical)

	if hub != nil {
		router.GET("/ws/prices", hub.ServeWS)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "stock-service"})
	})
}

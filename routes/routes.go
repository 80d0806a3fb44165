package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trendlotto_backend/controllers"
	"trendlotto_backend/middleware"
	"trendlotto_backend/services/alerts"
	"trendlotto_backend/services/history"
	"trendlotto_backend/services/resolver"
	"trendlotto_backend/services/review"
	"trendlotto_backend/services/stream"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, service *review.Service, res *resolver.Resolver, store *history.Store, watcher *alerts.Watcher, hub *stream.Hub) {
	// Initialize controllers
	reviewController := controllers.NewReviewController(service, res, store)
	adminController := controllers.NewAdminController(service, store)
	watchlistController := controllers.NewWatchlistController(watcher, res)
	healthController := controllers.NewHealthController(service, hub)

	router.GET("/health", healthController.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Live score stream
	router.GET("/ws/reviews", func(c *gin.Context) {
		hub.HandleConnection(c.Writer, c.Request)
	})

	// API v1 group
	api := router.Group("/api/v1")
	{
		// Review routes, throttled per client IP
		reviews := api.Group("/review", middleware.ReviewRateLimit())
		{
			reviews.GET("/:ticker", reviewController.GetReview)
			reviews.POST("/:ticker/refresh", reviewController.RefreshReview)
			reviews.GET("/:ticker/series", reviewController.GetSeries)
			reviews.GET("/:ticker/history", reviewController.GetHistory)
		}

		// Watchlist routes
		watchlist := api.Group("/watchlist")
		{
			watchlist.GET("", watchlistController.GetWatchlist)
			watchlist.POST("", watchlistController.AddSymbol)
			watchlist.DELETE("/:ticker", watchlistController.RemoveSymbol)
		}

		// Admin routes
		admin := api.Group("/admin")
		{
			admin.GET("/cache/stats", adminController.CacheStats)
			admin.POST("/cache/version", adminController.BumpVersion)
			admin.DELETE("/cache/:ticker", adminController.InvalidateReview)
			admin.GET("/providers/health", adminController.ProviderHealth)
		}
	}
}

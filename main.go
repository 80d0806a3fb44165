package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"trendlotto_backend/config"
	"trendlotto_backend/middleware"
	"trendlotto_backend/models"
	"trendlotto_backend/routes"
	"trendlotto_backend/scheduler"
	"trendlotto_backend/services/alerts"
	"trendlotto_backend/services/history"
	"trendlotto_backend/services/indicators"
	"trendlotto_backend/services/notifier"
	"trendlotto_backend/services/providers"
	"trendlotto_backend/services/resolver"
	"trendlotto_backend/services/review"
	"trendlotto_backend/services/scorecache"
	"trendlotto_backend/services/scoring"
	"trendlotto_backend/services/stream"
)

func main() {
	log.Println("==============================================")
	log.Println("  Trend Lotto Invest API - Starting...")
	log.Println("==============================================")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Config load issue: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize the operational history database
	if err := history.InitStore(cfg.HistoryDBPath); err != nil {
		log.Printf("Warning: history store unavailable, continuing without persistence: %v", err)
	}

	// Wire the provider chain in configured priority order
	coordinator := providers.NewCoordinator(buildProviders(cfg), cfg.ProviderTimeout)
	if history.GlobalStore != nil {
		coordinator.SetIncidentSink(history.GlobalStore)
	}

	// Indicator and scoring configuration
	icfg := indicators.Config{
		MAShort:      cfg.MAShortWindow,
		MAMid:        cfg.MAMidWindow,
		MALong:       cfg.MALongWindow,
		RSIPeriod:    cfg.RSIPeriod,
		BandK:        cfg.BandK,
		VolumeWindow: cfg.VolumeWindow,
	}
	weights := scoring.Weights{
		Trend:      cfg.TrendWeight,
		Momentum:   cfg.MomentumWeight,
		Volatility: cfg.VolatilityWeight,
		Volume:     cfg.VolumeWeight,
	}
	engine := scoring.NewEngine(icfg, weights, scoring.Policy(cfg.InsufficientHistoryPolicy), cfg.VolumeElevated)

	// Result cache and review service
	cache := scorecache.New(cfg.CacheCapacity, cfg.CacheTTL, cfg.CacheNegativeTTL, cfg.DataVersion)
	review.InitService(cache, coordinator, icfg, engine, history.GlobalStore)

	// Ticker name resolution backed by the structured API listing
	resolver.InitResolver(cfg.PrimaryBaseURL, cfg.PrimaryAPIKey, nil)

	// Live score stream
	stream.InitHub()
	review.GlobalService.OnResult = func(result *models.ReviewResult, window models.Window) {
		stream.GlobalHub.Broadcast(result, window)
	}

	// Alert watcher, with Telegram delivery when configured
	var notify notifier.Notifier
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		notify = notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
	} else {
		log.Println("Telegram not configured, alerts will only be logged")
	}
	alerts.InitWatcher(review.GlobalService, notify, cfg.Watchlist, models.RSIKey(cfg.RSIPeriod), cfg.AlertFetchDelay)

	// Rate limiting for the review endpoints
	middleware.InitReviewRateLimiter()

	// Create Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	routes.SetupRoutes(router, review.GlobalService, resolver.GlobalResolver, history.GlobalStore, alerts.GlobalWatcher, stream.GlobalHub)

	// Create HTTP server with explicit timeouts
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		log.Println("==============================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Start background scheduler
	jobScheduler := scheduler.NewScheduler(cfg, review.GlobalService, alerts.GlobalWatcher)
	jobScheduler.Start()

	// Graceful shutdown
	gracefulShutdown(server, jobScheduler)
}

// buildProviders assembles the adapter chain from the configured priority
// list. Unknown names are logged and skipped.
func buildProviders(cfg *config.Config) []providers.Provider {
	var chain []providers.Provider
	for _, name := range cfg.ProviderPriority {
		switch name {
		case "krx":
			chain = append(chain, providers.NewKRXProvider(cfg.PrimaryBaseURL, cfg.PrimaryAPIKey))
		case "naver":
			chain = append(chain, providers.NewNaverProvider(cfg.FallbackBaseURL))
		default:
			log.Printf("Warning: unknown provider %q in PROVIDER_PRIORITY, skipping", name)
		}
	}
	if len(chain) == 0 {
		log.Println("Warning: no providers configured, falling back to defaults")
		chain = []providers.Provider{
			providers.NewKRXProvider(cfg.PrimaryBaseURL, cfg.PrimaryAPIKey),
			providers.NewNaverProvider(cfg.FallbackBaseURL),
		}
	}
	return chain
}

// corsMiddleware returns a CORS middleware handler
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger returns a request logging middleware
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for health checks to reduce noise
		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		// Only log errors or slow requests
		if c.Writer.Status() >= 400 || duration > 1*time.Second {
			log.Printf("%s %s %d %v", c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}

// gracefulShutdown handles graceful shutdown of the server
func gracefulShutdown(server *http.Server, jobScheduler *scheduler.Scheduler) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal %v, shutting down gracefully...", sig)

	// Stop scheduler first
	if jobScheduler != nil {
		jobScheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if history.GlobalStore != nil {
		history.GlobalStore.Close()
		log.Println("History store closed")
	}

	log.Println("Server shutdown completed")
}

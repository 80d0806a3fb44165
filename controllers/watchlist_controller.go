package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trendlotto_backend/services/alerts"
	"trendlotto_backend/services/resolver"
)

// WatchlistController manages the alert watchlist
type WatchlistController struct {
	watcher  *alerts.Watcher
	resolver *resolver.Resolver
}

// NewWatchlistController creates a new watchlist controller
func NewWatchlistController(watcher *alerts.Watcher, res *resolver.Resolver) *WatchlistController {
	return &WatchlistController{watcher: watcher, resolver: res}
}

// GetWatchlist lists watched symbols
// GET /api/v1/watchlist
func (wc *WatchlistController) GetWatchlist(c *gin.Context) {
	symbols := wc.watcher.Symbols()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(symbols),
		"symbols": symbols,
	})
}

// AddSymbol adds a ticker to the watchlist
// POST /api/v1/watchlist
func (wc *WatchlistController) AddSymbol(c *gin.Context) {
	var req struct {
		Ticker string `json:"ticker" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}
	code, err := wc.resolver.Resolve(c.Request.Context(), req.Ticker)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown ticker"})
		return
	}
	added := wc.watcher.AddSymbol(code)
	c.JSON(http.StatusOK, gin.H{
		"symbol": code,
		"added":  added,
	})
}

// RemoveSymbol drops a ticker from the watchlist
// DELETE /api/v1/watchlist/:ticker
func (wc *WatchlistController) RemoveSymbol(c *gin.Context) {
	code, err := wc.resolver.Resolve(c.Request.Context(), c.Param("ticker"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown ticker"})
		return
	}
	removed := wc.watcher.RemoveSymbol(code)
	c.JSON(http.StatusOK, gin.H{
		"symbol":  code,
		"removed": removed,
	})
}

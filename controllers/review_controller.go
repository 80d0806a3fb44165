package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trendlotto_backend/models"
	"trendlotto_backend/services/history"
	"trendlotto_backend/services/resolver"
	"trendlotto_backend/services/review"
)

// ReviewController handles technical review requests
type ReviewController struct {
	service  *review.Service
	resolver *resolver.Resolver
	store    *history.Store
}

// NewReviewController creates a new review controller
func NewReviewController(service *review.Service, res *resolver.Resolver, store *history.Store) *ReviewController {
	return &ReviewController{service: service, resolver: res, store: store}
}

// resolveRequest parses the ticker and window out of a request. It writes
// the error response itself and returns ok=false on failure.
func (rc *ReviewController) resolveRequest(c *gin.Context) (string, models.Window, bool) {
	window, err := models.ParseWindow(c.DefaultQuery("window", models.Window6M.String()))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", "", false
	}

	code, err := rc.resolver.Resolve(c.Request.Context(), c.Param("ticker"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown ticker"})
		} else {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Ticker listing unavailable"})
		}
		return "", "", false
	}
	return code, window, true
}

// GetReview returns the scored review for a ticker
// GET /api/v1/review/:ticker?window=6M
func (rc *ReviewController) GetReview(c *gin.Context) {
	code, window, ok := rc.resolveRequest(c)
	if !ok {
		return
	}

	result, err := rc.service.Get(c.Request.Context(), code, window)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute review"})
		return
	}
	if result.Status == models.ReviewUnavailable {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": result.Status,
			"reason": result.Reason,
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// RefreshReview forces a recompute, bypassing the cache
// POST /api/v1/review/:ticker/refresh
func (rc *ReviewController) RefreshReview(c *gin.Context) {
	code, window, ok := rc.resolveRequest(c)
	if !ok {
		return
	}

	result, err := rc.service.Refresh(c.Request.Context(), code, window)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to recompute review"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetSeries returns the raw canonical price series for charting
// GET /api/v1/review/:ticker/series?window=6M
func (rc *ReviewController) GetSeries(c *gin.Context) {
	code, window, ok := rc.resolveRequest(c)
	if !ok {
		return
	}

	series, source, err := rc.service.Series(c.Request.Context(), code, window)
	if err != nil {
		if models.IsDataUnavailable(err) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No source could serve this ticker"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch series"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol": series.Symbol,
		"source": source,
		"points": series.Points,
	})
}

// GetHistory returns previously persisted scores for a ticker
// GET /api/v1/review/:ticker/history?limit=50
func (rc *ReviewController) GetHistory(c *gin.Context) {
	code, err := rc.resolver.Resolve(c.Request.Context(), c.Param("ticker"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown ticker"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := rc.store.RecentScores(code, limit)
	if err != nil {
		if errors.Is(err, history.ErrDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "History persistence is disabled"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":  code,
		"count":   len(records),
		"history": records,
	})
}

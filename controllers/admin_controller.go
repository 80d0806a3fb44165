package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trendlotto_backend/models"
	"trendlotto_backend/services/history"
	"trendlotto_backend/services/review"
)

// AdminController exposes cache and source maintenance operations
type AdminController struct {
	service *review.Service
	store   *history.Store
}

// NewAdminController creates a new admin controller
func NewAdminController(service *review.Service, store *history.Store) *AdminController {
	return &AdminController{service: service, store: store}
}

// InvalidateReview drops one cached review
// DELETE /api/v1/admin/cache/:ticker?window=6M
func (ac *AdminController) InvalidateReview(c *gin.Context) {
	window, err := models.ParseWindow(c.DefaultQuery("window", models.Window6M.String()))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	existed := ac.service.Invalidate(c.Param("ticker"), window)
	c.JSON(http.StatusOK, gin.H{
		"invalidated": existed,
	})
}

// BumpVersion rotates the data version, invalidating every cached key
// POST /api/v1/admin/cache/version
func (ac *AdminController) BumpVersion(c *gin.Context) {
	var req struct {
		Version string `json:"version" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "version is required"})
		return
	}
	ac.service.BumpVersion(req.Version)
	c.JSON(http.StatusOK, gin.H{
		"message": "Cache version rotated",
		"version": req.Version,
	})
}

// CacheStats reports the current cache footprint
// GET /api/v1/admin/cache/stats
func (ac *AdminController) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"entries": ac.service.Cache().Len(),
	})
}

// ProviderHealth summarizes recent source incidents
// GET /api/v1/admin/providers/health?hours=24
func (ac *AdminController) ProviderHealth(c *gin.Context) {
	hours := 24
	if h := c.Query("hours"); h != "" {
		if parsed, err := time.ParseDuration(h + "h"); err == nil {
			hours = int(parsed.Hours())
		}
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	counts, err := ac.store.IncidentCounts(since)
	if err != nil {
		if errors.Is(err, history.ErrDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "History persistence is disabled"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate incidents"})
		return
	}
	incidents, err := ac.store.RecentIncidents(c.Query("provider"), since, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load incidents"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"since":     since.UTC(),
		"counts":    counts,
		"incidents": incidents,
	})
}

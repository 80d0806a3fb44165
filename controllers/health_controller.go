package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trendlotto_backend/services/review"
	"trendlotto_backend/services/stream"
)

var startedAt = time.Now()

// HealthController reports service liveness
type HealthController struct {
	service *review.Service
	hub     *stream.Hub
}

// NewHealthController creates a new health controller
func NewHealthController(service *review.Service, hub *stream.Hub) *HealthController {
	return &HealthController{service: service, hub: hub}
}

// Health returns basic liveness information
// GET /health
func (hc *HealthController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": int(time.Since(startedAt).Seconds()),
		"cache_entries":  hc.service.Cache().Len(),
		"stream_clients": hc.hub.ClientCount(),
	})
}

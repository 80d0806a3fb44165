package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// requestWindow tracks requests from one IP inside the current window.
type requestWindow struct {
	Count   int
	FirstAt time.Time
}

// RateLimiter applies a fixed-window per-IP request limit. Review
// computations are expensive enough that an unthrottled client could
// evict the working set of the result cache.
type RateLimiter struct {
	mu           sync.RWMutex
	windows      map[string]*requestWindow
	maxRequests  int
	windowPeriod time.Duration
}

// Global review rate limiter instance
var reviewRateLimiter *RateLimiter

// InitReviewRateLimiter initializes the global review rate limiter.
func InitReviewRateLimiter() {
	reviewRateLimiter = NewRateLimiter(60, time.Minute)
	// Start cleanup goroutine
	go reviewRateLimiter.startCleanup()
}

// NewRateLimiter creates a rate limiter allowing maxRequests per
// windowPeriod for each client IP.
func NewRateLimiter(maxRequests int, windowPeriod time.Duration) *RateLimiter {
	return &RateLimiter{
		windows:      make(map[string]*requestWindow),
		maxRequests:  maxRequests,
		windowPeriod: windowPeriod,
	}
}

// startCleanup periodically removes expired windows.
func (rl *RateLimiter) startCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	for range ticker.C {
		rl.cleanup()
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, w := range rl.windows {
		if now.Sub(w.FirstAt) > rl.windowPeriod {
			delete(rl.windows, ip)
		}
	}
}

// Allow records one request from ip and reports whether it is within the
// limit, along with the remaining quota and the time until the window
// resets.
func (rl *RateLimiter) Allow(ip string) (bool, int, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[ip]
	if !ok || now.Sub(w.FirstAt) > rl.windowPeriod {
		rl.windows[ip] = &requestWindow{Count: 1, FirstAt: now}
		return true, rl.maxRequests - 1, rl.windowPeriod
	}

	w.Count++
	remaining := rl.maxRequests - w.Count
	retryAfter := rl.windowPeriod - now.Sub(w.FirstAt)
	if remaining < 0 {
		return false, 0, retryAfter
	}
	return true, remaining, retryAfter
}

// ReviewRateLimit throttles the review endpoints per client IP.
func ReviewRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if reviewRateLimiter == nil {
			c.Next()
			return
		}
		ok, remaining, retryAfter := reviewRateLimiter.Allow(c.ClientIP())
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		if !ok {
			c.Header("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, slow down",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

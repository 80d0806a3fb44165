// Package scheduler provides scheduled job management for the backend:
// the daily precompute of watchlist reviews after market close, periodic
// watchlist alert sweeps and expired cache entry purging.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"trendlotto_backend/config"
	"trendlotto_backend/models"
	"trendlotto_backend/services/alerts"
	"trendlotto_backend/services/review"
)

// precomputeWindows are the windows warmed for every watched symbol.
var precomputeWindows = []models.Window{
	models.Window1M,
	models.Window3M,
	models.Window6M,
	models.Window1Y,
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron    *gocron.Scheduler
	cfg     *config.Config
	service *review.Service
	watcher *alerts.Watcher
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, service *review.Service, watcher *alerts.Watcher) *Scheduler {
	return &Scheduler{
		cron:    gocron.NewScheduler(time.UTC),
		cfg:     cfg,
		service: service,
		watcher: watcher,
	}
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Warm the watchlist reviews daily after market close
	s.cron.Every(1).Day().At(s.cfg.PrecomputeAt).Do(func() {
		s.precomputeWatchlist()
	})

	// Sweep the watchlist for alert conditions
	s.cron.Every(s.cfg.AlertSweepInterval).Do(func() {
		s.sweepAlerts()
	})

	// Drop expired cache entries hourly
	s.cron.Every(1).Hour().Do(func() {
		purged := s.service.Cache().PurgeExpired()
		if purged > 0 {
			log.Printf("Purged %d expired cache entries", purged)
		}
	})

	s.cron.StartAsync()
	log.Println("Scheduler started")
}

// Stop stops all scheduled jobs
func (s *Scheduler) Stop() {
	log.Println("Stopping scheduler...")
	s.cron.Stop()
}

// precomputeWatchlist recomputes every watched symbol across all windows
// so evening traffic lands on a fresh cache.
func (s *Scheduler) precomputeWatchlist() {
	symbols := s.watcher.Symbols()
	if len(symbols) == 0 {
		return
	}
	log.Printf("Precomputing reviews for %d symbols", len(symbols))
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	s.service.Warm(ctx, symbols, precomputeWindows, s.cfg.AlertFetchDelay)

	log.Printf("Precompute finished in %s", time.Since(start).Round(time.Second))
}

// sweepAlerts runs one watchlist alert pass.
func (s *Scheduler) sweepAlerts() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	s.watcher.Sweep(ctx)
}

// Package review orchestrates a full technical review: resolve the price
// series through the provider chain, compute indicators, score them and
// memoize the outcome.
package review

import (
	"context"
	"fmt"
	"log"
	"time"

	"trendlotto_backend/metrics"
	"trendlotto_backend/models"
	"trendlotto_backend/services/history"
	"trendlotto_backend/services/indicators"
	"trendlotto_backend/services/providers"
	"trendlotto_backend/services/scorecache"
	"trendlotto_backend/services/scoring"
)

// Service runs reviews end to end. All fields are set once at init.
type Service struct {
	cache       *scorecache.Cache
	coordinator *providers.Coordinator
	icfg        indicators.Config
	engine      *scoring.Engine
	store       *history.Store

	// OnResult is invoked after every fresh (non-cached) successful
	// computation, used to feed the live score stream.
	OnResult func(result *models.ReviewResult, window models.Window)
}

// Global review service
var GlobalService *Service

// InitService wires the global review service.
func InitService(cache *scorecache.Cache, coordinator *providers.Coordinator, icfg indicators.Config, engine *scoring.Engine, store *history.Store) {
	GlobalService = NewService(cache, coordinator, icfg, engine, store)
}

// NewService creates a review service. store may be nil when history
// persistence is disabled.
func NewService(cache *scorecache.Cache, coordinator *providers.Coordinator, icfg indicators.Config, engine *scoring.Engine, store *history.Store) *Service {
	return &Service{
		cache:       cache,
		coordinator: coordinator,
		icfg:        icfg,
		engine:      engine,
		store:       store,
	}
}

// Get returns the review for (symbol, window), computing it on a cache
// miss. Identical concurrent requests share one computation.
func (s *Service) Get(ctx context.Context, symbol string, window models.Window) (*models.ReviewResult, error) {
	return s.cache.GetOrCompute(ctx, symbol, window, func(ctx context.Context) (*models.ReviewResult, error) {
		return s.compute(ctx, symbol, window)
	})
}

// Refresh drops any cached entry and recomputes.
func (s *Service) Refresh(ctx context.Context, symbol string, window models.Window) (*models.ReviewResult, error) {
	s.cache.Invalidate(symbol, window)
	return s.Get(ctx, symbol, window)
}

// Invalidate drops the cached entry for one key.
func (s *Service) Invalidate(symbol string, window models.Window) bool {
	return s.cache.Invalidate(symbol, window)
}

// BumpVersion invalidates the entire cache by rotating the data version.
func (s *Service) BumpVersion(version string) {
	s.cache.BumpVersion(version)
}

// Cache exposes the underlying result cache.
func (s *Service) Cache() *scorecache.Cache {
	return s.cache
}

// Series fetches the canonical price series without scoring, for raw
// chart consumers. Results are not cached.
func (s *Service) Series(ctx context.Context, symbol string, window models.Window) (*models.CanonicalSeries, models.SourceProvider, error) {
	return s.coordinator.Resolve(ctx, symbol, window)
}

func (s *Service) compute(ctx context.Context, symbol string, window models.Window) (*models.ReviewResult, error) {
	start := time.Now()
	defer func() {
		metrics.ComputeDuration.Observe(time.Since(start).Seconds())
	}()

	series, source, err := s.coordinator.Resolve(ctx, symbol, window)
	if err != nil {
		if models.IsDataUnavailable(err) {
			log.Printf("Warning: review for %s %s unavailable: %v", symbol, window, err)
			return &models.ReviewResult{
				Status: models.ReviewUnavailable,
				Reason: fmt.Sprintf("no source could serve %s: %s", symbol, models.ErrorKind(err)),
			}, nil
		}
		return nil, err
	}

	set := indicators.Compute(series, s.icfg)
	result := s.engine.Score(set, series.Latest())
	result.Symbol = series.Symbol
	result.Window = window
	result.SourceProvider = source

	status := models.ReviewOK
	reason := ""
	if source == models.ProviderFallback {
		status = models.ReviewDegraded
		reason = "served from fallback source"
	}
	if len(result.MissingComponents) > 0 {
		status = models.ReviewDegraded
		if reason != "" {
			reason += "; "
		}
		reason += fmt.Sprintf("components unavailable: %v", result.MissingComponents)
	}
	if result.Withheld {
		status = models.ReviewDegraded
	}

	review := &models.ReviewResult{
		Status:     status,
		Score:      result,
		Indicators: set,
		Reason:     reason,
	}

	if s.store != nil {
		s.store.RecordScore(result, window)
	}
	if s.OnResult != nil {
		s.OnResult(review, window)
	}
	return review, nil
}

// Warm precomputes every (symbol, window) pair so user requests hit a
// fresh cache. Used by the scheduled precompute job.
func (s *Service) Warm(ctx context.Context, symbols []string, windows []models.Window, delay time.Duration) {
	for _, symbol := range symbols {
		for _, window := range windows {
			if ctx.Err() != nil {
				return
			}
			if _, err := s.Refresh(ctx, symbol, window); err != nil {
				log.Printf("Warning: precompute failed for %s %s: %v", symbol, window, err)
			}
			if delay > 0 {
				time.Sleep(delay)
			}
		}
	}
}

package providers

import (
	"context"
	"errors"
	"log"
	"time"

	"trendlotto_backend/metrics"
	"trendlotto_backend/models"
)

// IncidentSink receives provider failures for health monitoring.
type IncidentSink interface {
	RecordIncident(provider, kind, detail string)
}

// Coordinator orchestrates adapter selection and whole-series fallback.
// Adapters are tried in a fixed priority order with one attempt each;
// same-adapter retries belong to the background warm-up job, never to the
// request path. Partial data from two providers is never blended: either
// one adapter serves the whole series or the next adapter is tried.
type Coordinator struct {
	providers []Provider
	timeout   time.Duration
	incidents IncidentSink
}

// NewCoordinator builds a coordinator over adapters in priority order.
func NewCoordinator(providers []Provider, timeout time.Duration) *Coordinator {
	return &Coordinator{providers: providers, timeout: timeout}
}

// SetIncidentSink attaches an optional provider-health recorder.
func (c *Coordinator) SetIncidentSink(sink IncidentSink) {
	c.incidents = sink
}

// Providers exposes the configured adapter order.
func (c *Coordinator) Providers() []Provider {
	return c.providers
}

// Resolve fetches the canonical series for (symbol, window), tagging the
// result with the provider tier that satisfied it. When every adapter
// fails the resolution fails with DataUnavailableError carrying the last
// underlying cause.
func (c *Coordinator) Resolve(ctx context.Context, symbol string, window models.Window) (*models.CanonicalSeries, models.SourceProvider, error) {
	var lastErr error
	for i, provider := range c.providers {
		metrics.FetchAttempts.WithLabelValues(provider.Name()).Inc()

		fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
		series, err := provider.Fetch(fetchCtx, symbol, window)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				err = models.NewFetchError(provider.Name(), models.ErrUnreachable, err)
			}
			kind := models.ErrorKind(err)
			metrics.FetchFailures.WithLabelValues(provider.Name(), kind).Inc()
			if c.incidents != nil {
				c.incidents.RecordIncident(provider.Name(), kind, err.Error())
			}
			log.Printf("[WARN] provider %s failed for %s/%s (%s): %v", provider.Name(), symbol, window, kind, err)
			lastErr = err
			continue
		}

		source := models.ProviderPrimary
		if i > 0 {
			source = models.ProviderFallback
			metrics.FallbacksServed.Inc()
		}
		return series, source, nil
	}
	return nil, "", &models.DataUnavailableError{Symbol: symbol, LastErr: lastErr}
}

// Package providers contains the quote source adapters and the
// coordinator that arbitrates between them.
package providers

import (
	"context"

	"trendlotto_backend/models"
)

// Provider is the uniform contract every quote source implements.
// Adapters translate provider-native formats into a CanonicalSeries and
// classify their own failures into the models error taxonomy. They never
// retry internally; retry and fallback timing belong to the Coordinator.
type Provider interface {
	Name() string
	// ValidateSymbol checks the symbol against the provider's grammar.
	ValidateSymbol(symbol string) error
	// Fetch loads the daily series covering the window. The context bounds
	// the whole call including body reads.
	Fetch(ctx context.Context, symbol string, window models.Window) (*models.CanonicalSeries, error)
}

package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Window is the lookback range a caller may request.
type Window string

const (
	Window1M Window = "1M"
	Window3M Window = "3M"
	Window6M Window = "6M"
	Window1Y Window = "1Y"
)

// MinSeriesPoints is the minimum number of points a series must carry
// before any indicator computation is attempted.
const MinSeriesPoints = 20

func (w Window) String() string { return string(w) }

// ParseWindow validates a window string from a request.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case Window1M, Window3M, Window6M, Window1Y:
		return Window(s), nil
	}
	return "", fmt.Errorf("invalid window %q (allowed: 1M, 3M, 6M, 1Y)", s)
}

// Months returns the calendar lookback for the window.
func (w Window) Months() int {
	switch w {
	case Window1M:
		return 1
	case Window3M:
		return 3
	case Window6M:
		return 6
	default:
		return 12
	}
}

// PricePoint is one daily OHLCV bar. Date is a UTC trading date.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// MarshalJSON fixes price fields to two decimal places, matching the
// indicator sequences.
func (p PricePoint) MarshalJSON() ([]byte, error) {
	type alias struct {
		Date   time.Time       `json:"date"`
		Open   decimal.Decimal `json:"open"`
		High   decimal.Decimal `json:"high"`
		Low    decimal.Decimal `json:"low"`
		Close  decimal.Decimal `json:"close"`
		Volume decimal.Decimal `json:"volume"`
	}
	return json.Marshal(alias{
		Date:   p.Date,
		Open:   decimal.NewFromFloat(p.Open).Round(2),
		High:   decimal.NewFromFloat(p.High).Round(2),
		Low:    decimal.NewFromFloat(p.Low).Round(2),
		Close:  decimal.NewFromFloat(p.Close).Round(2),
		Volume: decimal.NewFromFloat(p.Volume).Round(2),
	})
}

// CanonicalSeries is the provider-agnostic price history for one symbol.
// Points are ordered by strictly increasing date.
type CanonicalSeries struct {
	Symbol    string       `json:"symbol"`
	Points    []PricePoint `json:"points"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// Validate checks the ordering and value invariants of the series.
// A series shorter than MinSeriesPoints is rejected as insufficient.
func (s *CanonicalSeries) Validate() error {
	if len(s.Points) < MinSeriesPoints {
		return fmt.Errorf("%w: %d points, need at least %d", ErrInsufficientHistory, len(s.Points), MinSeriesPoints)
	}
	for i, p := range s.Points {
		if p.Open < 0 || p.High < 0 || p.Low < 0 || p.Close < 0 || p.Volume < 0 {
			return fmt.Errorf("%w: negative value at index %d", ErrMalformedResponse, i)
		}
		if i > 0 && !s.Points[i-1].Date.Before(p.Date) {
			return fmt.Errorf("%w: dates not strictly increasing at index %d", ErrMalformedResponse, i)
		}
	}
	return nil
}

// Latest returns the most recent point in the series.
func (s *CanonicalSeries) Latest() PricePoint {
	return s.Points[len(s.Points)-1]
}

// Closes extracts the close column.
func (s *CanonicalSeries) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Volumes extracts the volume column.
func (s *CanonicalSeries) Volumes() []float64 {
	volumes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		volumes[i] = p.Volume
	}
	return volumes
}

// Clone returns a deep copy so downstream stages never share backing arrays.
func (s *CanonicalSeries) Clone() *CanonicalSeries {
	points := make([]PricePoint, len(s.Points))
	copy(points, s.Points)
	return &CanonicalSeries{Symbol: s.Symbol, Points: points, FetchedAt: s.FetchedAt}
}

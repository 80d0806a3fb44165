package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Rounded decimal fields serialize as bare JSON numbers, matching
	// the indicator sequences.
	decimal.MarshalJSONWithoutQuotes = true
}

// SourceProvider tags which adapter satisfied a resolution.
type SourceProvider string

const (
	ProviderPrimary  SourceProvider = "PRIMARY"
	ProviderFallback SourceProvider = "FALLBACK"
)

// ComponentScore is one sub-signal's contribution to the composite.
// Score is the normalized sub-score on [0,100] before weighting;
// Contribution is Score*Weight and the contributions sum to the composite
// within rounding.
type ComponentScore struct {
	Name         string  `json:"name"`
	Score        float64 `json:"score"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
	Commentary   string  `json:"commentary"`
}

// MarshalJSON fixes numeric fields to two decimal places.
func (c ComponentScore) MarshalJSON() ([]byte, error) {
	type alias struct {
		Name         string          `json:"name"`
		Score        decimal.Decimal `json:"score"`
		Weight       decimal.Decimal `json:"weight"`
		Contribution decimal.Decimal `json:"contribution"`
		Commentary   string          `json:"commentary"`
	}
	return json.Marshal(alias{
		Name:         c.Name,
		Score:        decimal.NewFromFloat(c.Score).Round(2),
		Weight:       decimal.NewFromFloat(c.Weight).Round(2),
		Contribution: decimal.NewFromFloat(c.Contribution).Round(2),
		Commentary:   c.Commentary,
	})
}

// ScoreResult is the composite output of the scoring engine.
type ScoreResult struct {
	Symbol         string           `json:"symbol"`
	Window         Window           `json:"window"`
	CompositeScore int              `json:"composite_score"` // 0..100
	Phase          string           `json:"phase"`
	Breakdown      []ComponentScore `json:"component_breakdown"`
	// Withheld is set when the insufficient-history policy is "withhold"
	// and no composite could be produced; CompositeScore is meaningless then.
	Withheld bool `json:"withheld,omitempty"`
	// MissingComponents lists sub-signals skipped for lack of warm-up data.
	MissingComponents []string       `json:"missing_components,omitempty"`
	LatestClose       float64        `json:"latest_close"`
	GeneratedAt       time.Time      `json:"generated_at"`
	SourceProvider    SourceProvider `json:"source_provider"`
}

// MarshalJSON fixes LatestClose to two decimal places, matching the
// component breakdown and indicator sequences.
func (r ScoreResult) MarshalJSON() ([]byte, error) {
	type alias ScoreResult
	return json.Marshal(struct {
		alias
		LatestClose decimal.Decimal `json:"latest_close"`
	}{
		alias:       alias(r),
		LatestClose: decimal.NewFromFloat(r.LatestClose).Round(2),
	})
}

// ReviewStatus is the tagged outcome variant the presentation layer
// switches on. It replaces ad hoc string checks.
type ReviewStatus string

const (
	ReviewOK          ReviewStatus = "ok"
	ReviewDegraded    ReviewStatus = "degraded"    // fallback provider served the data
	ReviewUnavailable ReviewStatus = "unavailable" // every adapter exhausted
)

// ReviewResult is the full response for one (ticker, window) request.
type ReviewResult struct {
	Status     ReviewStatus  `json:"status"`
	Score      *ScoreResult  `json:"score,omitempty"`
	Indicators *IndicatorSet `json:"indicators,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

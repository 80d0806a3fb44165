// Package scoring combines indicator outputs into a single bounded
// composite score with an explainable per-component breakdown.
package scoring

import (
	"fmt"
	"math"
	"time"

	"trendlotto_backend/models"
	"trendlotto_backend/services/indicators"
)

// Policy decides what happens when some sub-scores cannot be computed
// because the series did not clear their warm-up windows.
type Policy string

const (
	// PolicyPartial renormalizes weights over the computable sub-scores.
	PolicyPartial Policy = "partial"
	// PolicyWithhold produces no composite, only an explicit marker.
	PolicyWithhold Policy = "withhold"
)

// Weights assigns each sub-signal its share of the composite.
type Weights struct {
	Trend      float64
	Momentum   float64
	Volatility float64
	Volume     float64
}

// DefaultWeights favor trend structure over short-term noise.
func DefaultWeights() Weights {
	return Weights{Trend: 0.40, Momentum: 0.30, Volatility: 0.20, Volume: 0.10}
}

// Engine scores an IndicatorSet. It is stateless and safe for concurrent use.
type Engine struct {
	icfg           indicators.Config
	weights        Weights
	policy         Policy
	volumeElevated float64
}

// NewEngine creates a scoring engine for the given indicator configuration.
func NewEngine(icfg indicators.Config, weights Weights, policy Policy, volumeElevated float64) *Engine {
	if volumeElevated <= 0 {
		volumeElevated = 1.5
	}
	return &Engine{icfg: icfg, weights: weights, policy: policy, volumeElevated: volumeElevated}
}

type componentFn struct {
	name   string
	weight float64
	eval   func(set *models.IndicatorSet, latest models.PricePoint) (score float64, commentary string, ok bool)
}

// Score derives the composite result for one symbol. Sub-scores are each
// normalized to [0,100] before weighting and the weighted contributions
// are retained in the breakdown so the consuming surface can explain
// why a score was produced.
func (e *Engine) Score(set *models.IndicatorSet, latest models.PricePoint) *models.ScoreResult {
	components := []componentFn{
		{"trend", e.weights.Trend, e.scoreTrend},
		{"momentum", e.weights.Momentum, e.scoreMomentum},
		{"volatility", e.weights.Volatility, e.scoreVolatility},
		{"volume", e.weights.Volume, e.scoreVolume},
	}

	var available []componentFn
	var scores []float64
	var commentaries []string
	var missing []string
	for _, c := range components {
		score, commentary, ok := c.eval(set, latest)
		if !ok {
			missing = append(missing, c.name)
			continue
		}
		available = append(available, c)
		scores = append(scores, score)
		commentaries = append(commentaries, commentary)
	}

	result := &models.ScoreResult{
		GeneratedAt:       time.Now().UTC(),
		MissingComponents: missing,
		LatestClose:       latest.Close,
	}

	if len(available) == 0 || (e.policy == PolicyWithhold && len(missing) > 0) {
		result.Withheld = true
		return result
	}

	// Renormalize so the contributions of the available components span
	// the full [0,100] range even when some signals are missing.
	var weightSum float64
	for _, c := range available {
		weightSum += c.weight
	}

	var composite float64
	breakdown := make([]models.ComponentScore, 0, len(available))
	for i, c := range available {
		effWeight := c.weight / weightSum
		contribution := scores[i] * effWeight
		composite += contribution
		breakdown = append(breakdown, models.ComponentScore{
			Name:         c.name,
			Score:        scores[i],
			Weight:       effWeight,
			Contribution: contribution,
			Commentary:   commentaries[i],
		})
	}

	result.CompositeScore = clampScore(composite)
	result.Breakdown = breakdown
	result.Phase = phaseFor(result.CompositeScore)
	return result
}

// scoreTrend rates the moving-average stack alignment.
func (e *Engine) scoreTrend(set *models.IndicatorSet, latest models.PricePoint) (float64, string, bool) {
	maShort, okS := set.LastValue(models.MAKey(e.icfg.MAShort))
	maMid, okM := set.LastValue(models.MAKey(e.icfg.MAMid))
	maLong, okL := set.LastValue(models.MAKey(e.icfg.MALong))
	if !okS || !okM || !okL {
		return 0, "", false
	}
	switch {
	case maShort > maMid && maMid > maLong:
		return 85, "bullish stack: short MA above mid above long", true
	case maShort < maMid && maMid < maLong:
		return 15, "bearish stack: short MA below mid below long", true
	case latest.Close > maMid:
		return 60, "price holding above the mid moving average", true
	case latest.Close < maMid:
		return 40, "price below the mid moving average", true
	default:
		return 50, "moving averages intertwined", true
	}
}

// scoreMomentum rates where the RSI sits in its bands. An oversold
// reading scores high because the composite measures entry attractiveness.
func (e *Engine) scoreMomentum(set *models.IndicatorSet, _ models.PricePoint) (float64, string, bool) {
	rsi, ok := set.LastValue(models.RSIKey(e.icfg.RSIPeriod))
	if !ok {
		return 0, "", false
	}
	switch {
	case rsi < 30:
		return 80, fmt.Sprintf("RSI %.1f oversold, rebound setup", rsi), true
	case rsi > 70:
		return 20, fmt.Sprintf("RSI %.1f overbought, pullback risk", rsi), true
	case rsi >= 40 && rsi <= 60:
		return 60, fmt.Sprintf("RSI %.1f in the stable band", rsi), true
	default:
		return 50, fmt.Sprintf("RSI %.1f drifting", rsi), true
	}
}

// scoreVolatility rates the close against the Bollinger bands, including
// the extreme bands one sigma wider.
func (e *Engine) scoreVolatility(set *models.IndicatorSet, latest models.PricePoint) (float64, string, bool) {
	upper, okU := set.LastValue(models.IndBollingerUpper)
	lower, okL := set.LastValue(models.IndBollingerLower)
	upperExt, okUE := set.LastValue(models.IndBollingerUpperExt)
	lowerExt, okLE := set.LastValue(models.IndBollingerLowerExt)
	if !okU || !okL || !okUE || !okLE {
		return 0, "", false
	}
	maShort, okS := set.LastValue(models.MAKey(e.icfg.MAShort))

	price := latest.Close
	switch {
	case price < lowerExt:
		return 95, "close below the extreme lower band, capitulation zone", true
	case price < lower:
		return 75, "close below the lower band, stretched to the downside", true
	case price > upperExt:
		return 5, "close above the extreme upper band, blow-off zone", true
	case price > upper:
		return 25, "close above the upper band, overheated", true
	case okS && price > maShort:
		return 60, "close supported by the short moving average", true
	default:
		return 50, "close inside the bands", true
	}
}

// scoreVolume rates participation against the trailing average volume.
func (e *Engine) scoreVolume(set *models.IndicatorSet, _ models.PricePoint) (float64, string, bool) {
	ratio, ok := set.LastValue(models.IndVolumeTrend)
	if !ok {
		return 0, "", false
	}
	switch {
	case ratio >= e.volumeElevated:
		return 70, fmt.Sprintf("volume %.2fx trailing average, elevated participation", ratio), true
	case ratio < 0.5:
		return 40, fmt.Sprintf("volume %.2fx trailing average, thin participation", ratio), true
	default:
		return 50, fmt.Sprintf("volume %.2fx trailing average", ratio), true
	}
}

func clampScore(v float64) int {
	rounded := int(math.Round(v))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// phaseFor maps a composite to the scenario text the review page shows.
func phaseFor(score int) string {
	switch {
	case score >= 80:
		return "deeply oversold, technical rebound zone"
	case score >= 60:
		return "uptrend, hold or scale in"
	case score >= 40:
		return "neutral range, wait and see"
	case score >= 20:
		return "downtrend, hold off new entries"
	default:
		return "overheated, take-profit zone"
	}
}

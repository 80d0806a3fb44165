// Package indicators computes technical indicators over a canonical price
// series. Every function is pure: same input series, bit-identical output.
// The package never fetches and never caches.
package indicators

import (
	"math"

	"trendlotto_backend/models"
)

// Config holds the indicator window sizes.
type Config struct {
	MAShort      int
	MAMid        int // also the Bollinger and volume window base
	MALong       int
	RSIPeriod    int
	BandK        float64 // Bollinger band width in standard deviations
	VolumeWindow int
}

// DefaultConfig mirrors the classic 5/20/60-day dashboard setup.
func DefaultConfig() Config {
	return Config{
		MAShort:      5,
		MAMid:        20,
		MALong:       60,
		RSIPeriod:    14,
		BandK:        2.0,
		VolumeWindow: 20,
	}
}

// Compute calculates all indicator sequences for the series. Each sequence
// is aligned index-for-index with series.Points; entries inside an
// indicator's warm-up window are NaN.
func Compute(series *models.CanonicalSeries, cfg Config) *models.IndicatorSet {
	closes := series.Closes()
	volumes := series.Volumes()

	maMid := MovingAverage(closes, cfg.MAMid)
	upper, lower := Bollinger(closes, maMid, cfg.MAMid, cfg.BandK)
	// Extreme bands one sigma wider, used for breakout detection.
	upperExt, lowerExt := Bollinger(closes, maMid, cfg.MAMid, cfg.BandK+1)

	set := &models.IndicatorSet{
		Length: len(closes),
		Series: map[string]models.Series{
			models.MAKey(cfg.MAShort):    MovingAverage(closes, cfg.MAShort),
			models.MAKey(cfg.MAMid):      maMid,
			models.MAKey(cfg.MALong):     MovingAverage(closes, cfg.MALong),
			models.IndBollingerUpper:     upper,
			models.IndBollingerLower:     lower,
			models.IndBollingerUpperExt:  upperExt,
			models.IndBollingerLowerExt:  lowerExt,
			models.RSIKey(cfg.RSIPeriod): RSI(closes, cfg.RSIPeriod),
			models.IndVolumeTrend:        VolumeTrend(volumes, cfg.VolumeWindow),
		},
	}
	return set
}

// MovingAverage returns the arithmetic mean of the trailing window points.
// Undefined for indices below window-1.
func MovingAverage(values []float64, window int) models.Series {
	out := nanSlice(len(values))
	if window <= 0 || len(values) < window {
		return models.Series{Values: out}
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return models.Series{Values: out}
}

// Bollinger returns the upper and lower bands: ma ± k·σ, with σ the
// population standard deviation of the trailing window. Warm-up matches
// the moving average.
func Bollinger(values []float64, ma models.Series, window int, k float64) (upper, lower models.Series) {
	up := nanSlice(len(values))
	lo := nanSlice(len(values))
	for i := window - 1; i < len(values); i++ {
		if !ma.Defined(i) {
			continue
		}
		mean := ma.Values[i]
		var sq float64
		for j := i - window + 1; j <= i; j++ {
			d := values[j] - mean
			sq += d * d
		}
		sigma := math.Sqrt(sq / float64(window))
		up[i] = mean + k*sigma
		lo[i] = mean - k*sigma
	}
	return models.Series{Values: up}, models.Series{Values: lo}
}

// RSI returns the Wilder-smoothed relative strength index. The value at
// index i consumes the trailing window of `period` points, so the first
// period-1 entries are undefined. Always within [0,100]; a window with no
// losses reads 100, a flat window reads neutral 50.
func RSI(values []float64, period int) models.Series {
	out := nanSlice(len(values))
	if period < 2 || len(values) < period {
		return models.Series{Values: out}
	}

	// Seed with the simple average of the changes inside the first full window.
	var avgGain, avgLoss float64
	for i := 1; i < period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period - 1)
	avgLoss /= float64(period - 1)
	out[period-1] = rsiValue(avgGain, avgLoss)

	// Wilder smoothing from there on.
	for i := period; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return models.Series{Values: out}
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0 // flat window, no direction
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// VolumeTrend returns current volume divided by the trailing-window average
// volume. Undefined during warm-up or when the window average is zero.
func VolumeTrend(volumes []float64, window int) models.Series {
	out := nanSlice(len(volumes))
	if window <= 0 || len(volumes) < window {
		return models.Series{Values: out}
	}
	sum := 0.0
	for i, v := range volumes {
		sum += v
		if i >= window {
			sum -= volumes[i-window]
		}
		if i >= window-1 {
			avg := sum / float64(window)
			if avg > 0 {
				out[i] = v / avg
			}
		}
	}
	return models.Series{Values: out}
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

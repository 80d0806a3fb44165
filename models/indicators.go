package models

import (
	"bytes"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Indicator identifiers. Window-parameterized names are built with MAKey
// and RSIKey so configured window sizes keep self-describing keys.
const (
	IndBollingerUpper    = "bollinger_upper"
	IndBollingerLower    = "bollinger_lower"
	IndBollingerUpperExt = "bollinger_upper_ext"
	IndBollingerLowerExt = "bollinger_lower_ext"
	IndVolumeTrend       = "volume_trend"
)

// MAKey returns the identifier for a moving average of the given window.
func MAKey(window int) string { return fmt.Sprintf("ma%d", window) }

// RSIKey returns the identifier for an RSI of the given period.
func RSIKey(period int) string { return fmt.Sprintf("rsi%d", period) }

// Series is a numeric sequence aligned index-for-index with a
// CanonicalSeries. Entries inside the warm-up window are NaN and serialize
// as JSON null, never as zero.
type Series struct {
	Values []float64
}

// Defined reports whether the value at index i is outside the warm-up window.
func (s Series) Defined(i int) bool {
	return i >= 0 && i < len(s.Values) && !math.IsNaN(s.Values[i])
}

// DefinedCount returns how many entries carry a computed value.
func (s Series) DefinedCount() int {
	n := 0
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Last returns the most recent value, or false if the series never left
// its warm-up window.
func (s Series) Last() (float64, bool) {
	for i := len(s.Values) - 1; i >= 0; i-- {
		if !math.IsNaN(s.Values[i]) {
			return s.Values[i], true
		}
	}
	return 0, false
}

// MarshalJSON renders values at fixed two-decimal precision so downstream
// template rendering never sees float artifacts. Warm-up entries are null.
func (s Series) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range s.Values {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) {
			buf.WriteString("null")
		} else {
			buf.WriteString(decimal.NewFromFloat(v).Round(2).String())
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// IndicatorSet maps indicator identifiers to sequences aligned with the
// source series. All sequences share the same length.
type IndicatorSet struct {
	Length int               `json:"length"`
	Series map[string]Series `json:"series"`
}

// Get returns the named sequence, or false if it was not computed.
func (is *IndicatorSet) Get(name string) (Series, bool) {
	s, ok := is.Series[name]
	return s, ok
}

// LastValue returns the most recent defined value of the named sequence.
func (is *IndicatorSet) LastValue(name string) (float64, bool) {
	s, ok := is.Series[name]
	if !ok {
		return 0, false
	}
	return s.Last()
}

package indicators

import (
	"math"
	"testing"
	"time"

	"trendlotto_backend/models"
)

func makeSeries(closes []float64, volumes []float64) *models.CanonicalSeries {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, len(closes))
	for i, c := range closes {
		v := 1000.0
		if volumes != nil {
			v = volumes[i]
		}
		points[i] = models.PricePoint{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: v,
		}
	}
	return &models.CanonicalSeries{Symbol: "005930", Points: points, FetchedAt: time.Now()}
}

// wave produces n closes oscillating around 100 so every indicator has
// both gains and losses to chew on.
func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/5) + float64(i%3)
	}
	return out
}

func TestMovingAverageWarmup(t *testing.T) {
	values := wave(130)
	ma := MovingAverage(values, 20)

	for i := 0; i < 19; i++ {
		if ma.Defined(i) {
			t.Errorf("index %d inside warm-up should be undefined", i)
		}
	}
	if got := ma.DefinedCount(); got != 111 {
		t.Errorf("expected 111 defined values for window 20 over 130 points, got %d", got)
	}
}

func TestMovingAverageTooShort(t *testing.T) {
	ma := MovingAverage(wave(19), 20)
	if got := ma.DefinedCount(); got != 0 {
		t.Errorf("19 points cannot define a 20-day average, got %d defined", got)
	}
}

func TestMovingAverageValues(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	ma := MovingAverage(values, 3)

	want := []float64{math.NaN(), math.NaN(), 2, 3, 4}
	for i := range want {
		if math.IsNaN(want[i]) {
			if ma.Defined(i) {
				t.Errorf("index %d: expected undefined, got %f", i, ma.Values[i])
			}
			continue
		}
		if math.Abs(ma.Values[i]-want[i]) > 1e-9 {
			t.Errorf("index %d: expected %f, got %f", i, want[i], ma.Values[i])
		}
	}
}

func TestRSIDefinedCount(t *testing.T) {
	rsi := RSI(wave(130), 14)
	if rsi.Defined(12) {
		t.Error("index 12 should be inside the RSI warm-up")
	}
	if !rsi.Defined(13) {
		t.Error("index 13 should carry the first RSI value")
	}
	if got := rsi.DefinedCount(); got != 117 {
		t.Errorf("expected 117 defined RSI values over 130 points, got %d", got)
	}
}

func TestRSIBounds(t *testing.T) {
	rsi := RSI(wave(130), 14)
	for i, v := range rsi.Values {
		if math.IsNaN(v) {
			continue
		}
		if v < 0 || v > 100 {
			t.Errorf("RSI at index %d out of [0,100]: %f", i, v)
		}
	}
}

func TestRSIFlatSeries(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 100
	}
	rsi := RSI(values, 14)
	v, ok := rsi.Last()
	if !ok {
		t.Fatal("flat series should still define RSI")
	}
	if v != 50 {
		t.Errorf("flat series should read neutral 50, got %f", v)
	}
}

func TestRSIAllGains(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	rsi := RSI(values, 14)
	v, ok := rsi.Last()
	if !ok {
		t.Fatal("rising series should define RSI")
	}
	if v != 100 {
		t.Errorf("series with no losses should read 100, got %f", v)
	}
}

func TestBollingerBands(t *testing.T) {
	values := wave(60)
	ma := MovingAverage(values, 20)
	upper, lower := Bollinger(values, ma, 20, 2)

	for i := 19; i < len(values); i++ {
		if !upper.Defined(i) || !lower.Defined(i) {
			t.Fatalf("bands undefined at index %d past warm-up", i)
		}
		mid := ma.Values[i]
		if upper.Values[i] < mid || lower.Values[i] > mid {
			t.Errorf("index %d: bands should straddle the mean", i)
		}
		// Symmetric around the mean.
		up := upper.Values[i] - mid
		down := mid - lower.Values[i]
		if math.Abs(up-down) > 1e-9 {
			t.Errorf("index %d: band widths differ: %f vs %f", i, up, down)
		}
	}
}

func TestBollingerWiderBandContains(t *testing.T) {
	values := wave(60)
	ma := MovingAverage(values, 20)
	upper2, lower2 := Bollinger(values, ma, 20, 2)
	upper3, lower3 := Bollinger(values, ma, 20, 3)

	for i := 19; i < len(values); i++ {
		if upper3.Values[i] < upper2.Values[i] || lower3.Values[i] > lower2.Values[i] {
			t.Errorf("index %d: 3-sigma band should contain the 2-sigma band", i)
		}
	}
}

func TestVolumeTrend(t *testing.T) {
	volumes := make([]float64, 40)
	for i := range volumes {
		volumes[i] = 1000
	}
	volumes[39] = 2000

	vt := VolumeTrend(volumes, 20)
	if vt.Defined(18) {
		t.Error("index 18 should be inside the volume warm-up")
	}
	if v := vt.Values[38]; math.Abs(v-1.0) > 1e-9 {
		t.Errorf("steady volume should read 1.0, got %f", v)
	}
	// Last window holds 19 bars at 1000 plus one at 2000.
	avg := (19*1000.0 + 2000.0) / 20.0
	if v := vt.Values[39]; math.Abs(v-2000.0/avg) > 1e-9 {
		t.Errorf("spike ratio wrong: got %f", v)
	}
}

func TestVolumeTrendZeroAverage(t *testing.T) {
	volumes := make([]float64, 25)
	vt := VolumeTrend(volumes, 20)
	for i, v := range vt.Values {
		if !math.IsNaN(v) {
			t.Errorf("index %d: zero-volume window should be undefined, got %f", i, v)
		}
	}
}

func TestComputeDeterministic(t *testing.T) {
	series := makeSeries(wave(130), nil)
	cfg := DefaultConfig()

	a := Compute(series, cfg)
	b := Compute(series, cfg)

	if a.Length != 130 || b.Length != 130 {
		t.Fatalf("expected length 130, got %d and %d", a.Length, b.Length)
	}
	for name, sa := range a.Series {
		sb, ok := b.Series[name]
		if !ok {
			t.Fatalf("second run missing series %q", name)
		}
		for i := range sa.Values {
			va, vb := sa.Values[i], sb.Values[i]
			if math.IsNaN(va) != math.IsNaN(vb) || (!math.IsNaN(va) && va != vb) {
				t.Fatalf("series %q differs at index %d: %f vs %f", name, i, va, vb)
			}
		}
	}
}

func TestComputeKeys(t *testing.T) {
	series := makeSeries(wave(130), nil)
	set := Compute(series, DefaultConfig())

	for _, name := range []string{
		models.MAKey(5), models.MAKey(20), models.MAKey(60),
		models.IndBollingerUpper, models.IndBollingerLower,
		models.IndBollingerUpperExt, models.IndBollingerLowerExt,
		models.RSIKey(14), models.IndVolumeTrend,
	} {
		s, ok := set.Get(name)
		if !ok {
			t.Errorf("missing indicator %q", name)
			continue
		}
		if len(s.Values) != set.Length {
			t.Errorf("indicator %q misaligned: %d values for length %d", name, len(s.Values), set.Length)
		}
	}
}

func TestComputeShortSeriesPartialIndicators(t *testing.T) {
	// 30 points: ma5/ma20/rsi14 defined, ma60 entirely undefined.
	series := makeSeries(wave(30), nil)
	set := Compute(series, DefaultConfig())

	if _, ok := set.LastValue(models.MAKey(5)); !ok {
		t.Error("ma5 should be defined on 30 points")
	}
	if _, ok := set.LastValue(models.MAKey(60)); ok {
		t.Error("ma60 cannot be defined on 30 points")
	}
}

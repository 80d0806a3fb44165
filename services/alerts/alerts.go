// Package alerts sweeps the watchlist for extreme technical conditions
// (oversold/overbought RSI, 3-sigma band breakouts) and notifies via the
// configured channel.
package alerts

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"trendlotto_backend/models"
	"trendlotto_backend/services/notifier"
	"trendlotto_backend/services/review"
)

const (
	rsiOversold   = 30.0
	rsiOverbought = 80.0

	// A symbol/condition pair alerts at most once per cooldown.
	alertCooldown = 24 * time.Hour
)

// Watcher runs the periodic watchlist sweep.
type Watcher struct {
	service *review.Service
	notify  notifier.Notifier
	window  models.Window
	delay   time.Duration
	rsiKey  string

	mu          sync.Mutex
	symbols     []string
	lastAlerted map[string]time.Time
}

// Global alert watcher
var GlobalWatcher *Watcher

// InitWatcher wires the global watcher.
func InitWatcher(service *review.Service, notify notifier.Notifier, symbols []string, rsiKey string, delay time.Duration) {
	GlobalWatcher = NewWatcher(service, notify, symbols, rsiKey, delay)
}

// NewWatcher creates a watcher sweeping symbols over the six-month window.
func NewWatcher(service *review.Service, notify notifier.Notifier, symbols []string, rsiKey string, delay time.Duration) *Watcher {
	return &Watcher{
		service:     service,
		notify:      notify,
		window:      models.Window6M,
		delay:       delay,
		rsiKey:      rsiKey,
		symbols:     append([]string(nil), symbols...),
		lastAlerted: make(map[string]time.Time),
	}
}

// Symbols returns a copy of the current watchlist.
func (w *Watcher) Symbols() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.symbols...)
}

// AddSymbol appends a symbol if not already watched.
func (w *Watcher) AddSymbol(symbol string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.symbols {
		if s == symbol {
			return false
		}
	}
	w.symbols = append(w.symbols, symbol)
	return true
}

// RemoveSymbol drops a symbol from the watchlist.
func (w *Watcher) RemoveSymbol(symbol string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, s := range w.symbols {
		if s == symbol {
			w.symbols = append(w.symbols[:i], w.symbols[i+1:]...)
			return true
		}
	}
	return false
}

// Sweep checks every watched symbol once, pausing delay between symbols
// to stay polite to the data sources.
func (w *Watcher) Sweep(ctx context.Context) {
	symbols := w.Symbols()
	log.Printf("Alert sweep starting over %d symbols", len(symbols))
	for i, symbol := range symbols {
		if ctx.Err() != nil {
			return
		}
		if i > 0 && w.delay > 0 {
			time.Sleep(w.delay)
		}
		if err := w.checkSymbol(ctx, symbol); err != nil {
			log.Printf("Warning: alert check failed for %s: %v", symbol, err)
		}
	}
}

func (w *Watcher) checkSymbol(ctx context.Context, symbol string) error {
	result, err := w.service.Get(ctx, symbol, w.window)
	if err != nil {
		return err
	}
	if result.Status == models.ReviewUnavailable || result.Indicators == nil || result.Score == nil {
		return nil
	}

	set := result.Indicators
	lastClose := result.Score.LatestClose

	if rsi, ok := set.LastValue(w.rsiKey); ok {
		switch {
		case rsi <= rsiOversold:
			w.fire(symbol, "rsi_oversold",
				fmt.Sprintf("⚠️ <b>%s</b> RSI %.1f — oversold (≤ %.0f)", symbol, rsi, rsiOversold))
		case rsi >= rsiOverbought:
			w.fire(symbol, "rsi_overbought",
				fmt.Sprintf("🔥 <b>%s</b> RSI %.1f — overbought (≥ %.0f)", symbol, rsi, rsiOverbought))
		}
	}

	upperExt, upOK := set.LastValue(models.IndBollingerUpperExt)
	lowerExt, lowOK := set.LastValue(models.IndBollingerLowerExt)
	if !math.IsNaN(lastClose) && lastClose > 0 {
		if upOK && lastClose >= upperExt {
			w.fire(symbol, "band_breakout_up",
				fmt.Sprintf("🚀 <b>%s</b> close %.0f broke above the 3σ band (%.0f)", symbol, lastClose, upperExt))
		}
		if lowOK && lastClose <= lowerExt {
			w.fire(symbol, "band_breakout_down",
				fmt.Sprintf("📉 <b>%s</b> close %.0f broke below the 3σ band (%.0f)", symbol, lastClose, lowerExt))
		}
	}
	return nil
}

// fire sends one alert unless the same condition alerted within the
// cooldown.
func (w *Watcher) fire(symbol, condition, text string) {
	key := symbol + "|" + condition
	now := time.Now()

	w.mu.Lock()
	if last, ok := w.lastAlerted[key]; ok && now.Sub(last) < alertCooldown {
		w.mu.Unlock()
		return
	}
	w.lastAlerted[key] = now
	w.mu.Unlock()

	if w.notify == nil {
		log.Printf("Alert (no notifier configured): %s", text)
		return
	}
	if err := w.notify.Send(text); err != nil {
		log.Printf("Warning: failed to deliver alert for %s: %v", symbol, err)
	}
}

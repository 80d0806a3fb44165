package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"trendlotto_backend/models"
)

const krxProviderName = "krx"

// KRXProvider is the primary structured-data adapter. It speaks a JSON
// chart API returning daily OHLCV rows for six-digit KRX symbols.
type KRXProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewKRXProvider creates the primary adapter. The HTTP client carries no
// timeout of its own; the coordinator bounds each call via context.
func NewKRXProvider(baseURL, apiKey string) *KRXProvider {
	return &KRXProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{},
	}
}

func (p *KRXProvider) Name() string { return krxProviderName }

// ValidateSymbol enforces the KRX six-digit numeric code grammar.
func (p *KRXProvider) ValidateSymbol(symbol string) error {
	if !IsKRXCode(symbol) {
		return models.NewFetchError(krxProviderName, models.ErrNotFound,
			fmt.Errorf("symbol %q is not a six-digit KRX code", symbol))
	}
	return nil
}

// IsKRXCode reports whether s is a six-digit numeric stock code.
func IsKRXCode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// krxRow is the provider-native JSON shape.
type krxRow struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type krxChartResponse struct {
	Symbol string   `json:"symbol"`
	Rows   []krxRow `json:"rows"`
	Error  string   `json:"error,omitempty"`
}

// Fetch loads the daily chart for the requested window.
func (p *KRXProvider) Fetch(ctx context.Context, symbol string, window models.Window) (*models.CanonicalSeries, error) {
	if err := p.ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1/chart/daily?symbol=%s&months=%d",
		p.BaseURL, url.QueryEscape(symbol), window.Months())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, models.NewFetchError(krxProviderName, models.ErrUnreachable, err)
	}
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, models.NewFetchError(krxProviderName, models.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, models.NewFetchError(krxProviderName, models.ErrNotFound,
			fmt.Errorf("no listing for %s", symbol))
	case http.StatusTooManyRequests:
		return nil, models.NewFetchError(krxProviderName, models.ErrRateLimited,
			fmt.Errorf("status %d", resp.StatusCode))
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, models.NewFetchError(krxProviderName, models.ErrUnreachable,
			fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body)))
	}

	var chart krxChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, models.NewFetchError(krxProviderName, models.ErrMalformedResponse, err)
	}
	if chart.Error != "" {
		return nil, models.NewFetchError(krxProviderName, models.ErrMalformedResponse,
			errors.New(chart.Error))
	}
	if len(chart.Rows) == 0 {
		return nil, models.NewFetchError(krxProviderName, models.ErrNotFound,
			fmt.Errorf("empty chart for %s", symbol))
	}

	points := make([]models.PricePoint, 0, len(chart.Rows))
	for _, row := range chart.Rows {
		date, err := time.ParseInLocation("2006-01-02", row.Date, time.UTC)
		if err != nil {
			return nil, models.NewFetchError(krxProviderName, models.ErrMalformedResponse,
				fmt.Errorf("bad date %q: %w", row.Date, err))
		}
		if row.Open == 0 && row.High == 0 && row.Low == 0 && row.Close == 0 {
			continue // null bar on a non-trading day
		}
		points = append(points, models.PricePoint{
			Date:   date,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	series := &models.CanonicalSeries{Symbol: symbol, Points: points, FetchedAt: time.Now().UTC()}
	if err := series.Validate(); err != nil {
		return nil, models.NewFetchError(krxProviderName, errKind(err), err)
	}
	return series, nil
}

// errKind extracts the taxonomy sentinel from a validation error.
func errKind(err error) error {
	switch {
	case errors.Is(err, models.ErrInsufficientHistory):
		return models.ErrInsufficientHistory
	default:
		return models.ErrMalformedResponse
	}
}

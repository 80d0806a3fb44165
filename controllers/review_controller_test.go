package controllers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"trendlotto_backend/models"
	"trendlotto_backend/services/indicators"
	"trendlotto_backend/services/providers"
	"trendlotto_backend/services/resolver"
	"trendlotto_backend/services/review"
	"trendlotto_backend/services/scorecache"
	"trendlotto_backend/services/scoring"
)

type stubProvider struct {
	fail error
}

func (s *stubProvider) Name() string                       { return "krx" }
func (s *stubProvider) ValidateSymbol(symbol string) error { return nil }

func (s *stubProvider) Fetch(ctx context.Context, symbol string, window models.Window) (*models.CanonicalSeries, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, 130)
	for i := range points {
		c := 100 + 10*math.Sin(float64(i)/5)
		points[i] = models.PricePoint{
			Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000,
		}
	}
	return &models.CanonicalSeries{Symbol: symbol, Points: points, FetchedAt: time.Now()}, nil
}

func newTestRouter(t *testing.T, provider providers.Provider) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	icfg := indicators.DefaultConfig()
	engine := scoring.NewEngine(icfg, scoring.DefaultWeights(), scoring.PolicyPartial, 1.5)
	coordinator := providers.NewCoordinator([]providers.Provider{provider}, time.Second)
	cache := scorecache.New(16, time.Minute, time.Minute, "v1")
	svc := review.NewService(cache, coordinator, icfg, engine, nil)

	res := resolver.New(func(ctx context.Context) ([]resolver.ListingEntry, error) {
		return []resolver.ListingEntry{{Code: "005930", Name: "삼성전자"}}, nil
	})

	rc := NewReviewController(svc, res, nil)
	router := gin.New()
	router.GET("/api/v1/review/:ticker", rc.GetReview)
	router.GET("/api/v1/review/:ticker/history", rc.GetHistory)
	return router
}

func doRequest(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestGetReviewOK(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	w := doRequest(router, "/api/v1/review/005930?window=6M")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Status string `json:"status"`
		Score  struct {
			Symbol         string `json:"symbol"`
			CompositeScore int    `json:"composite_score"`
			Breakdown      []struct {
				Name string `json:"name"`
			} `json:"component_breakdown"`
		} `json:"score"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("expected status ok, got %q", body.Status)
	}
	if body.Score.Symbol != "005930" {
		t.Errorf("wrong symbol: %q", body.Score.Symbol)
	}
	if len(body.Score.Breakdown) != 4 {
		t.Errorf("expected 4 breakdown components, got %d", len(body.Score.Breakdown))
	}
}

func TestGetReviewByName(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	w := doRequest(router, "/api/v1/review/삼성전자?window=6M")
	if w.Code != http.StatusOK {
		t.Fatalf("name input should resolve, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetReviewDefaultWindow(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	w := doRequest(router, "/api/v1/review/005930")
	if w.Code != http.StatusOK {
		t.Fatalf("missing window should default, got %d", w.Code)
	}
}

func TestGetReviewBadWindow(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	w := doRequest(router, "/api/v1/review/005930?window=2W")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad window, got %d", w.Code)
	}
}

func TestGetReviewUnknownTicker(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	w := doRequest(router, "/api/v1/review/nosuchname?window=6M")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown ticker, got %d", w.Code)
	}
}

func TestGetHistoryWithoutStore(t *testing.T) {
	// The service keeps running without a history store when InitStore
	// fails, so the history endpoint must answer rather than panic.
	router := newTestRouter(t, &stubProvider{})

	w := doRequest(router, "/api/v1/review/005930/history")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when persistence is disabled, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetReviewUnavailable(t *testing.T) {
	router := newTestRouter(t, &stubProvider{
		fail: models.NewFetchError("krx", models.ErrUnreachable, nil),
	})

	w := doRequest(router, "/api/v1/review/005930?window=6M")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when every source is down, got %d", w.Code)
	}

	var body struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body.Status != "unavailable" || body.Reason == "" {
		t.Errorf("503 body should explain the outage, got %+v", body)
	}
}

package providers

import (
	"context"
	"testing"
	"time"

	"trendlotto_backend/models"
)

type fakeProvider struct {
	name   string
	series *models.CanonicalSeries
	err    error
	delay  time.Duration
	calls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) ValidateSymbol(symbol string) error { return nil }

func (f *fakeProvider) Fetch(ctx context.Context, symbol string, window models.Window) (*models.CanonicalSeries, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.series, nil
}

type recordingSink struct {
	incidents []string
}

func (r *recordingSink) RecordIncident(provider, kind, detail string) {
	r.incidents = append(r.incidents, provider+"/"+kind)
}

func testSeries(symbol string) *models.CanonicalSeries {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, 30)
	for i := range points {
		points[i] = models.PricePoint{
			Date: start.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000,
		}
	}
	return &models.CanonicalSeries{Symbol: symbol, Points: points, FetchedAt: time.Now()}
}

func TestResolvePrimaryServes(t *testing.T) {
	primary := &fakeProvider{name: "krx", series: testSeries("005930")}
	fallback := &fakeProvider{name: "naver", series: testSeries("005930")}
	c := NewCoordinator([]Provider{primary, fallback}, time.Second)

	series, source, err := c.Resolve(context.Background(), "005930", models.Window6M)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != models.ProviderPrimary {
		t.Errorf("expected PRIMARY tag, got %s", source)
	}
	if series.Symbol != "005930" {
		t.Errorf("wrong series: %+v", series)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback should not be consulted when primary serves, got %d calls", fallback.calls)
	}
}

func TestResolveFallbackTagged(t *testing.T) {
	primary := &fakeProvider{name: "krx", err: models.NewFetchError("krx", models.ErrRateLimited, nil)}
	fallback := &fakeProvider{name: "naver", series: testSeries("005930")}
	sink := &recordingSink{}
	c := NewCoordinator([]Provider{primary, fallback}, time.Second)
	c.SetIncidentSink(sink)

	series, source, err := c.Resolve(context.Background(), "005930", models.Window6M)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != models.ProviderFallback {
		t.Errorf("expected FALLBACK tag, got %s", source)
	}
	if series == nil {
		t.Fatal("expected a series from the fallback")
	}
	if len(sink.incidents) != 1 || sink.incidents[0] != "krx/rate_limited" {
		t.Errorf("expected one recorded krx incident, got %v", sink.incidents)
	}
}

func TestResolveAllFail(t *testing.T) {
	primary := &fakeProvider{name: "krx", err: models.NewFetchError("krx", models.ErrUnreachable, nil)}
	fallback := &fakeProvider{name: "naver", err: models.NewFetchError("naver", models.ErrNotFound, nil)}
	c := NewCoordinator([]Provider{primary, fallback}, time.Second)

	_, _, err := c.Resolve(context.Background(), "005930", models.Window6M)
	if err == nil {
		t.Fatal("expected an error when every adapter fails")
	}
	if !models.IsDataUnavailable(err) {
		t.Fatalf("expected DataUnavailableError, got %T: %v", err, err)
	}
	// The terminal error keeps the last underlying cause reachable.
	if kind := models.ErrorKind(err); kind != "not_found" {
		t.Errorf("expected the last adapter's kind to surface, got %s", kind)
	}
}

func TestResolveSingleAttemptPerAdapter(t *testing.T) {
	primary := &fakeProvider{name: "krx", err: models.NewFetchError("krx", models.ErrUnreachable, nil)}
	fallback := &fakeProvider{name: "naver", err: models.NewFetchError("naver", models.ErrUnreachable, nil)}
	c := NewCoordinator([]Provider{primary, fallback}, time.Second)

	c.Resolve(context.Background(), "005930", models.Window6M)
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("each adapter gets exactly one attempt, got %d and %d", primary.calls, fallback.calls)
	}
}

func TestResolveTimeoutFallsThrough(t *testing.T) {
	slow := &fakeProvider{name: "krx", series: testSeries("005930"), delay: 200 * time.Millisecond}
	fallback := &fakeProvider{name: "naver", series: testSeries("005930")}
	c := NewCoordinator([]Provider{slow, fallback}, 20*time.Millisecond)

	series, source, err := c.Resolve(context.Background(), "005930", models.Window6M)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != models.ProviderFallback {
		t.Errorf("timed-out primary should fall through to the fallback, got %s", source)
	}
	if series == nil {
		t.Fatal("expected a series from the fallback")
	}
}

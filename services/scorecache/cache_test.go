package scorecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trendlotto_backend/models"
)

func okResult(symbol string) *models.ReviewResult {
	return &models.ReviewResult{
		Status: models.ReviewOK,
		Score:  &models.ScoreResult{Symbol: symbol, CompositeScore: 55},
	}
}

func unavailableResult() *models.ReviewResult {
	return &models.ReviewResult{Status: models.ReviewUnavailable, Reason: "all sources down"}
}

func TestGetOrComputeCachesValue(t *testing.T) {
	cache := New(10, time.Minute, time.Second, "v1")
	var calls int32
	compute := func(ctx context.Context) (*models.ReviewResult, error) {
		atomic.AddInt32(&calls, 1)
		return okResult("005930"), nil
	}

	for i := 0; i < 3; i++ {
		result, err := cache.GetOrCompute(context.Background(), "005930", models.Window6M, compute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Score.CompositeScore != 55 {
			t.Fatalf("wrong cached value: %+v", result)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected exactly 1 computation, got %d", got)
	}
}

func TestConcurrentMissesCollapse(t *testing.T) {
	cache := New(10, time.Minute, time.Second, "v1")
	var calls int32
	compute := func(ctx context.Context) (*models.ReviewResult, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		return okResult("005930"), nil
	}

	const workers = 50
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			result, err := cache.GetOrCompute(context.Background(), "005930", models.Window6M, compute)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if result.Score.Symbol != "005930" {
				t.Errorf("wrong result: %+v", result)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 collapsed computation for %d concurrent callers, got %d", workers, got)
	}
}

func TestCallerCancellationDoesNotStrandWaiters(t *testing.T) {
	cache := New(10, time.Minute, time.Second, "v1")
	computeStarted := make(chan struct{})
	compute := func(ctx context.Context) (*models.ReviewResult, error) {
		close(computeStarted)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
			return okResult("005930"), nil
		}
	}

	// First caller cancels mid-flight.
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := cache.GetOrCompute(ctx, "005930", models.Window6M, compute)
		errCh <- err
	}()
	<-computeStarted
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller should see context.Canceled, got %v", err)
	}

	// The computation keeps running detached and populates the cache.
	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := cache.Get("005930", models.Window6M); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("detached computation never populated the cache")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestComputeErrorNotCached(t *testing.T) {
	cache := New(10, time.Minute, time.Second, "v1")
	var calls int32
	compute := func(ctx context.Context) (*models.ReviewResult, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("boom")
	}

	for i := 0; i < 2; i++ {
		if _, err := cache.GetOrCompute(context.Background(), "005930", models.Window6M, compute); err == nil {
			t.Fatal("expected error")
		}
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("errors must not be cached, expected 2 calls, got %d", got)
	}
}

func TestTTLExpiry(t *testing.T) {
	cache := New(10, time.Minute, time.Second, "v1")
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Put("005930", models.Window6M, okResult("005930"))
	if _, ok := cache.Get("005930", models.Window6M); !ok {
		t.Fatal("fresh entry should be served")
	}

	now = now.Add(59 * time.Second)
	if _, ok := cache.Get("005930", models.Window6M); !ok {
		t.Fatal("entry within TTL should still be served")
	}

	now = now.Add(time.Minute)
	if _, ok := cache.Get("005930", models.Window6M); ok {
		t.Fatal("entry past TTL should have expired")
	}
}

func TestNegativeResultShortTTL(t *testing.T) {
	cache := New(10, time.Minute, time.Second, "v1")
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Put("999999", models.Window6M, unavailableResult())
	if _, ok := cache.Get("999999", models.Window6M); !ok {
		t.Fatal("negative entry should be served inside its short TTL")
	}

	now = now.Add(2 * time.Second)
	if _, ok := cache.Get("999999", models.Window6M); ok {
		t.Fatal("negative entry should expire after the short TTL")
	}
}

func TestLRUEviction(t *testing.T) {
	cache := New(2, time.Minute, time.Second, "v1")
	cache.Put("A", models.Window6M, okResult("A"))
	cache.Put("B", models.Window6M, okResult("B"))

	// Touch A so B is the eviction candidate.
	if _, ok := cache.Get("A", models.Window6M); !ok {
		t.Fatal("A should be cached")
	}
	cache.Put("C", models.Window6M, okResult("C"))

	if cache.Len() != 2 {
		t.Fatalf("capacity 2 exceeded: %d entries", cache.Len())
	}
	if _, ok := cache.Get("B", models.Window6M); ok {
		t.Error("least recently used entry B should have been evicted")
	}
	if _, ok := cache.Get("A", models.Window6M); !ok {
		t.Error("recently touched entry A should survive")
	}
	if _, ok := cache.Get("C", models.Window6M); !ok {
		t.Error("newest entry C should survive")
	}
}

func TestInvalidate(t *testing.T) {
	cache := New(10, time.Minute, time.Second, "v1")
	cache.Put("005930", models.Window6M, okResult("005930"))
	cache.Put("005930", models.Window1Y, okResult("005930"))

	if !cache.Invalidate("005930", models.Window6M) {
		t.Fatal("existing entry should report invalidated")
	}
	if cache.Invalidate("005930", models.Window6M) {
		t.Fatal("second invalidation should report nothing to drop")
	}
	if _, ok := cache.Get("005930", models.Window1Y); !ok {
		t.Error("other windows must be untouched")
	}
}

func TestBumpVersionInvalidatesAll(t *testing.T) {
	cache := New(10, time.Minute, time.Second, "v1")
	cache.Put("005930", models.Window6M, okResult("005930"))

	cache.BumpVersion("v2")
	if _, ok := cache.Get("005930", models.Window6M); ok {
		t.Fatal("version bump should make every old key unreachable")
	}
}

func TestPurgeExpired(t *testing.T) {
	cache := New(10, time.Minute, time.Second, "v1")
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Put("A", models.Window6M, okResult("A"))
	cache.Put("B", models.Window6M, unavailableResult())

	now = now.Add(5 * time.Second)
	if purged := cache.PurgeExpired(); purged != 1 {
		t.Errorf("expected 1 purged negative entry, got %d", purged)
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 surviving entry, got %d", cache.Len())
	}
}

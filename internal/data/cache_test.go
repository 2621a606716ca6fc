package data

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubSource struct {
	bars  []Bar
	err   error
	calls int
}

func (s *stubSource) FetchBars(_ context.Context, _, _, _ string) ([]Bar, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.bars, nil
}

func TestBarCacheFetch(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	cache := NewBarCache(time.Minute)
	cache.now = func() time.Time { return now }

	src := &stubSource{bars: []Bar{{Time: now, Close: 100}}}
	ctx := context.Background()

	bars, stale, err := cache.Fetch(ctx, src, "tsla", "5m", "30d")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if stale || len(bars) != 1 {
		t.Fatalf("Fetch() = %d bars, stale=%v", len(bars), stale)
	}

	// Within TTL: served from cache.
	if _, _, err := cache.Fetch(ctx, src, "TSLA", "5m", "30d"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if src.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", src.calls)
	}

	// Expired and upstream down: stale bars are served.
	now = now.Add(2 * time.Minute)
	src.err = errors.New("upstream down")
	bars, stale, err = cache.Fetch(ctx, src, "TSLA", "5m", "30d")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !stale || len(bars) != 1 {
		t.Errorf("Fetch() = %d bars, stale=%v, want 1 stale bar", len(bars), stale)
	}
	if src.calls != 2 {
		t.Errorf("upstream calls = %d, want 2", src.calls)
	}
}

func TestBarCacheFetchMissWithError(t *testing.T) {
	cache := NewBarCache(time.Minute)
	src := &stubSource{err: errors.New("boom")}

	if _, _, err := cache.Fetch(context.Background(), src, "TSLA", "5m", "30d"); err == nil {
		t.Fatal("expected error on cold cache with failing upstream")
	}
}

func TestBarCacheReset(t *testing.T) {
	cache := NewBarCache(time.Minute)
	cache.Put(SeriesKey("TSLA", "5m", "30d"), nil)
	cache.Put(SeriesKey("TSLA", "30m", "1d"), nil)
	cache.Put(SeriesKey("SPY", "5m", "30d"), nil)

	if n := cache.Reset("tsla"); n != 2 {
		t.Errorf("Reset(tsla) = %d, want 2", n)
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
	if n := cache.Reset(""); n != 1 {
		t.Errorf("Reset(all) = %d, want 1", n)
	}
}

package data

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func mustNY(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestSessionBars(t *testing.T) {
	ny := mustNY(t)
	bars := []Bar{
		{Time: time.Date(2025, 3, 7, 15, 55, 0, 0, ny), Close: 1},
		// 01:00 UTC on the 11th is still the 10th in New York.
		{Time: time.Date(2025, 3, 11, 1, 0, 0, 0, time.UTC), Close: 2},
		{Time: time.Date(2025, 3, 10, 9, 30, 0, 0, ny), Close: 3},
	}

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, ny)
	got := SessionBars(bars, day, ny)
	if len(got) != 2 {
		t.Fatalf("SessionBars() returned %d bars, want 2", len(got))
	}
	if got[0].Close != 2 || got[1].Close != 3 {
		t.Errorf("SessionBars() did not preserve input order: %+v", got)
	}

	days := SessionDays(bars, ny)
	if len(days) != 2 || !days[0].Equal(time.Date(2025, 3, 7, 0, 0, 0, 0, ny)) {
		t.Errorf("SessionDays() = %v", days)
	}
}

func TestQuoteFromBars(t *testing.T) {
	at := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	bars := []Bar{
		{Close: 10, High: 11, Low: 9, Volume: 100.6},
		{Close: 12, High: 13, Low: 11, Volume: 200.6},
	}

	q := QuoteFromBars("TSLA", bars, at)
	if q.Price != 12 || q.High != 13 || q.Low != 11 {
		t.Errorf("quote prices = %v/%v/%v", q.Price, q.High, q.Low)
	}
	if q.Volume != 301 {
		t.Errorf("quote volume = %d, want 301", q.Volume)
	}
	if !q.HasPrice() {
		t.Error("HasPrice() = false, want true")
	}

	empty := QuoteFromBars("TSLA", nil, at)
	if empty.HasPrice() || empty.Bars == nil {
		t.Errorf("empty quote = %+v", empty)
	}
}

func TestJSONLRoundTripAndMemorySource(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "bars-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	ny := mustNY(t)
	bars := []Bar{
		{Time: time.Date(2025, 3, 10, 9, 35, 0, 0, ny), Open: 1, High: 2, Low: 1, Close: 2, Volume: 10},
		{Time: time.Date(2025, 3, 10, 9, 30, 0, 0, ny), Open: 1, High: 1, Low: 1, Close: 1, Volume: 5},
	}

	var buf bytes.Buffer
	if err := WriteBarsJSONL(&buf, bars); err != nil {
		t.Fatalf("WriteBarsJSONL() error = %v", err)
	}

	dir := filepath.Join(tmpDir, "2025-03-10", "TSLA")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "5m.jsonl"), buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	src, err := NewMemorySource(tmpDir, "2025-03-10", zap.NewNop())
	if err != nil {
		t.Fatalf("NewMemorySource() error = %v", err)
	}

	got, err := src.FetchBars(context.Background(), "tsla", "5m", "30d")
	if err != nil {
		t.Fatalf("FetchBars() error = %v", err)
	}
	if len(got) != 2 || got[0].Close != 1 {
		t.Errorf("FetchBars() = %+v, want sorted bars", got)
	}

	if _, err := src.FetchBars(context.Background(), "SPY", "5m", "30d"); err != ErrNotFound {
		t.Errorf("FetchBars(SPY) error = %v, want ErrNotFound", err)
	}

	q, err := src.FetchQuote(context.Background(), "TSLA")
	if err != nil {
		t.Fatalf("FetchQuote() error = %v", err)
	}
	if q.Price != 2 || q.Volume != 15 {
		t.Errorf("FetchQuote() = %+v", q)
	}
}

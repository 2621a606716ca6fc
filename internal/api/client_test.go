package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

// Two sessions of 5m bars in reverse order plus one empty interval.
const chartFixture = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "TSLA", "exchangeTimezoneName": "America/New_York", "regularMarketPrice": 251.2},
      "timestamp": [1741615200, 1741614900, 1741615500],
      "indicators": {
        "quote": [{
          "open":   [250.5, 250.0, null],
          "high":   [251.5, 250.8, null],
          "low":    [250.1, 249.5, null],
          "close":  [251.2, 250.4, null],
          "volume": [120000, 95000, null]
        }]
      }
    }],
    "error": null
  }
}`

func newTestClient(url string, retries int) *HTTPClient {
	logger, _ := zap.NewDevelopment()
	return NewClient(url, "Mozilla/5.0", 10, 30*time.Second, 10*time.Millisecond, retries, logger)
}

func TestFetchBars_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "Mozilla/5.0" {
			t.Errorf("expected browser user agent, got %s", r.Header.Get("User-Agent"))
		}

		expectedPath := "/v8/finance/chart/TSLA"
		if r.URL.Path != expectedPath {
			t.Errorf("expected path %s, got %s", expectedPath, r.URL.Path)
		}
		if r.URL.Query().Get("interval") != "5m" || r.URL.Query().Get("range") != "30d" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartFixture))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)

	bars, err := client.FetchBars(context.Background(), "tsla", "5m", "30d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(bars) != 2 {
		t.Fatalf("expected 2 bars (null row skipped), got %d", len(bars))
	}
	if !bars[0].Time.Before(bars[1].Time) {
		t.Error("bars should be sorted by time")
	}
	if bars[0].Close != 250.4 || bars[1].Volume != 120000 {
		t.Errorf("unexpected bars: %+v", bars)
	}
	if bars[0].Time.Location().String() != "America/New_York" {
		t.Errorf("expected exchange timezone, got %s", bars[0].Time.Location())
	}
}

func TestFetchQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") != "30m" || r.URL.Query().Get("range") != "1d" {
			t.Errorf("unexpected quote query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(chartFixture))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 0)
	fixed := time.Date(2025, 3, 10, 14, 5, 0, 0, time.UTC)
	client.now = func() time.Time { return fixed }

	q, err := client.FetchQuote(context.Background(), "TSLA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Price != 251.2 || q.High != 251.5 || q.Low != 250.1 {
		t.Errorf("unexpected quote prices: %+v", q)
	}
	if q.Volume != 215000 {
		t.Errorf("expected summed volume 215000, got %d", q.Volume)
	}
	if q.Timestamp == nil || !q.Timestamp.Equal(fixed) {
		t.Errorf("expected timestamp %v, got %v", fixed, q.Timestamp)
	}
	if len(q.Bars) != 2 {
		t.Errorf("expected 2 display bars, got %d", len(q.Bars))
	}
}

// A symbol with no prints in the requested range.
const emptyChartFixture = `{"chart":{"result":[{"meta":{},"timestamp":[],"indicators":{"quote":[{}]}}],"error":null}}`

func TestDecodeChart_Empty(t *testing.T) {
	bars, err := DecodeChart([]byte(emptyChartFixture))
	if err != nil {
		t.Fatalf("DecodeChart failed: %v", err)
	}
	if bars == nil || len(bars) != 0 {
		t.Errorf("expected empty non-nil bars, got %#v", bars)
	}
}

func TestFetchQuote_NoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(emptyChartFixture))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 0).FetchQuote(context.Background(), "TSLA")
	if !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestFetchBars_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 0).FetchBars(context.Background(), "NOPE", "5m", "30d")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchBars_ChartError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 0).FetchBars(context.Background(), "NOPE", "5m", "30d")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchBars_RateLimited(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 2).FetchBars(context.Background(), "TSLA", "5m", "30d")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", attempts)
	}
}

func TestFetchBars_RetryOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(chartFixture))
	}))
	defer server.Close()

	bars, err := newTestClient(server.URL, 3).FetchBars(context.Background(), "TSLA", "5m", "30d")
	if err != nil {
		t.Fatalf("expected success after retries, got error: %v", err)
	}
	if len(bars) != 2 {
		t.Errorf("expected 2 bars, got %d", len(bars))
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

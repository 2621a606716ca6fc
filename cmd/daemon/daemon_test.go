package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/config"
	"github.com/dgnsrekt/auction-profile/internal/market"
	"github.com/dgnsrekt/auction-profile/internal/profile"
	"github.com/dgnsrekt/auction-profile/internal/recorder"
)

type fakeNotifier struct {
	summaries []string
	failures  []error
}

func (f *fakeNotifier) SendOpportunity(_ context.Context, _ string, _ float64, _ profile.Opportunity) error {
	return nil
}

func (f *fakeNotifier) SendSessionSummary(_ context.Context, _, date string, _ profile.Analytics) error {
	f.summaries = append(f.summaries, date)
	return nil
}

func (f *fakeNotifier) SendFailure(_ context.Context, _, _ string, err error) error {
	f.failures = append(f.failures, err)
	return nil
}

// chartBody renders a chart API payload with one bar per close, five
// minutes apart from open.
func chartBody(t *testing.T, open time.Time, closes, volumes []float64) []byte {
	t.Helper()
	var ts []int64
	var highs, lows []float64
	for i, c := range closes {
		ts = append(ts, open.Add(time.Duration(i)*5*time.Minute).Unix())
		highs = append(highs, c+0.5)
		lows = append(lows, c-0.5)
	}
	body, err := json.Marshal(map[string]any{
		"chart": map[string]any{
			"result": []any{map[string]any{
				"meta":      map[string]any{"symbol": "TSLA", "exchangeTimezoneName": "America/New_York"},
				"timestamp": ts,
				"indicators": map[string]any{"quote": []any{map[string]any{
					"open": closes, "high": highs, "low": lows, "close": closes, "volume": volumes,
				}}},
			}},
			"error": nil,
		},
	})
	require.NoError(t, err)
	return body
}

func newTestDaemon(t *testing.T, handler http.HandlerFunc) (*Daemon, *fakeNotifier, recorder.Recorder) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Source.BaseURL = srv.URL
	cfg.Source.RetryCount = 0
	cfg.Source.RetryDelay = 0
	cfg.Output.Directory = filepath.Join(dir, "data")
	cfg.Download.Symbols = []string{"TSLA"}
	cfg.Download.Intervals = []string{"5m"}
	cfg.Download.Workers = 1

	rec, err := recorder.NewSQLiteRecorder(filepath.Join(dir, "sessions.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })

	cal := market.New("America/New_York")
	// Monday 2025-03-10, 16:30 in New York.
	cal.WithClock(func() time.Time { return time.Date(2025, 3, 10, 20, 30, 0, 0, time.UTC) })

	daemonCfg := &DaemonConfig{
		ScheduleHour:   16,
		ScheduleMinute: 15,
		StateFile:      filepath.Join(dir, ".daemon-state"),
		RetryAfter:     15 * time.Minute,
	}
	notifier := &fakeNotifier{}
	return NewDaemon(cfg, daemonCfg, cal, rec, notifier, zap.NewNop()), notifier, rec
}

func TestDaemonSettlesSession(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	body := chartBody(t, time.Date(2025, 3, 10, 9, 30, 0, 0, ny), []float64{100, 101, 102}, []float64{100, 500, 100})

	var requests int
	d, notifier, rec := newTestDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/v8/finance/chart/TSLA", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	require.True(t, d.shouldRun())
	d.run(context.Background())

	assert.Equal(t, 1, requests)
	assert.Equal(t, []string{"2025-03-10"}, notifier.summaries)
	assert.Empty(t, notifier.failures)
	assert.True(t, d.tracker.AlreadyDownloaded("2025-03-10"))
	assert.False(t, d.shouldRun(), "a settled day is not run twice")

	got, err := rec.GetSession(context.Background(), "TSLA", "2025-03-10")
	require.NoError(t, err)
	require.NotNil(t, got.POC)
	assert.Equal(t, 101.0, *got.POC)
	require.NotNil(t, got.IBHigh)
	assert.Equal(t, 102.5, *got.IBHigh)
}

func TestDaemonFailureBacksOff(t *testing.T) {
	d, notifier, rec := newTestDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	})

	d.run(context.Background())

	require.Len(t, notifier.failures, 1)
	assert.Empty(t, notifier.summaries)
	assert.False(t, d.tracker.AlreadyDownloaded("2025-03-10"))
	assert.False(t, d.shouldRun(), "retry waits for the backoff")

	_, err := rec.GetSession(context.Background(), "TSLA", "2025-03-10")
	assert.True(t, errors.Is(err, recorder.ErrNotFound))
}

func TestSchedulerSkipsWeekend(t *testing.T) {
	cal := market.New("America/New_York")
	// Saturday 2025-03-08, evening in New York.
	cal.WithClock(func() time.Time { return time.Date(2025, 3, 8, 23, 0, 0, 0, time.UTC) })
	s := NewScheduler(16, 15, cal)

	assert.Equal(t, "2025-03-08", s.TodayDate())
	assert.False(t, s.IsMarketDay(s.TodayDate()))
	assert.True(t, s.IsPastScheduledTime())
}

func TestArchiveIntervalsAddsHistory(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Download.Intervals = []string{"30m"}
	cfg.Download.Symbols = []string{"NVDA"}

	assert.Equal(t, []string{"30m", "5m"}, archiveIntervals(cfg))
	assert.Equal(t, []string{"NVDA", "TSLA"}, archiveSymbols(cfg))
}

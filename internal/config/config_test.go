package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected defaults to load, got error: %v", err)
	}

	if cfg.Symbol != "TSLA" {
		t.Errorf("expected default symbol TSLA, got '%s'", cfg.Symbol)
	}
	if cfg.Profile.HistoryInterval != "5m" || cfg.Profile.HistoryRange != "30d" {
		t.Errorf("unexpected history series %s/%s", cfg.Profile.HistoryInterval, cfg.Profile.HistoryRange)
	}
	if cfg.Refresh.QuoteInterval != "30m" || cfg.Refresh.QuoteRange != "1d" {
		t.Errorf("unexpected quote series %s/%s", cfg.Refresh.QuoteInterval, cfg.Refresh.QuoteRange)
	}
	if cfg.Profile.IBBars != 12 {
		t.Errorf("expected 12 IB bars by default, got %d", cfg.Profile.IBBars)
	}
	if cfg.Location().String() != "America/New_York" {
		t.Errorf("expected New York location, got %s", cfg.Location())
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PROFILER_SYMBOL", "SPY")
	t.Setenv("PROFILER_PROFILE_IB_BARS", "6")
	t.Setenv("NTFY_TOKEN", "secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Symbol != "SPY" {
		t.Errorf("expected symbol SPY, got %s", cfg.Symbol)
	}
	if cfg.Profile.IBBars != 6 {
		t.Errorf("expected 6 IB bars, got %d", cfg.Profile.IBBars)
	}
	if cfg.Notify.Token != "secret" {
		t.Errorf("expected notify token from NTFY_TOKEN, got %q", cfg.Notify.Token)
	}
}

func TestLoadFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "profiler.yaml")
	content := []byte("symbol: NVDA\nprofile:\n  previous_session: trading\n  ib_bars: 6\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Symbol != "NVDA" || cfg.Profile.PreviousSession != PreviousTrading || cfg.Profile.IBBars != 6 {
		t.Errorf("file values not applied: %+v", cfg.Profile)
	}
	// Untouched keys keep their defaults.
	if cfg.Refresh.Schedule != "@every 60s" {
		t.Errorf("expected default schedule, got %s", cfg.Refresh.Schedule)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(path, []byte("profile:\n  history_interval: 7m\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for 7m interval")
	}
}

func TestDetectLatestDate(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "dates-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	for _, d := range []string{"2025-03-07", "2025-03-10", "2025-03-11", "notes"} {
		if err := os.MkdirAll(filepath.Join(tmpDir, d), 0755); err != nil {
			t.Fatal(err)
		}
	}
	// Only non-empty folders count.
	for _, d := range []string{"2025-03-07", "2025-03-10"} {
		if err := os.WriteFile(filepath.Join(tmpDir, d, "x.jsonl"), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := DetectLatestDate(tmpDir)
	if err != nil {
		t.Fatalf("DetectLatestDate() error = %v", err)
	}
	if got != "2025-03-10" {
		t.Errorf("DetectLatestDate() = %s, want 2025-03-10", got)
	}

	src := SourceConfig{DataDir: tmpDir, DataDate: "2025-03-07"}
	if got, _ := src.ResolveDataDate(); got != "2025-03-07" {
		t.Errorf("ResolveDataDate() = %s, want explicit date", got)
	}
}

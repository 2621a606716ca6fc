package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// InvalidSetting is a config key holding an unusable value.
type InvalidSetting struct {
	Key    string
	Value  string
	Reason string
}

// ValidationErrors collects all validation errors
type ValidationErrors struct {
	InvalidSymbols   []string
	InvalidIntervals []string
	InvalidRanges    []string
	InvalidSettings  []InvalidSetting
}

// HasErrors returns true if any validation errors exist
func (e *ValidationErrors) HasErrors() bool {
	return len(e.InvalidSymbols) > 0 || len(e.InvalidIntervals) > 0 ||
		len(e.InvalidRanges) > 0 || len(e.InvalidSettings) > 0
}

// Error formats all validation errors into a clear message
func (e *ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")

	if len(e.InvalidSymbols) > 0 {
		sb.WriteString("\nInvalid symbols:\n")
		for _, s := range e.InvalidSymbols {
			sb.WriteString(fmt.Sprintf("  - %q\n", s))
		}
	}

	if len(e.InvalidIntervals) > 0 {
		sb.WriteString("\nInvalid intervals:\n")
		for _, i := range e.InvalidIntervals {
			sb.WriteString(fmt.Sprintf("  - %s\n", i))
		}
		sb.WriteString(fmt.Sprintf("\nValid intervals: %s\n", validIntervalsList()))
	}

	if len(e.InvalidRanges) > 0 {
		sb.WriteString("\nInvalid ranges:\n")
		for _, r := range e.InvalidRanges {
			sb.WriteString(fmt.Sprintf("  - %s\n", r))
		}
		sb.WriteString("\nRanges look like 1d, 30d, 3mo, 1y, ytd or max\n")
	}

	if len(e.InvalidSettings) > 0 {
		sb.WriteString("\nInvalid settings:\n")
		for _, s := range e.InvalidSettings {
			sb.WriteString(fmt.Sprintf("  - %s=%q: %s\n", s.Key, s.Value, s.Reason))
		}
	}

	return sb.String()
}

func (e *ValidationErrors) setting(key, value, reason string) {
	e.InvalidSettings = append(e.InvalidSettings, InvalidSetting{Key: key, Value: value, Reason: reason})
}

func (e *ValidationErrors) interval(key, value string) {
	if !ValidIntervals[value] {
		e.InvalidIntervals = append(e.InvalidIntervals, key+"="+value)
	}
}

func (e *ValidationErrors) rng(key, value string) {
	if !ValidRange(value) {
		e.InvalidRanges = append(e.InvalidRanges, key+"="+value)
	}
}

func (e *ValidationErrors) symbol(value string) {
	if !ValidSymbol(strings.ToUpper(value)) {
		e.InvalidSymbols = append(e.InvalidSymbols, value)
	}
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	errs.symbol(c.Symbol)
	for _, s := range c.Download.Symbols {
		errs.symbol(s)
	}

	errs.interval("refresh.quote_interval", c.Refresh.QuoteInterval)
	errs.interval("profile.history_interval", c.Profile.HistoryInterval)
	for _, i := range c.Download.Intervals {
		errs.interval("download.intervals", i)
	}

	errs.rng("refresh.quote_range", c.Refresh.QuoteRange)
	errs.rng("profile.history_range", c.Profile.HistoryRange)
	errs.rng("download.range", c.Download.Range)

	if !validProviders[c.Source.Provider] {
		errs.setting("source.provider", c.Source.Provider, "must be 'yahoo' or 'file'")
	}
	if c.Source.RatePerSecond < 1 {
		errs.setting("source.rate_per_second", fmt.Sprint(c.Source.RatePerSecond), "must be >= 1")
	}
	if c.Source.RetryCount < 0 {
		errs.setting("source.retry_count", fmt.Sprint(c.Source.RetryCount), "must be >= 0")
	}
	if c.Refresh.Schedule == "" {
		errs.setting("refresh.schedule", "", "is required")
	}
	if c.Profile.IBBars < 1 {
		errs.setting("profile.ib_bars", fmt.Sprint(c.Profile.IBBars), "must be >= 1")
	}
	if _, err := time.LoadLocation(c.Profile.Timezone); err != nil {
		errs.setting("profile.timezone", c.Profile.Timezone, "unknown timezone")
	}
	if !validPreviousModes[c.Profile.PreviousSession] {
		errs.setting("profile.previous_session", c.Profile.PreviousSession, "must be 'calendar' or 'trading'")
	}
	if c.Profile.CacheTTLSec < 0 {
		errs.setting("profile.cache_ttl_sec", fmt.Sprint(c.Profile.CacheTTLSec), "must be >= 0")
	}
	if c.Download.Workers < 1 {
		errs.setting("download.workers", fmt.Sprint(c.Download.Workers), "must be >= 1")
	}
	if c.Notify.Enabled && c.Notify.Topic == "" {
		errs.setting("notify.topic", "", "is required when notify is enabled")
	}
	if c.Notify.Proximity < 0 {
		errs.setting("notify.proximity", fmt.Sprint(c.Notify.Proximity), "must be >= 0")
	}
	if !validEncodings[c.WS.Encoding] {
		errs.setting("ws.encoding", c.WS.Encoding, "must be 'json', 'zstd' or 'proto'")
	}
	if c.Events.Enabled && c.Events.HeartbeatSec < 1 {
		errs.setting("events.heartbeat_sec", fmt.Sprint(c.Events.HeartbeatSec), "must be >= 1")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validIntervalsList() string {
	intervals := make([]string, 0, len(ValidIntervals))
	for i := range ValidIntervals {
		intervals = append(intervals, i)
	}
	sort.Strings(intervals)
	return strings.Join(intervals, ", ")
}

// ValidateDownloadConfig checks download overrides given on the command line.
func ValidateDownloadConfig(symbols, intervals []string, rng string) error {
	verrs := &ValidationErrors{}
	for _, s := range symbols {
		verrs.symbol(s)
	}
	for _, iv := range intervals {
		verrs.interval("--intervals", iv)
	}
	verrs.rng("--range", rng)
	if verrs.HasErrors() {
		return verrs
	}
	return nil
}

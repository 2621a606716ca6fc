package data

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MemorySource serves bar archives written by the fetch command. It replays a
// recorded day without touching the network.
type MemorySource struct {
	bars   map[string][]Bar // key: SYMBOL/interval
	logger *zap.Logger
	now    func() time.Time
}

// NewMemorySource loads every archive under {dataDir}/{date}.
// Layout: {dataDir}/{date}/{SYMBOL}/{interval}.jsonl
func NewMemorySource(dataDir, date string, logger *zap.Logger) (*MemorySource, error) {
	source := &MemorySource{
		bars:   make(map[string][]Bar),
		logger: logger,
		now:    time.Now,
	}

	dateDir := filepath.Join(dataDir, date)

	err := filepath.Walk(dateDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".jsonl" {
			return nil
		}

		rel, _ := filepath.Rel(dateDir, path)
		// rel = "TSLA/5m.jsonl"
		symbol := filepath.Dir(rel)
		interval := strings.TrimSuffix(filepath.Base(rel), ".jsonl")
		key := memoryKey(symbol, interval)

		bars, err := LoadBarsFile(path)
		if err != nil {
			logger.Warn("failed to load file", zap.String("path", path), zap.Error(err))
			return nil
		}

		source.bars[key] = bars
		logger.Info("loaded bars",
			zap.String("key", key),
			zap.Int("count", len(bars)),
		)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("walking data directory: %w", err)
	}

	if len(source.bars) == 0 {
		return nil, fmt.Errorf("no JSONL files found in %s", dateDir)
	}

	return source, nil
}

// NewMemorySourceFromBars builds a source from in-memory series keyed by
// symbol and interval.
func NewMemorySourceFromBars(series map[string]map[string][]Bar, logger *zap.Logger) *MemorySource {
	source := &MemorySource{
		bars:   make(map[string][]Bar),
		logger: logger,
		now:    time.Now,
	}
	for symbol, byInterval := range series {
		for interval, bars := range byInterval {
			source.bars[memoryKey(symbol, interval)] = bars
		}
	}
	return source
}

func memoryKey(symbol, interval string) string {
	return NormalizeSymbol(symbol) + "/" + interval
}

// FetchBars returns the archived series. The range argument is ignored; an
// archive always holds exactly what was fetched.
func (m *MemorySource) FetchBars(_ context.Context, symbol, interval, _ string) ([]Bar, error) {
	bars, ok := m.bars[memoryKey(symbol, interval)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Bar, len(bars))
	copy(out, bars)
	return out, nil
}

// FetchQuote builds a snapshot from the last archived session of the
// finest interval available for symbol.
func (m *MemorySource) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	intervals := m.Intervals(symbol)
	if len(intervals) == 0 {
		return nil, ErrNotFound
	}

	bars, err := m.FetchBars(ctx, symbol, intervals[0], "")
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, ErrNoBars
	}

	loc := bars[len(bars)-1].Time.Location()
	lastDay := SessionDate(bars[len(bars)-1].Time, loc)
	return QuoteFromBars(NormalizeSymbol(symbol), SessionBars(bars, lastDay, loc), m.now()), nil
}

// Intervals returns the archived intervals for symbol, shortest first.
func (m *MemorySource) Intervals(symbol string) []string {
	prefix := NormalizeSymbol(symbol) + "/"
	var intervals []string
	for k := range m.bars {
		if strings.HasPrefix(k, prefix) {
			intervals = append(intervals, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Slice(intervals, func(i, j int) bool {
		return intervalDuration(intervals[i]) < intervalDuration(intervals[j])
	})
	return intervals
}

// GetLoadedKeys returns all loaded series keys.
func (m *MemorySource) GetLoadedKeys() []string {
	keys := make([]string, 0, len(m.bars))
	for k := range m.bars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func intervalDuration(interval string) time.Duration {
	switch {
	case strings.HasSuffix(interval, "wk"):
		return 7 * 24 * time.Hour
	case strings.HasSuffix(interval, "mo"):
		return 30 * 24 * time.Hour
	case strings.HasSuffix(interval, "d"):
		return 24 * time.Hour
	}
	if d, err := time.ParseDuration(interval); err == nil {
		return d
	}
	return time.Duration(1<<63 - 1)
}

var (
	_ BarSource   = (*MemorySource)(nil)
	_ QuoteSource = (*MemorySource)(nil)
)

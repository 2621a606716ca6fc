package data

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound = errors.New("data not found")
	ErrNoBars   = errors.New("no bars returned")
)

// BarSource provides bar series for an instrument.
type BarSource interface {
	// FetchBars returns bars for symbol at the given interval covering rng
	// (provider notation, e.g. "5m" and "30d"), ordered by time.
	FetchBars(ctx context.Context, symbol, interval, rng string) ([]Bar, error)
}

// QuoteSource provides the latest-data snapshot for an instrument.
type QuoteSource interface {
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)
}

// Source serves both history and quote snapshots.
type Source interface {
	BarSource
	QuoteSource
}

// SeriesKey creates a unique key for symbol/interval/range
func SeriesKey(symbol, interval, rng string) string {
	return NormalizeSymbol(symbol) + "/" + interval + "/" + rng
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

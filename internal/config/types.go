package config

import "regexp"

const (
	ProviderYahoo = "yahoo"
	ProviderFile  = "file"

	PreviousCalendar = "calendar"
	PreviousTrading  = "trading"

	EncodingJSON  = "json"
	EncodingZstd  = "zstd"
	EncodingProto = "proto"
)

// ValidIntervals lists the bar intervals the chart API serves.
var ValidIntervals = map[string]bool{
	"1m": true, "2m": true, "5m": true, "15m": true, "30m": true,
	"60m": true, "90m": true, "1h": true, "1d": true, "5d": true,
	"1wk": true, "1mo": true, "3mo": true,
}

// rangePattern matches chart API ranges such as 1d, 30d, 3mo, 1y, ytd, max.
var rangePattern = regexp.MustCompile(`^(\d+(d|mo|y)|ytd|max)$`)

// symbolPattern accepts plain tickers and index symbols such as ^GSPC or BRK-B.
var symbolPattern = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9.\-=]{0,14}$`)

// ValidRange reports whether rng is a chart API range.
func ValidRange(rng string) bool {
	return rangePattern.MatchString(rng)
}

// ValidSymbol reports whether symbol looks like a ticker.
func ValidSymbol(symbol string) bool {
	return symbolPattern.MatchString(symbol)
}

var validProviders = map[string]bool{ProviderYahoo: true, ProviderFile: true}

var validPreviousModes = map[string]bool{PreviousCalendar: true, PreviousTrading: true}

var validEncodings = map[string]bool{EncodingJSON: true, EncodingZstd: true, EncodingProto: true}

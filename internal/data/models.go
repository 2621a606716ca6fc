package data

import "time"

// Bar is one OHLCV interval. Series are ordered by Time ascending.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Quote is the latest-data snapshot served alongside the analytics: last bar
// prices, summed session volume, refresh time and the display bars.
type Quote struct {
	Symbol    string     `json:"symbol"`
	Price     float64    `json:"price"`
	High      float64    `json:"high"`
	Low       float64    `json:"low"`
	Volume    int64      `json:"volume"`
	Timestamp *time.Time `json:"timestamp"`
	Bars      []Bar      `json:"bars"`
}

// EmptyQuote is the snapshot served before the first successful refresh.
func EmptyQuote(symbol string) *Quote {
	return &Quote{Symbol: symbol, Bars: []Bar{}}
}

// QuoteFromBars builds a snapshot from a bar series. Price, high and low come
// from the last bar; volume is summed over the whole series.
func QuoteFromBars(symbol string, bars []Bar, at time.Time) *Quote {
	if len(bars) == 0 {
		return EmptyQuote(symbol)
	}

	last := bars[len(bars)-1]
	var volume float64
	for _, b := range bars {
		volume += b.Volume
	}

	ts := at
	return &Quote{
		Symbol:    symbol,
		Price:     last.Close,
		High:      last.High,
		Low:       last.Low,
		Volume:    int64(volume),
		Timestamp: &ts,
		Bars:      bars,
	}
}

// HasPrice reports whether the snapshot carries a usable live price.
func (q *Quote) HasPrice() bool {
	return q != nil && q.Timestamp != nil && q.Price > 0
}

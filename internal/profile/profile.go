package profile

import (
	"math"
	"sort"

	"github.com/dgnsrekt/auction-profile/internal/data"
)

const (
	// ValueAreaShare is the fraction of session volume the value area covers.
	ValueAreaShare = 0.70

	minSessionRange = 1e-9
)

// SessionProfile is the volume profile of one session. Every number is nil
// when it cannot be computed; Tails is never nil.
type SessionProfile struct {
	POC           *float64 `json:"poc"`
	ValueAreaHigh *float64 `json:"value_area_high"`
	ValueAreaLow  *float64 `json:"value_area_low"`
	SessionHigh   *float64 `json:"session_high"`
	SessionLow    *float64 `json:"session_low"`
	Tails         []Tail   `json:"tails"`
}

// SessionStats is a SessionProfile without its tails.
type SessionStats struct {
	POC           *float64 `json:"poc"`
	ValueAreaHigh *float64 `json:"value_area_high"`
	ValueAreaLow  *float64 `json:"value_area_low"`
	SessionHigh   *float64 `json:"session_high"`
	SessionLow    *float64 `json:"session_low"`
}

// Stats drops the tails.
func (p SessionProfile) Stats() SessionStats {
	return SessionStats{
		POC:           p.POC,
		ValueAreaHigh: p.ValueAreaHigh,
		ValueAreaLow:  p.ValueAreaLow,
		SessionHigh:   p.SessionHigh,
		SessionLow:    p.SessionLow,
	}
}

// Range is the session range floored at a tiny positive value, or 0 when the
// session extremes are unknown.
func (p SessionProfile) Range() float64 {
	if p.SessionHigh == nil || p.SessionLow == nil {
		return 0
	}
	return math.Max(*p.SessionHigh-*p.SessionLow, minSessionRange)
}

func emptyProfile() SessionProfile {
	return SessionProfile{Tails: []Tail{}}
}

// Calculate computes POC, value area and session extremes for a session's
// bars. Tails are left empty; see Build.
func Calculate(bars []data.Bar) SessionProfile {
	p := emptyProfile()
	if len(bars) == 0 {
		return p
	}

	high, low := extremes(bars)
	p.SessionHigh = ptr(high)
	p.SessionLow = ptr(low)

	total := totalVolume(bars)
	if total <= 0 {
		return p
	}

	// POC: close of the highest-volume bar, earliest wins ties.
	pocIdx := 0
	for i := 1; i < len(bars); i++ {
		if bars[i].Volume > bars[pocIdx].Volume {
			pocIdx = i
		}
	}
	p.POC = ptr(bars[pocIdx].Close)

	vah, val := valueArea(bars, total)
	p.ValueAreaHigh = ptr(vah)
	p.ValueAreaLow = ptr(val)
	return p
}

// Build computes the full profile including tails.
func Build(bars []data.Bar) SessionProfile {
	p := Calculate(bars)
	p.Tails = DetectTails(bars, p)
	return p
}

// valueArea takes bars by descending volume (stable on ties) until the
// running volume reaches ValueAreaShare of total, and returns the highest
// and lowest close among them.
func valueArea(bars []data.Bar, total float64) (high, low float64) {
	order := make([]int, len(bars))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return bars[order[a]].Volume > bars[order[b]].Volume
	})

	target := ValueAreaShare * total
	high, low = math.Inf(-1), math.Inf(1)
	var acc float64
	for _, i := range order {
		acc += bars[i].Volume
		high = math.Max(high, bars[i].Close)
		low = math.Min(low, bars[i].Close)
		if acc >= target {
			break
		}
	}
	return high, low
}

func extremes(bars []data.Bar) (high, low float64) {
	high, low = bars[0].High, bars[0].Low
	for _, b := range bars[1:] {
		high = math.Max(high, b.High)
		low = math.Min(low, b.Low)
	}
	return high, low
}

func totalVolume(bars []data.Bar) float64 {
	var total float64
	for _, b := range bars {
		total += b.Volume
	}
	return total
}

package profile

import (
	"math"
	"sort"
	"time"

	"github.com/dgnsrekt/auction-profile/internal/data"
)

// TailKind is the side of the value area a tail sits on.
type TailKind string

const (
	BuyingTail  TailKind = "buying_tail"
	SellingTail TailKind = "selling_tail"
)

const (
	minBinSize      = 0.10
	binsPerRange    = 100
	maxTailBars     = 2
	minTailDistance = 0.02 // fraction of session range away from POC

	participationWeight = 0.6
	distanceWeight      = 0.4
)

// TailPrints is the activity recorded at a tail's price level.
type TailPrints struct {
	Bars   int   `json:"bars"`
	Volume int64 `json:"volume"`
}

// Tail is an unfilled single-print extreme outside the value area.
type Tail struct {
	Price      float64    `json:"price"`
	Kind       TailKind   `json:"type"`
	Confidence float64    `json:"confidence"`
	AtPrice    TailPrints `json:"tails_at_price"`
}

// priceLevel aggregates the bars whose close rounds to one bin.
type priceLevel struct {
	price    float64
	bars     int
	volume   float64
	lastSeen time.Time
}

// binLevels groups bars by close rounded to a multiple of binSize and
// returns the bin indexes in ascending price order.
func binLevels(bars []data.Bar, binSize float64) (map[int64]*priceLevel, []int64) {
	levels := make(map[int64]*priceLevel)
	for _, b := range bars {
		idx := int64(math.RoundToEven(b.Close / binSize))
		lvl, ok := levels[idx]
		if !ok {
			lvl = &priceLevel{price: float64(idx) * binSize, lastSeen: b.Time}
			levels[idx] = lvl
		}
		lvl.bars++
		lvl.volume += b.Volume
		if b.Time.After(lvl.lastSeen) {
			lvl.lastSeen = b.Time
		}
	}

	keys := make([]int64, 0, len(levels))
	for k := range levels {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return levels, keys
}

// DetectTails finds buying tails below the value area and selling tails above
// it. A level qualifies when it holds at most two bars, sits at least 2% of
// the session range from the POC and has not been revisited by any later bar.
// Buying tails come first in ascending price, then selling tails descending.
func DetectTails(bars []data.Bar, p SessionProfile) []Tail {
	tails := []Tail{}
	if len(bars) == 0 || p.POC == nil || p.ValueAreaHigh == nil || p.ValueAreaLow == nil {
		return tails
	}
	total := totalVolume(bars)
	rng := p.Range()
	if total <= 0 || rng <= 0 {
		return tails
	}

	poc, vah, val := *p.POC, *p.ValueAreaHigh, *p.ValueAreaLow
	binSize := math.Max(rng/binsPerRange, minBinSize)
	minDistance := minTailDistance * rng
	levels, keys := binLevels(bars, binSize)

	for _, k := range keys {
		lvl := levels[k]
		if lvl.price >= val || lvl.bars > maxTailBars {
			continue
		}
		distance := poc - lvl.price
		if distance < minDistance || !unfilledBelow(bars, lvl) {
			continue
		}
		price := round2(lvl.price)
		if price >= val {
			continue
		}
		tails = append(tails, newTail(BuyingTail, price, lvl, total, distance, rng))
	}

	for i := len(keys) - 1; i >= 0; i-- {
		lvl := levels[keys[i]]
		if lvl.price <= vah || lvl.bars > maxTailBars {
			continue
		}
		distance := lvl.price - poc
		if distance < minDistance || !unfilledAbove(bars, lvl) {
			continue
		}
		price := round2(lvl.price)
		if price <= vah {
			continue
		}
		tails = append(tails, newTail(SellingTail, price, lvl, total, distance, rng))
	}

	return tails
}

func newTail(kind TailKind, price float64, lvl *priceLevel, total, distance, rng float64) Tail {
	return Tail{
		Price:      price,
		Kind:       kind,
		Confidence: Confidence(lvl.volume, total, distance, rng),
		AtPrice:    TailPrints{Bars: lvl.bars, Volume: int64(lvl.volume)},
	}
}

// unfilledBelow reports whether no bar after the level's last print traded
// at or below it.
func unfilledBelow(bars []data.Bar, lvl *priceLevel) bool {
	for _, b := range bars {
		if b.Time.After(lvl.lastSeen) && b.Low <= lvl.price {
			return false
		}
	}
	return true
}

// unfilledAbove reports whether no bar after the level's last print traded
// at or above it.
func unfilledAbove(bars []data.Bar, lvl *priceLevel) bool {
	for _, b := range bars {
		if b.Time.After(lvl.lastSeen) && b.High >= lvl.price {
			return false
		}
	}
	return true
}

// Confidence scores a tail: low participation at the level and a large
// distance from the POC both raise it. The result is clamped to [0, 1] and
// rounded to three decimals.
func Confidence(volumeAtPrice, totalVolume, distanceFromPOC, sessionRange float64) float64 {
	if totalVolume <= 0 || sessionRange <= 0 {
		return 0
	}
	participation := volumeAtPrice / totalVolume
	distanceScore := math.Min(1, math.Abs(distanceFromPOC)/sessionRange)
	return round3(clamp01((1-participation)*participationWeight + distanceScore*distanceWeight))
}

package profile

import (
	"math"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/auction-profile/internal/data"
)

var sessionOpen = time.Date(2025, 3, 10, 13, 30, 0, 0, time.UTC)

// bar builds a five-minute bar at slot i of the test session.
func bar(i int, high, low, close, volume float64) data.Bar {
	return data.Bar{
		Time:   sessionOpen.Add(time.Duration(i) * 5 * time.Minute),
		Open:   close,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: volume,
	}
}

func randomSession(r *rand.Rand, n int) []data.Bar {
	bars := make([]data.Bar, n)
	price := 200.0
	for i := range bars {
		price += r.NormFloat64() * 0.8
		high := price + r.Float64()*1.5
		low := price - r.Float64()*1.5
		bars[i] = bar(i, high, low, price, float64(r.Intn(50000)))
	}
	return bars
}

func TestCalculateEmpty(t *testing.T) {
	p := Calculate(nil)
	assert.Nil(t, p.POC)
	assert.Nil(t, p.ValueAreaHigh)
	assert.Nil(t, p.ValueAreaLow)
	assert.Nil(t, p.SessionHigh)
	assert.Nil(t, p.SessionLow)
	assert.NotNil(t, p.Tails)
	assert.Empty(t, p.Tails)

	tails := DetectTails(nil, Calculate(nil))
	assert.NotNil(t, tails)
	assert.Empty(t, tails)
}

func TestCalculateZeroVolume(t *testing.T) {
	bars := []data.Bar{
		bar(0, 101, 99, 100, 0),
		bar(1, 103, 100, 102, 0),
	}

	p := Build(bars)
	require.NotNil(t, p.SessionHigh)
	require.NotNil(t, p.SessionLow)
	assert.Equal(t, 103.0, *p.SessionHigh)
	assert.Equal(t, 99.0, *p.SessionLow)
	assert.Nil(t, p.POC)
	assert.Nil(t, p.ValueAreaHigh)
	assert.Nil(t, p.ValueAreaLow)
	assert.Empty(t, p.Tails)
}

func TestCalculatePOCTieTakesEarliest(t *testing.T) {
	bars := []data.Bar{
		bar(0, 101, 99, 100, 10),
		bar(1, 106, 104, 105, 300),
		bar(2, 111, 109, 110, 300),
	}

	p := Calculate(bars)
	require.NotNil(t, p.POC)
	assert.Equal(t, 105.0, *p.POC)
}

func TestBuildSellingTailScenario(t *testing.T) {
	bars := []data.Bar{
		bar(0, 100.5, 99, 100, 500),
		bar(1, 100.4, 99.8, 100.2, 10),
		bar(2, 108, 100.2, 107, 5),
	}

	p := Build(bars)
	require.NotNil(t, p.POC)
	assert.InDelta(t, 100.0, *p.POC, 1e-9)
	assert.InDelta(t, 100.0, *p.ValueAreaHigh, 1e-9)
	assert.InDelta(t, 100.0, *p.ValueAreaLow, 1e-9)

	require.Len(t, p.Tails, 1)
	tail := p.Tails[0]
	assert.Equal(t, SellingTail, tail.Kind)
	assert.Equal(t, 107.0, tail.Price)
	assert.Equal(t, 1, tail.AtPrice.Bars)
	assert.Equal(t, int64(5), tail.AtPrice.Volume)
	assert.InDelta(t, 0.6*(1-5.0/515)+0.4*(7.0/9), tail.Confidence, 0.001)
	assert.Equal(t, 0.905, tail.Confidence)
}

func TestBuildBuyingTail(t *testing.T) {
	bars := []data.Bar{
		bar(0, 95.5, 94.5, 95, 5),
		bar(1, 101, 99, 100, 500),
		bar(2, 101, 99, 100, 500),
	}

	p := Build(bars)
	require.Len(t, p.Tails, 1)
	assert.Equal(t, BuyingTail, p.Tails[0].Kind)
	assert.Equal(t, 95.0, p.Tails[0].Price)
	assert.Equal(t, 0.905, p.Tails[0].Confidence)
}

func TestBuildFilledTailIsDropped(t *testing.T) {
	bars := []data.Bar{
		bar(0, 95.5, 94.5, 95, 5),
		bar(1, 101, 99, 100, 500),
		bar(2, 101, 99, 100, 500),
		// Trades back through 95 later in the session.
		bar(3, 101, 94.9, 100, 10),
	}

	p := Build(bars)
	assert.Empty(t, p.Tails)
}

func TestBuildIdenticalBars(t *testing.T) {
	bars := make([]data.Bar, 5)
	for i := range bars {
		bars[i] = bar(i, 100.5, 99.5, 100, 100)
	}

	p := Build(bars)
	require.NotNil(t, p.POC)
	assert.Equal(t, 100.0, *p.POC)
	assert.Equal(t, 100.0, *p.ValueAreaHigh)
	assert.Equal(t, 100.0, *p.ValueAreaLow)
	assert.Empty(t, p.Tails)
}

func TestBuildIsDeterministic(t *testing.T) {
	bars := randomSession(rand.New(rand.NewSource(7)), 78)
	assert.Equal(t, Build(bars), Build(bars))
}

func TestValueAreaIsMinimalPrefix(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		bars := randomSession(r, 10+r.Intn(80))
		p := Calculate(bars)
		if p.POC == nil {
			continue
		}

		order := make([]data.Bar, len(bars))
		copy(order, bars)
		sort.SliceStable(order, func(i, j int) bool { return order[i].Volume > order[j].Volume })

		var total float64
		for _, b := range bars {
			total += b.Volume
		}

		var acc float64
		wantHigh, wantLow := math.Inf(-1), math.Inf(1)
		k := 0
		for acc < ValueAreaShare*total {
			acc += order[k].Volume
			wantHigh = math.Max(wantHigh, order[k].Close)
			wantLow = math.Min(wantLow, order[k].Close)
			k++
		}
		// One bar fewer must fall short of the target.
		assert.Less(t, acc-order[k-1].Volume, ValueAreaShare*total, "trial %d", trial)
		assert.Equal(t, wantHigh, *p.ValueAreaHigh, "trial %d", trial)
		assert.Equal(t, wantLow, *p.ValueAreaLow, "trial %d", trial)
		assert.LessOrEqual(t, *p.ValueAreaLow, *p.ValueAreaHigh, "trial %d", trial)
		assert.LessOrEqual(t, *p.ValueAreaLow, *p.POC, "trial %d", trial)
		assert.GreaterOrEqual(t, *p.ValueAreaHigh, *p.POC, "trial %d", trial)
	}
}

func TestTailInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	for trial := 0; trial < 100; trial++ {
		bars := randomSession(r, 5+r.Intn(100))
		p := Build(bars)

		for _, tail := range p.Tails {
			assert.GreaterOrEqual(t, tail.Confidence, 0.0)
			assert.LessOrEqual(t, tail.Confidence, 1.0)
			assert.LessOrEqual(t, tail.AtPrice.Bars, 2)
			switch tail.Kind {
			case BuyingTail:
				assert.Less(t, tail.Price, *p.ValueAreaLow, "trial %d", trial)
			case SellingTail:
				assert.Greater(t, tail.Price, *p.ValueAreaHigh, "trial %d", trial)
			default:
				t.Fatalf("unexpected tail kind %q", tail.Kind)
			}
		}

		// Buying tails precede selling tails.
		seenSelling := false
		for _, tail := range p.Tails {
			if tail.Kind == SellingTail {
				seenSelling = true
			} else {
				assert.False(t, seenSelling, "buying tail after selling tail in trial %d", trial)
			}
		}
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name                        string
		vol, total, dist, rng, want float64
	}{
		{"no volume", 5, 0, 7, 9, 0},
		{"no range", 5, 515, 7, 0, 0},
		{"far and thin", 0, 100, 50, 10, 1},
		{"all volume at level", 100, 100, 0, 10, 0},
		{"negative distance uses magnitude", 5, 515, -7, 9, 0.905},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Confidence(tt.vol, tt.total, tt.dist, tt.rng)
			assert.Equal(t, tt.want, got)
			assert.False(t, math.IsNaN(got))
		})
	}
}

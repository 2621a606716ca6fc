package profile

import "github.com/dgnsrekt/auction-profile/internal/data"

// DefaultIBBars is one hour of five-minute bars.
const DefaultIBBars = 12

// InitialBalance is the range of the session's opening bars.
type InitialBalance struct {
	High  *float64 `json:"high"`
	Low   *float64 `json:"low"`
	Range *float64 `json:"range"`
}

// Extensions flags whether the live price has left the initial balance.
type Extensions struct {
	AboveIB bool `json:"above_ib"`
	BelowIB bool `json:"below_ib"`
}

// InitialBalanceOf returns the high, low and range of the first n bars, or of
// all bars when fewer than n exist. It is all nil for no bars or n < 1.
func InitialBalanceOf(bars []data.Bar, n int) InitialBalance {
	n = min(n, len(bars))
	if n < 1 {
		return InitialBalance{}
	}

	high, low := extremes(bars[:n])
	return InitialBalance{
		High:  ptr(high),
		Low:   ptr(low),
		Range: ptr(high - low),
	}
}

// ExtensionsOf compares price against the initial balance. Both flags are
// false when either side is unknown.
func ExtensionsOf(ib InitialBalance, price *float64) Extensions {
	if ib.High == nil || ib.Low == nil || price == nil {
		return Extensions{}
	}
	return Extensions{
		AboveIB: *price > *ib.High,
		BelowIB: *price < *ib.Low,
	}
}

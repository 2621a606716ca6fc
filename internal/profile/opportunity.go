package profile

import "math"

// Opportunity is the tail nearest the live price and the POC it would
// revert to.
type Opportunity struct {
	Kind                     *TailKind `json:"type"`
	Price                    *float64  `json:"price"`
	DistanceFromCurrentPrice *float64  `json:"distance_from_current_price"`
	Confidence               *float64  `json:"confidence"`
	ReversionTarget          *float64  `json:"reversion_target"`
}

// Empty reports whether no tail was selected.
func (o Opportunity) Empty() bool {
	return o.Kind == nil
}

// Rank selects the tail closest to price. Distance is signed: positive when
// the tail is above the price. With no tails, price or POC the result is
// empty, carrying the POC as reversion target when known.
func Rank(tails []Tail, price, poc *float64) Opportunity {
	if len(tails) == 0 || price == nil || poc == nil {
		return Opportunity{ReversionTarget: poc}
	}

	best := -1
	bestDist := math.Inf(1)
	for i, t := range tails {
		if d := math.Abs(*price - t.Price); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Opportunity{ReversionTarget: poc}
	}

	t := tails[best]
	kind := t.Kind
	return Opportunity{
		Kind:                     &kind,
		Price:                    ptr(t.Price),
		DistanceFromCurrentPrice: ptr(round2(t.Price - *price)),
		Confidence:               ptr(t.Confidence),
		ReversionTarget:          poc,
	}
}

// CurrentTail is the last detected tail and its distance from the POC.
type CurrentTail struct {
	Kind            *TailKind `json:"type"`
	Price           *float64  `json:"price"`
	DistanceFromPOC *float64  `json:"distance_from_poc"`
}

// LastTail reports the final element of tails, which is the lowest selling
// tail when any exist and otherwise the highest buying tail.
func LastTail(tails []Tail, poc *float64) CurrentTail {
	if len(tails) == 0 || poc == nil {
		return CurrentTail{}
	}
	t := tails[len(tails)-1]
	kind := t.Kind
	return CurrentTail{
		Kind:            &kind,
		Price:           ptr(t.Price),
		DistanceFromPOC: ptr(round2(t.Price - *poc)),
	}
}

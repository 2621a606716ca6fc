package profile

import (
	"time"

	"github.com/dgnsrekt/auction-profile/internal/data"
)

const minPreviousBars = 2

// PreviousDayFunc maps a session date to the date of the session before it.
type PreviousDayFunc func(day time.Time) time.Time

// CalendarDay steps back one calendar day.
func CalendarDay(day time.Time) time.Time {
	return day.AddDate(0, 0, -1)
}

// TailRef is a tail reduced to its location.
type TailRef struct {
	Price float64  `json:"price"`
	Kind  TailKind `json:"type"`
}

// PreviousSession is the compact profile of the prior session.
type PreviousSession struct {
	POC           *float64  `json:"poc"`
	ValueAreaHigh *float64  `json:"value_area_high"`
	ValueAreaLow  *float64  `json:"value_area_low"`
	Tails         []TailRef `json:"tails"`
}

func emptyPrevious() PreviousSession {
	return PreviousSession{Tails: []TailRef{}}
}

// Previous profiles the session before ref. Sessions with fewer than two bars
// are reported as empty.
func Previous(bars []data.Bar, ref time.Time, loc *time.Location, prevDay PreviousDayFunc) PreviousSession {
	if prevDay == nil {
		prevDay = CalendarDay
	}

	day := prevDay(data.SessionDate(ref, loc))
	session := data.SessionBars(bars, day, loc)
	if len(session) < minPreviousBars {
		return emptyPrevious()
	}

	p := Build(session)
	out := PreviousSession{
		POC:           p.POC,
		ValueAreaHigh: p.ValueAreaHigh,
		ValueAreaLow:  p.ValueAreaLow,
		Tails:         make([]TailRef, 0, len(p.Tails)),
	}
	for _, t := range p.Tails {
		out.Tails = append(out.Tails, TailRef{Price: t.Price, Kind: t.Kind})
	}
	return out
}

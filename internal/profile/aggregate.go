package profile

import (
	"time"

	"github.com/dgnsrekt/auction-profile/internal/data"
)

// Options controls how a history is split into sessions.
type Options struct {
	// IBBars is the number of opening bars forming the initial balance.
	IBBars int
	// Location defines the exchange calendar day bars are grouped by.
	Location *time.Location
	// PreviousDay selects the prior session date; CalendarDay when nil.
	PreviousDay PreviousDayFunc
}

// DefaultOptions groups sessions by New York date with a one-hour IB.
func DefaultOptions() Options {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return Options{
		IBBars:      DefaultIBBars,
		Location:    loc,
		PreviousDay: CalendarDay,
	}
}

// Analytics is the full session report.
type Analytics struct {
	CurrentTail     CurrentTail     `json:"current_tail"`
	Opportunity     Opportunity     `json:"current_tail_opportunity"`
	SessionStats    SessionStats    `json:"session_stats"`
	AllTails        []Tail          `json:"all_tails"`
	InitialBalance  InitialBalance  `json:"initial_balance"`
	Extensions      Extensions      `json:"extensions"`
	PreviousSession PreviousSession `json:"previous_session"`
}

// EmptyAnalytics is the report with every field at its default.
func EmptyAnalytics() Analytics {
	return Analytics{
		AllTails:        []Tail{},
		PreviousSession: emptyPrevious(),
	}
}

// Aggregate builds the report for the session containing ref from a
// multi-day history. price is the live price, nil when unknown. Missing
// inputs degrade individual fields to their defaults; it never fails.
func Aggregate(history []data.Bar, price *float64, ref time.Time, opts Options) Analytics {
	out := EmptyAnalytics()
	if len(history) == 0 {
		return out
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	today := data.SessionBars(history, data.SessionDate(ref, opts.Location), opts.Location)

	p := Build(today)
	out.SessionStats = p.Stats()
	out.AllTails = p.Tails

	out.InitialBalance = InitialBalanceOf(today, opts.IBBars)
	out.Extensions = ExtensionsOf(out.InitialBalance, price)

	out.PreviousSession = Previous(history, ref, opts.Location, opts.PreviousDay)

	out.CurrentTail = LastTail(p.Tails, p.POC)
	out.Opportunity = Rank(p.Tails, price, p.POC)
	return out
}

// LivePrice returns q's price when the snapshot carries one.
func LivePrice(q *data.Quote) *float64 {
	if !q.HasPrice() {
		return nil
	}
	return ptr(q.Price)
}

package data

import (
	"sort"
	"time"
)

// SessionDate returns midnight of t's calendar date in loc.
func SessionDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// SameSession reports whether t falls on day's calendar date in loc.
func SameSession(t, day time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	ty, tm, td := t.In(loc).Date()
	dy, dm, dd := day.In(loc).Date()
	return ty == dy && tm == dm && td == dd
}

// SessionBars returns the bars whose time falls on day in loc, preserving order.
func SessionBars(bars []Bar, day time.Time, loc *time.Location) []Bar {
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if SameSession(b.Time, day, loc) {
			out = append(out, b)
		}
	}
	return out
}

// SessionDays lists the distinct session dates present in bars, oldest first.
func SessionDays(bars []Bar, loc *time.Location) []time.Time {
	var days []time.Time
	seen := make(map[time.Time]bool)
	for _, b := range bars {
		d := SessionDate(b.Time, loc)
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

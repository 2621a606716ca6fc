package market

import (
	"time"

	"github.com/scmhub/calendar"
)

const (
	dateLayout = "2006-01-02"

	// Longest run of consecutive non-trading days searched when stepping back.
	maxClosedRun = 10
)

// Calendar answers trading-day questions for the NYSE in a fixed timezone.
type Calendar struct {
	location *time.Location
	nyse     *calendar.Calendar
	now      func() time.Time
}

// New creates a calendar for timezone, falling back to UTC when it cannot be
// loaded.
func New(timezone string) *Calendar {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Calendar{
		location: loc,
		nyse:     calendar.XNYS(),
		now:      time.Now,
	}
}

// WithClock replaces the time source, for replaying a fixed moment.
func (c *Calendar) WithClock(now func() time.Time) *Calendar {
	c.now = now
	return c
}

// Location returns the calendar's timezone location
func (c *Calendar) Location() *time.Location {
	return c.location
}

// Now returns the current time in the calendar's timezone.
func (c *Calendar) Now() time.Time {
	return c.now().In(c.location)
}

// TodayDate returns today's date in YYYY-MM-DD format in the configured timezone
func (c *Calendar) TodayDate() string {
	return c.Now().Format(dateLayout)
}

// ParseDate parses a YYYY-MM-DD date as midnight in the calendar's timezone.
func (c *Calendar) ParseDate(dateStr string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, dateStr, c.location)
}

// IsMarketDay checks if the given date is a trading day (not weekend/holiday)
func (c *Calendar) IsMarketDay(dateStr string) bool {
	t, err := c.ParseDate(dateStr)
	if err != nil {
		return false
	}
	return c.IsTradingDay(t)
}

// IsTradingDay reports whether t's date in the calendar's timezone is a
// trading day.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	// Check at noon so the date cannot slip across a timezone boundary.
	y, m, d := t.In(c.location).Date()
	return c.nyse.IsBusinessDay(time.Date(y, m, d, 12, 0, 0, 0, c.location))
}

// InRegularHours reports whether t falls inside the 09:30–16:00 session of a
// trading day.
func (c *Calendar) InRegularHours(t time.Time) bool {
	if !c.IsTradingDay(t) {
		return false
	}
	local := t.In(c.location)
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= 9*60+30 && minutes < 16*60
}

// PreviousTradingDay returns midnight of the last trading day strictly before
// day. If none is found within a reasonable window it returns the prior
// calendar day.
func (c *Calendar) PreviousTradingDay(day time.Time) time.Time {
	y, m, d := day.In(c.location).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, c.location)
	for i := 1; i <= maxClosedRun; i++ {
		candidate := start.AddDate(0, 0, -i)
		if c.IsTradingDay(candidate) {
			return candidate
		}
	}
	return start.AddDate(0, 0, -1)
}

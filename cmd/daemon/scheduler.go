package main

import (
	"time"

	"github.com/dgnsrekt/auction-profile/internal/market"
)

// Scheduler decides when the end-of-day run is due on NYSE trading days.
type Scheduler struct {
	hour     int
	minute   int
	calendar *market.Calendar
}

// NewScheduler creates a scheduler firing at hour:minute in the calendar's timezone
func NewScheduler(hour, minute int, cal *market.Calendar) *Scheduler {
	return &Scheduler{
		hour:     hour,
		minute:   minute,
		calendar: cal,
	}
}

// IsPastScheduledTime reports whether today's run time has been reached. A
// daemon started late still settles the day.
func (s *Scheduler) IsPastScheduledTime() bool {
	now := s.calendar.Now()
	return now.Hour()*60+now.Minute() >= s.hour*60+s.minute
}

// TodayDate returns today's date in YYYY-MM-DD format in the configured timezone
func (s *Scheduler) TodayDate() string {
	return s.calendar.TodayDate()
}

// IsMarketDay checks if the given date is a trading day (not weekend/holiday)
func (s *Scheduler) IsMarketDay(dateStr string) bool {
	return s.calendar.IsMarketDay(dateStr)
}

// Location returns the scheduler's timezone location
func (s *Scheduler) Location() *time.Location {
	return s.calendar.Location()
}

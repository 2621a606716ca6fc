package market

import (
	"testing"
	"time"
)

func TestIsMarketDay(t *testing.T) {
	cal := New("America/New_York")

	tests := []struct {
		date string
		want bool
	}{
		{"2025-03-10", true},  // Monday
		{"2025-03-08", false}, // Saturday
		{"2025-07-04", false}, // Independence Day
		{"2025-12-25", false}, // Christmas
		{"not-a-date", false},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			if got := cal.IsMarketDay(tt.date); got != tt.want {
				t.Errorf("IsMarketDay(%s) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestPreviousTradingDay(t *testing.T) {
	cal := New("America/New_York")
	loc := cal.Location()

	tests := []struct {
		name string
		day  time.Time
		want string
	}{
		{"monday steps to friday", time.Date(2025, 3, 10, 0, 0, 0, 0, loc), "2025-03-07"},
		{"midweek", time.Date(2025, 3, 12, 15, 0, 0, 0, loc), "2025-03-11"},
		{"after holiday weekend", time.Date(2025, 7, 7, 0, 0, 0, 0, loc), "2025-07-03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cal.PreviousTradingDay(tt.day)
			if got.Format(dateLayout) != tt.want {
				t.Errorf("PreviousTradingDay() = %s, want %s", got.Format(dateLayout), tt.want)
			}
			if got.Hour() != 0 || got.Location() != loc {
				t.Errorf("PreviousTradingDay() = %v, want midnight in %v", got, loc)
			}
		})
	}
}

func TestInRegularHours(t *testing.T) {
	cal := New("America/New_York")
	loc := cal.Location()

	if !cal.InRegularHours(time.Date(2025, 3, 10, 9, 30, 0, 0, loc)) {
		t.Error("09:30 on a trading day should be in regular hours")
	}
	if cal.InRegularHours(time.Date(2025, 3, 10, 16, 0, 0, 0, loc)) {
		t.Error("16:00 should be after the close")
	}
	if cal.InRegularHours(time.Date(2025, 3, 8, 11, 0, 0, 0, loc)) {
		t.Error("Saturday should not be in regular hours")
	}
}

func TestTodayDate(t *testing.T) {
	cal := New("America/New_York")
	// 02:00 UTC is still the previous evening in New York.
	cal.WithClock(func() time.Time { return time.Date(2025, 3, 11, 2, 0, 0, 0, time.UTC) })

	if got := cal.TodayDate(); got != "2025-03-10" {
		t.Errorf("TodayDate() = %s, want 2025-03-10", got)
	}
}

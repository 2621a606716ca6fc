package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/analytics"
	"github.com/dgnsrekt/auction-profile/internal/data"
	"github.com/dgnsrekt/auction-profile/internal/market"
	"github.com/dgnsrekt/auction-profile/internal/profile"
)

const dateLayout = "2006-01-02"

// parseDates parses date arguments and returns a list of dates
func parseDates(args []string) ([]string, error) {
	start, err := time.Parse(dateLayout, args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid start date format (use YYYY-MM-DD): %w", err)
	}

	if len(args) == 1 {
		return []string{args[0]}, nil
	}

	end, err := time.Parse(dateLayout, args[1])
	if err != nil {
		return nil, fmt.Errorf("invalid end date format (use YYYY-MM-DD): %w", err)
	}

	if end.Before(start) {
		return nil, fmt.Errorf("end date must be after start date")
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(dateLayout))
	}

	return dates, nil
}

// filterMarketDays filters out non-trading days (weekends and NYSE holidays)
// and logs warnings for skipped dates
func filterMarketDays(cal *market.Calendar, dates []string, logger *zap.Logger) []string {
	var marketDays []string
	for _, dateStr := range dates {
		if cal.IsMarketDay(dateStr) {
			marketDays = append(marketDays, dateStr)
		} else {
			logger.Warn("skipping non-market day", zap.String("date", dateStr))
		}
	}
	return marketDays
}

// sessionReport is the offline analysis of one archived session.
type sessionReport struct {
	Date  string   `json:"date"`
	Price *float64 `json:"price"`
	profile.Analytics
}

// analyzeSessions profiles each date against the full archive. The session's
// last close stands in for the live price; priceOverride replaces it.
func analyzeSessions(bars []data.Bar, dates []string, opts profile.Options, priceOverride *float64) ([]sessionReport, error) {
	reports := make([]sessionReport, 0, len(dates))
	for _, dateStr := range dates {
		day, err := time.ParseInLocation(dateLayout, dateStr, opts.Location)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", dateStr, err)
		}

		price := priceOverride
		if price == nil {
			price = analytics.ClosingPrice(bars, day, opts.Location)
		}

		reports = append(reports, sessionReport{
			Date:      dateStr,
			Price:     price,
			Analytics: profile.Aggregate(bars, price, day, opts),
		})
	}
	return reports, nil
}

// archiveDates lists every session date present in bars.
func archiveDates(bars []data.Bar, loc *time.Location) []string {
	days := data.SessionDays(bars, loc)
	dates := make([]string, len(days))
	for i, d := range days {
		dates[i] = d.Format(dateLayout)
	}
	return dates
}

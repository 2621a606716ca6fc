package analytics

import (
	"github.com/dgnsrekt/auction-profile/internal/config"
	"github.com/dgnsrekt/auction-profile/internal/market"
	"github.com/dgnsrekt/auction-profile/internal/profile"
)

// ProfileOptions maps the profile settings onto profile.Options. The
// "trading" previous-session mode steps back over weekends and holidays.
func ProfileOptions(p config.ProfileConfig, cal *market.Calendar) profile.Options {
	opts := profile.Options{
		IBBars:      p.IBBars,
		Location:    cal.Location(),
		PreviousDay: profile.CalendarDay,
	}
	if p.PreviousSession == config.PreviousTrading {
		opts.PreviousDay = cal.PreviousTradingDay
	}
	return opts
}

// ConfigFrom derives the service configuration.
func ConfigFrom(cfg *config.Config, cal *market.Calendar) Config {
	return Config{
		HistoryInterval: cfg.Profile.HistoryInterval,
		HistoryRange:    cfg.Profile.HistoryRange,
		Options:         ProfileOptions(cfg.Profile, cal),
	}
}

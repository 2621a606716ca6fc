package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/analytics"
	"github.com/dgnsrekt/auction-profile/internal/config"
	"github.com/dgnsrekt/auction-profile/internal/data"
	"github.com/dgnsrekt/auction-profile/internal/market"
	"github.com/dgnsrekt/auction-profile/internal/notify"
	"github.com/dgnsrekt/auction-profile/internal/profile"
	"github.com/dgnsrekt/auction-profile/internal/recorder"
)

// Daemon settles each trading session once: it archives the day's bars,
// profiles the session, records the result and sends a summary.
type Daemon struct {
	cfg       *config.Config
	daemonCfg *DaemonConfig
	calendar  *market.Calendar
	scheduler *Scheduler
	tracker   *DownloadTracker
	recorder  recorder.Recorder
	notifier  notify.Notifier
	logger    *zap.Logger

	lastFailure time.Time
}

func NewDaemon(cfg *config.Config, daemonCfg *DaemonConfig, cal *market.Calendar, rec recorder.Recorder, notifier notify.Notifier, logger *zap.Logger) *Daemon {
	return &Daemon{
		cfg:       cfg,
		daemonCfg: daemonCfg,
		calendar:  cal,
		scheduler: NewScheduler(daemonCfg.ScheduleHour, daemonCfg.ScheduleMinute, cal),
		tracker:   NewDownloadTracker(daemonCfg.StateFile),
		recorder:  rec,
		notifier:  notifier,
		logger:    logger,
	}
}

// shouldRun checks if conditions are met for settling today's session
func (d *Daemon) shouldRun() bool {
	today := d.scheduler.TodayDate()

	// Check if already settled today
	if d.tracker.AlreadyDownloaded(today) {
		return false
	}

	// Check if it's a market day
	if !d.scheduler.IsMarketDay(today) {
		d.logger.Debug("not a market day", zap.String("date", today))
		return false
	}

	// Check if the session has closed
	if !d.scheduler.IsPastScheduledTime() {
		return false
	}

	// Back off after a failure
	if !d.lastFailure.IsZero() && d.calendar.Now().Sub(d.lastFailure) < d.daemonCfg.RetryAfter {
		return false
	}

	d.logger.Info("settle conditions met",
		zap.String("date", today),
		zap.String("time", d.calendar.Now().Format("15:04:05")),
	)

	return true
}

// run settles today's session and updates the tracker
func (d *Daemon) run(ctx context.Context) {
	today := d.scheduler.TodayDate()

	d.logger.Info("starting end-of-day run", zap.String("date", today))
	start := time.Now()

	a, err := d.settle(ctx, today)
	if err != nil {
		d.lastFailure = d.calendar.Now()
		d.logger.Error("end-of-day run failed", zap.Error(err), zap.String("date", today))
		if nerr := d.notifier.SendFailure(ctx, d.cfg.Symbol, today, err); nerr != nil {
			d.logger.Warn("failed to send failure notification", zap.Error(nerr))
		}
		return
	}
	d.lastFailure = time.Time{}

	if err := d.notifier.SendSessionSummary(ctx, d.cfg.Symbol, today, a); err != nil {
		d.logger.Warn("failed to send session summary", zap.Error(err))
	}

	d.logger.Info("end-of-day run succeeded",
		zap.String("date", today),
		zap.Duration("duration", time.Since(start)),
	)

	// Update tracker to prevent a second run
	if err := d.tracker.SetLastDownloadDate(today); err != nil {
		d.logger.Error("failed to update tracker", zap.Error(err))
	}
}

// settle archives date, profiles the served symbol from the archive and
// records it.
func (d *Daemon) settle(ctx context.Context, date string) (profile.Analytics, error) {
	if _, err := executeDownload(ctx, d.cfg, date, d.logger); err != nil {
		return profile.Analytics{}, fmt.Errorf("archiving %s: %w", date, err)
	}

	src, err := data.NewMemorySource(d.cfg.Output.Directory, date, d.logger)
	if err != nil {
		return profile.Analytics{}, fmt.Errorf("opening archive: %w", err)
	}
	bars, err := src.FetchBars(ctx, d.cfg.Symbol, d.cfg.Profile.HistoryInterval, d.cfg.Profile.HistoryRange)
	if err != nil {
		return profile.Analytics{}, fmt.Errorf("reading %s %s archive: %w", d.cfg.Symbol, d.cfg.Profile.HistoryInterval, err)
	}

	day, err := d.calendar.ParseDate(date)
	if err != nil {
		return profile.Analytics{}, err
	}
	opts := analytics.ProfileOptions(d.cfg.Profile, d.calendar)
	a := profile.Aggregate(bars, analytics.ClosingPrice(bars, day, opts.Location), day, opts)
	if a.SessionStats.POC == nil {
		return a, fmt.Errorf("no %s bars for session %s", d.cfg.Symbol, date)
	}

	rec := recorder.NewSessionRecord(data.NormalizeSymbol(d.cfg.Symbol), day, a, time.Now())
	if err := d.recorder.RecordSession(ctx, rec); err != nil {
		return a, fmt.Errorf("recording session: %w", err)
	}

	d.logger.Info("session recorded",
		zap.String("symbol", rec.Symbol),
		zap.String("date", rec.Date),
		zap.Float64p("poc", rec.POC),
		zap.Int("tails", len(rec.Tails)),
	)
	return a, nil
}

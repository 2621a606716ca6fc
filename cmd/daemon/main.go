package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/config"
	"github.com/dgnsrekt/auction-profile/internal/logging"
	"github.com/dgnsrekt/auction-profile/internal/market"
	"github.com/dgnsrekt/auction-profile/internal/notify"
	"github.com/dgnsrekt/auction-profile/internal/recorder"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	// Load daemon config
	daemonCfg := LoadDaemonConfig()

	// Load profiler config
	cfg, err := config.Load(daemonCfg.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	// Setup logger
	logger, err := logging.New("daemon", false, &cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("daemon configuration loaded",
		zap.Int("scheduleHour", daemonCfg.ScheduleHour),
		zap.Int("scheduleMinute", daemonCfg.ScheduleMinute),
		zap.String("timezone", cfg.Profile.Timezone),
		zap.String("configPath", daemonCfg.ConfigPath),
		zap.String("stateFile", daemonCfg.StateFile),
		zap.Bool("runOnStartup", daemonCfg.RunOnStartup),
		zap.Duration("retryAfter", daemonCfg.RetryAfter),
	)

	logger.Info("profiler configuration loaded",
		zap.String("symbol", cfg.Symbol),
		zap.String("outputDir", cfg.Output.Directory),
		zap.Int("workers", cfg.Download.Workers),
		zap.Strings("intervals", archiveIntervals(cfg)),
		zap.Bool("recorderEnabled", cfg.Recorder.Path != ""),
		zap.Bool("notifyEnabled", cfg.Notify.Enabled),
	)

	rec, err := recorder.Open(cfg.Recorder.Path, logger)
	if err != nil {
		logger.Error("failed to open recorder", zap.Error(err))
		return 1
	}
	defer rec.Close()

	notifyCfg := notify.FromSettings(cfg.Notify)
	if err := notifyCfg.Validate(); err != nil {
		logger.Error("invalid notify configuration", zap.Error(err))
		return 1
	}
	notifier := notify.New(notifyCfg, logger)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	cal := market.New(cfg.Profile.Timezone)
	d := NewDaemon(cfg, daemonCfg, cal, rec, notifier, logger)

	logger.Info("daemon started",
		zap.String("schedule", fmt.Sprintf("%02d:%02d %s", daemonCfg.ScheduleHour, daemonCfg.ScheduleMinute, cal.Location())),
	)

	// Check on startup if enabled
	if daemonCfg.RunOnStartup {
		logger.Info("checking for missed session on startup")
		if d.shouldRun() {
			d.run(ctx)
		}
	}

	// Main loop - check every minute
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			cancel()
			return 0

		case <-ticker.C:
			if d.shouldRun() {
				d.run(ctx)
			}

		case <-ctx.Done():
			logger.Info("context cancelled, shutting down")
			return 0
		}
	}
}

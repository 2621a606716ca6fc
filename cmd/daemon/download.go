package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/api"
	"github.com/dgnsrekt/auction-profile/internal/config"
	"github.com/dgnsrekt/auction-profile/internal/download"
	"github.com/dgnsrekt/auction-profile/internal/staging"
)

// DownloadTracker tracks the last successfully settled date
type DownloadTracker struct {
	stateFile string
}

// NewDownloadTracker creates a new tracker with the given state file path
func NewDownloadTracker(stateFile string) *DownloadTracker {
	return &DownloadTracker{stateFile: stateFile}
}

// GetLastDownloadDate reads the last successful date from state file
func (t *DownloadTracker) GetLastDownloadDate() string {
	data, err := os.ReadFile(t.stateFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SetLastDownloadDate writes the date to the state file
func (t *DownloadTracker) SetLastDownloadDate(date string) error {
	// Ensure directory exists
	dir := filepath.Dir(t.stateFile)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	return os.WriteFile(t.stateFile, []byte(date+"\n"), 0600)
}

// AlreadyDownloaded checks if the given date was already settled
func (t *DownloadTracker) AlreadyDownloaded(date string) bool {
	return t.GetLastDownloadDate() == date
}

// archiveIntervals is the configured download intervals plus the history
// interval the session report is computed from.
func archiveIntervals(cfg *config.Config) []string {
	intervals := slices.Clone(cfg.Download.Intervals)
	if !slices.Contains(intervals, cfg.Profile.HistoryInterval) {
		intervals = append(intervals, cfg.Profile.HistoryInterval)
	}
	return intervals
}

// archiveSymbols is the configured download symbols plus the served symbol.
func archiveSymbols(cfg *config.Config) []string {
	symbols := slices.Clone(cfg.Download.Symbols)
	if !slices.ContainsFunc(symbols, func(s string) bool { return strings.EqualFold(s, cfg.Symbol) }) {
		symbols = append(symbols, cfg.Symbol)
	}
	return symbols
}

// executeDownload archives the day's bar series using existing internal packages.
func executeDownload(ctx context.Context, cfg *config.Config, date string, logger *zap.Logger) (*download.BatchResult, error) {
	logger.Info("starting download", zap.String("date", date))

	// Create API client
	client := api.NewClient(
		cfg.Source.BaseURL,
		cfg.Source.UserAgent,
		cfg.Source.RatePerSecond,
		time.Duration(cfg.Source.TimeoutSec)*time.Second,
		time.Duration(cfg.Source.RetryDelay)*time.Second,
		cfg.Source.RetryCount,
		logger,
	)

	// Create staging manager
	stgMgr := staging.NewManager(cfg.Output.Directory)

	// Create download manager
	dlMgr := download.NewManager(client, stgMgr, cfg.Download.Workers, logger)
	dlMgr.SetResume(cfg.Download.ResumeEnabled)

	tasks := download.BuildTasks(archiveSymbols(cfg), archiveIntervals(cfg), cfg.Download.Range, date)
	logger.Info("generated tasks", zap.Int("count", len(tasks)))

	// Execute downloads
	result, err := dlMgr.Execute(ctx, tasks)
	if err != nil {
		return result, err
	}

	// Commit staging to final location and cleanup (only if there were actual downloads)
	if result.Success > 0 {
		if err := stgMgr.CommitStaging(date); err != nil {
			logger.Warn("failed to commit staging", zap.String("date", date), zap.Error(err))
		}
		if err := stgMgr.CleanupStaging(date); err != nil {
			logger.Warn("failed to cleanup staging", zap.String("date", date), zap.Error(err))
		}
	}

	logger.Info("download complete",
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("skipped", result.Skipped),
		zap.Int("not_found", result.NotFound),
		zap.Int("failed", result.Failed),
		zap.Int("bars", result.Bars),
	)

	if result.Failed > 0 {
		for _, e := range result.Errors {
			logger.Error("download error", zap.String("error", e))
		}
		return result, fmt.Errorf("%d downloads failed", result.Failed)
	}

	return result, nil
}

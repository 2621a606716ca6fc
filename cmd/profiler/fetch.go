package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/api"
	"github.com/dgnsrekt/auction-profile/internal/config"
	"github.com/dgnsrekt/auction-profile/internal/download"
	"github.com/dgnsrekt/auction-profile/internal/market"
	"github.com/dgnsrekt/auction-profile/internal/staging"
)

func fetchCmd() *cobra.Command {
	var (
		dryRun    bool
		symbols   []string
		intervals []string
		rng       string
	)

	cmd := &cobra.Command{
		Use:   "fetch [YYYY-MM-DD] [END_DATE]",
		Short: "Archive bar series from the chart API",
		Long: `Fetch bar series from the chart API and archive them as JSONL under
{output.directory}/{date}/{SYMBOL}/{interval}.jsonl.

The archive for a date holds whatever the API returns for the configured
range at fetch time; the file source of the server replays it.

Examples:
  # Archive today's series
  profiler fetch

  # Archive a date range, skipping weekends and holidays
  profiler fetch 2025-03-03 2025-03-07

  # Override symbols and intervals from config
  profiler fetch --symbols TSLA,NVDA --intervals 5m 2025-03-10

  # Dry run to see what would be fetched
  profiler fetch --dry-run`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cal := market.New(cfg.Profile.Timezone)

			if len(args) == 0 {
				args = []string{cal.TodayDate()}
			}

			dates, err := parseDates(args)
			if err != nil {
				return err
			}
			dates = filterMarketDays(cal, dates, logger)
			if len(dates) == 0 {
				return fmt.Errorf("no market days in requested range")
			}

			effectiveSymbols := cfg.Download.Symbols
			if len(symbols) > 0 {
				effectiveSymbols = symbols
			}
			effectiveIntervals := cfg.Download.Intervals
			if len(intervals) > 0 {
				effectiveIntervals = intervals
			}
			if rng == "" {
				rng = cfg.Download.Range
			}
			if err := config.ValidateDownloadConfig(effectiveSymbols, effectiveIntervals, rng); err != nil {
				return err
			}

			var tasks []download.Task
			for _, date := range dates {
				tasks = append(tasks, download.BuildTasks(effectiveSymbols, effectiveIntervals, rng, date)...)
			}

			logger.Info("generated tasks", zap.Int("count", len(tasks)))

			if dryRun {
				for _, t := range tasks {
					fmt.Fprintf(cmd.OutOrStdout(), "Would fetch: %s\n", t)
				}
				return nil
			}

			client := api.NewClient(
				cfg.Source.BaseURL,
				cfg.Source.UserAgent,
				cfg.Source.RatePerSecond,
				time.Duration(cfg.Source.TimeoutSec)*time.Second,
				time.Duration(cfg.Source.RetryDelay)*time.Second,
				cfg.Source.RetryCount,
				logger,
			)

			stgMgr := staging.NewManager(cfg.Output.Directory)
			dlMgr := download.NewManager(client, stgMgr, cfg.Download.Workers, logger)
			dlMgr.SetResume(cfg.Download.ResumeEnabled)

			result, err := dlMgr.Execute(ctx, tasks)
			if err != nil {
				return err
			}

			// Commit staging to final location and cleanup (only if there were actual downloads)
			if result.Success > 0 {
				for _, date := range dates {
					if err := stgMgr.CommitStaging(date); err != nil {
						logger.Warn("failed to commit staging", zap.String("date", date), zap.Error(err))
					}
					if err := stgMgr.CleanupStaging(date); err != nil {
						logger.Warn("failed to cleanup staging", zap.String("date", date), zap.Error(err))
					}
				}
			}

			logger.Info("fetch complete",
				zap.Int("total", result.Total),
				zap.Int("success", result.Success),
				zap.Int("skipped", result.Skipped),
				zap.Int("not_found", result.NotFound),
				zap.Int("failed", result.Failed),
				zap.Int("bars", result.Bars),
			)

			if result.Failed > 0 {
				for _, e := range result.Errors {
					logger.Error("fetch error", zap.String("error", e))
				}
				return fmt.Errorf("%d fetches failed", result.Failed)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be fetched")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "override symbols from config")
	cmd.Flags().StringSliceVar(&intervals, "intervals", nil, "override intervals from config (e.g. 5m,30m)")
	cmd.Flags().StringVar(&rng, "range", "", "override chart range from config (e.g. 30d)")

	return cmd
}

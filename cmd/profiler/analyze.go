package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/analytics"
	"github.com/dgnsrekt/auction-profile/internal/data"
	"github.com/dgnsrekt/auction-profile/internal/market"
)

func analyzeCmd() *cobra.Command {
	var (
		dates  []string
		ibBars int
		price  float64
	)

	cmd := &cobra.Command{
		Use:   "analyze FILE.jsonl",
		Short: "Profile archived sessions from a JSONL bar file",
		Long: `Build the session report for each requested date of an archived bar
series and print it as JSON.

Without --date every market day present in the file is profiled. The
session's last close stands in for the live price unless --price is set.

Examples:
  # Profile every session in a 30 day archive
  profiler analyze data/2025-03-10/TSLA/5m.jsonl

  # Profile one session with a 30 minute initial balance
  profiler analyze --date 2025-03-07 --ib-bars 6 data/2025-03-10/TSLA/5m.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cal := market.New(cfg.Profile.Timezone)
			opts := analytics.ProfileOptions(cfg.Profile, cal)
			if ibBars > 0 {
				opts.IBBars = ibBars
			}

			bars, err := data.LoadBarsFile(args[0])
			if err != nil {
				return err
			}
			if len(bars) == 0 {
				return fmt.Errorf("no bars in %s", args[0])
			}

			requested := dates
			if len(requested) == 0 {
				requested = archiveDates(bars, opts.Location)
			}
			requested = filterMarketDays(cal, requested, logger)

			var override *float64
			if cmd.Flags().Changed("price") {
				override = &price
			}

			reports, err := analyzeSessions(bars, requested, opts, override)
			if err != nil {
				return err
			}

			logger.Info("analysis complete",
				zap.String("file", args[0]),
				zap.Int("bars", len(bars)),
				zap.Int("sessions", len(reports)),
			)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(reports)
		},
	}

	cmd.Flags().StringSliceVar(&dates, "date", nil, "session date(s) to profile (YYYY-MM-DD)")
	cmd.Flags().IntVar(&ibBars, "ib-bars", 0, "override the number of initial balance bars")
	cmd.Flags().Float64Var(&price, "price", 0, "price to evaluate extensions and opportunity against")

	return cmd
}

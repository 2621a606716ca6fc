package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/api"
	"github.com/dgnsrekt/auction-profile/internal/data"
)

func convertCmd() *cobra.Command {
	var keep bool

	cmd := &cobra.Command{
		Use:   "convert DIR",
		Short: "Convert saved chart API responses to JSONL bars",
		Long: `Convert raw chart API responses (*.json) saved under DIR into the JSONL
bar format the file source and the analyze command read.

Each FILE.json becomes FILE.jsonl next to it. Original JSON files are
deleted after successful conversion unless --keep is set.

Examples:
  # Convert responses saved for a date
  profiler convert data/2025-03-10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return convertChartsToJSONL(args[0], keep)
		},
	}

	cmd.Flags().BoolVar(&keep, "keep", false, "keep the original JSON files")

	return cmd
}

func convertChartsToJSONL(dir string, keep bool) error {
	var converted, skipped, failed int

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip directories and non-JSON files
		if info.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		// Skip staging directory
		if strings.Contains(path, ".staging") {
			return nil
		}

		jsonlPath := strings.TrimSuffix(path, ".json") + ".jsonl"

		// Skip if JSONL already exists
		if _, err := os.Stat(jsonlPath); err == nil {
			logger.Debug("skipping, JSONL exists", zap.String("file", path))
			skipped++
			return nil
		}

		n, err := convertChartFile(path, jsonlPath)
		if err != nil {
			logger.Error("conversion failed", zap.String("file", path), zap.Error(err))
			failed++
			return nil // Continue with other files
		}
		logger.Info("converted", zap.String("file", path), zap.Int("bars", n))

		if !keep {
			if err := os.Remove(path); err != nil {
				logger.Warn("failed to delete original", zap.String("file", path), zap.Error(err))
			}
		}

		converted++
		return nil
	})

	if err != nil {
		return fmt.Errorf("walking directory: %w", err)
	}

	logger.Info("conversion complete",
		zap.Int("converted", converted),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	if failed > 0 {
		return fmt.Errorf("%d files failed to convert", failed)
	}

	return nil
}

func convertChartFile(jsonPath, jsonlPath string) (int, error) {
	body, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("reading file: %w", err)
	}

	bars, err := api.DecodeChart(body)
	if err != nil {
		return 0, fmt.Errorf("decoding chart: %w", err)
	}

	outFile, err := os.Create(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("creating output file: %w", err)
	}

	if err := data.WriteBarsJSONL(outFile, bars); err != nil {
		_ = outFile.Close()
		_ = os.Remove(jsonlPath)
		return 0, err
	}
	return len(bars), outFile.Close()
}
